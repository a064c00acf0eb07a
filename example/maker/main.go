// Example maker: quotes BUY requests for a fixed set of option series.
package main

import (
	"context"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	valoremrfq "github.com/kaifufi/valorem-rfq-sdk-go"
	"github.com/kaifufi/valorem-rfq-sdk-go/chain"
	"github.com/kaifufi/valorem-rfq-sdk-go/logger"
)

func main() {
	cfg, err := valoremrfq.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	lg, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Sync()

	if err := run(cfg, lg); err != nil && !errors.Is(err, context.Canceled) {
		lg.Error(err)
		os.Exit(1)
	}
}

func run(cfg *valoremrfq.EnvConfig, lg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clientCfg := cfg.ClientConfig()
	clientCfg.Logger = lg
	client, err := valoremrfq.NewClient(clientCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	policy, err := inventoryPolicy(cfg, client)
	if err != nil {
		return err
	}

	txs, err := client.EnableTrading(ctx)
	if err != nil {
		return errors.Wrap(err, "enable trading")
	}
	for _, tx := range txs {
		lg.Info("approval sent", logger.NewField("tx_hash", tx.Hash().Hex()))
	}

	lg.Info("serving quotes",
		logger.NewField("address", client.Address().Hex()),
		logger.NewField("instruments", len(policy.Instruments)),
	)
	return client.Serve(ctx, policy, func(m *valoremrfq.MakerConfig) {
		m.Concurrency = cfg.Maker.Concurrency
		m.OnReject = func(r valoremrfq.Rejection) {
			lg.Debug("request declined",
				logger.NewField("correlation_id", r.CorrelationID.String()),
				logger.NewField("reason", r.Err.Error()),
			)
		}
	})
}

func inventoryPolicy(cfg *valoremrfq.EnvConfig, client *valoremrfq.Client) (*valoremrfq.InventoryPolicy, error) {
	if len(cfg.Maker.OptionIDs) == 0 {
		return nil, errors.New("MAKER_OPTION_IDS is empty")
	}
	_, clearinghouse, _, _ := valoremrfq.DefaultContractAddresses[valoremrfq.ChainID(cfg.Node.ChainID)].Addresses()

	instruments := make([]chain.Instrument, 0, len(cfg.Maker.OptionIDs))
	for _, raw := range cfg.Maker.OptionIDs {
		id, ok := new(big.Int).SetString(raw, 0)
		if !ok {
			return nil, errors.Errorf("invalid option id %q", raw)
		}
		instruments = append(instruments, chain.Instrument{
			ItemType:   chain.ItemTypeERC1155,
			Token:      clearinghouse,
			Identifier: id,
		})
	}

	maxAmount, err := valoremrfq.ParseUnits(cfg.Maker.MaxAmount, 0)
	if err != nil {
		return nil, errors.Wrap(err, "MAKER_MAX_AMOUNT")
	}
	premium, err := valoremrfq.ParseUnits(cfg.Maker.Premium, valoremrfq.USDCDecimals)
	if err != nil {
		return nil, errors.Wrap(err, "MAKER_PREMIUM")
	}

	return &valoremrfq.InventoryPolicy{
		Instruments: instruments,
		MaxAmount:   maxAmount,
		PriceToken:  client.SettlementToken(),
		Premium:     premium,
	}, nil
}
