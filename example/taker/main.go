// Example taker: asks for a quote on one option series and fills the first one
// under the price ceiling.
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

	if err := run(cfg, lg); err != nil {
		lg.Error(err)
		os.Exit(1)
	}
}

func run(cfg *valoremrfq.EnvConfig, lg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Taker.Timeout)
	defer cancel()

	clientCfg := cfg.ClientConfig()
	clientCfg.Logger = lg
	client, err := valoremrfq.NewClient(clientCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	optionID, ok := new(big.Int).SetString(cfg.Taker.OptionID, 0)
	if !ok {
		return errors.Errorf("invalid TAKER_OPTION_ID %q", cfg.Taker.OptionID)
	}
	amount, err := valoremrfq.ParseUnits(cfg.Taker.Amount, 0)
	if err != nil {
		return errors.Wrap(err, "TAKER_AMOUNT")
	}
	maxPrice, err := valoremrfq.ParseUnits(cfg.Taker.MaxPrice, valoremrfq.USDCDecimals)
	if err != nil {
		return errors.Wrap(err, "TAKER_MAX_PRICE")
	}

	txs, err := client.EnableTrading(ctx)
	if err != nil {
		return errors.Wrap(err, "enable trading")
	}
	for _, tx := range txs {
		lg.Info("approval sent", logger.NewField("tx_hash", tx.Hash().Hex()))
	}

	_, clearinghouse, _, _ := valoremrfq.DefaultContractAddresses[valoremrfq.ChainID(cfg.Node.ChainID)].Addresses()
	req := valoremrfq.NewQuoteRequest(client.Address(), chain.Instrument{
		ItemType:   chain.ItemTypeERC1155,
		Token:      clearinghouse,
		Identifier: optionID,
	}, amount, valoremrfq.ActionBuy)

	policy := &valoremrfq.PriceCeilingPolicy{SettlementToken: client.SettlementToken(), MaxPrice: maxPrice}
	fill, err := client.Negotiate(ctx, req, policy, func(t *valoremrfq.TakerConfig) {
		t.RequestInterval = cfg.Taker.RequestInterval
		t.OnReject = func(r valoremrfq.Rejection) {
			lg.Info("quote skipped",
				logger.NewField("maker", r.Counterparty.Hex()),
				logger.NewField("reason", r.Err.Error()),
			)
		}
	})
	if err != nil {
		return err
	}

	fields := []logger.Field{
		logger.NewField("maker", fill.Quote.Maker.Hex()),
		logger.NewField("price", valoremrfq.FormatUnits(fill.Quote.Price(client.SettlementToken(), fill.Quote.Order.Order.StartTime), valoremrfq.USDCDecimals)),
	}
	if fill.Receipt != nil {
		fields = append(fields, logger.NewField("tx_hash", fill.Receipt.TxHash.Hex()))
	}
	lg.Info("order filled", fields...)
	return nil
}
