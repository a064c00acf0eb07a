package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the subset of ethclient.Client the caller needs.
type Backend interface {
	ethereum.ContractCaller
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// ContractConfig holds the contract addresses the caller talks to.
type ContractConfig struct {
	Seaport                    common.Address
	Clearinghouse              common.Address
	SettlementToken            common.Address
	EnableTradingCheckInterval time.Duration
	ReceiptTimeout             time.Duration
	ReceiptPollInterval        time.Duration
}

// ContractCaller handles blockchain contract interactions. It reads chain state for
// order construction, fulfills orders on Seaport and writes options on the
// clearinghouse, so it serves as StateReader, Settlement and Custody.
type ContractCaller struct {
	client                     Backend
	closer                     func()
	privateKey                 *ecdsa.PrivateKey
	seaportAddr                common.Address
	clearinghouseAddr          common.Address
	settlementTokenAddr        common.Address
	enableTradingCheckInterval time.Duration
	receiptTimeout             time.Duration
	receiptPollInterval        time.Duration

	// txMu serializes nonce allocation and the enable-trading check.
	txMu                  sync.Mutex
	enableTradingLastTime time.Time
}

var (
	_ StateReader = (*ContractCaller)(nil)
	_ Settlement  = (*ContractCaller)(nil)
	_ Custody     = (*ContractCaller)(nil)
)

// NewContractCaller dials rpcURL and creates a new ContractCaller instance
func NewContractCaller(rpcURL string, privateKeyHex string, cfg ContractConfig) (*ContractCaller, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	signer, err := NewKeySignerFromHex(privateKeyHex)
	if err != nil {
		client.Close()
		return nil, err
	}

	cc := NewContractCallerWithBackend(client, signer.key, cfg)
	cc.closer = client.Close
	return cc, nil
}

// NewContractCallerWithBackend creates a ContractCaller on an existing backend.
func NewContractCallerWithBackend(backend Backend, key *ecdsa.PrivateKey, cfg ContractConfig) *ContractCaller {
	if cfg.EnableTradingCheckInterval == 0 {
		cfg.EnableTradingCheckInterval = time.Hour
	}
	if cfg.ReceiptTimeout == 0 {
		cfg.ReceiptTimeout = 120 * time.Second
	}
	if cfg.ReceiptPollInterval == 0 {
		cfg.ReceiptPollInterval = 2 * time.Second
	}

	return &ContractCaller{
		client:                     backend,
		privateKey:                 key,
		seaportAddr:                cfg.Seaport,
		clearinghouseAddr:          cfg.Clearinghouse,
		settlementTokenAddr:        cfg.SettlementToken,
		enableTradingCheckInterval: cfg.EnableTradingCheckInterval,
		receiptTimeout:             cfg.ReceiptTimeout,
		receiptPollInterval:        cfg.ReceiptPollInterval,
	}
}

// GetSignerAddress returns the address of the signer
func (cc *ContractCaller) GetSignerAddress() common.Address {
	return crypto.PubkeyToAddress(cc.privateKey.PublicKey)
}

// CheckGasBalance checks if signer has enough gas tokens
func (cc *ContractCaller) CheckGasBalance(ctx context.Context, estimatedGas uint64) error {
	signerAddr := cc.GetSignerAddress()
	balance, err := cc.client.BalanceAt(ctx, signerAddr, nil)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}

	gasPrice, err := cc.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get gas price: %w", err)
	}

	// Add 20% safety margin
	required := new(big.Int).SetUint64(estimatedGas)
	required.Mul(required, big.NewInt(120))
	required.Div(required, big.NewInt(100))
	required.Mul(required, gasPrice)

	if balance.Cmp(required) < 0 {
		return fmt.Errorf("insufficient gas balance: signer %s has %s wei, but needs approximately %s wei for gas",
			signerAddr.Hex(), balance.String(), required.String())
	}
	return nil
}

// BlockTimestamp returns the latest block timestamp.
func (cc *ContractCaller) BlockTimestamp(ctx context.Context) (uint64, error) {
	header, err := cc.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest header: %w", err)
	}
	return header.Time, nil
}

// Counter returns the offerer's Seaport counter.
func (cc *ContractCaller) Counter(ctx context.Context, offerer common.Address) (*big.Int, error) {
	var counter *big.Int
	if err := cc.call(ctx, seaportABI, cc.seaportAddr, &counter, "getCounter", offerer); err != nil {
		return nil, fmt.Errorf("failed to get counter: %w", err)
	}
	return counter, nil
}

type seaportOfferItem struct {
	ItemType             uint8
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
}

type seaportConsiderationItem struct {
	ItemType             uint8
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
	Recipient            common.Address
}

type seaportOrderParameters struct {
	Offerer                         common.Address
	Zone                            common.Address
	Offer                           []seaportOfferItem
	Consideration                   []seaportConsiderationItem
	OrderType                       uint8
	StartTime                       *big.Int
	EndTime                         *big.Int
	ZoneHash                        [32]byte
	Salt                            *big.Int
	ConduitKey                      [32]byte
	TotalOriginalConsiderationItems *big.Int
}

type seaportOrder struct {
	Parameters seaportOrderParameters
	Signature  []byte
}

func toSeaportOrder(signed *SignedOrder) seaportOrder {
	o := signed.Order
	params := seaportOrderParameters{
		Offerer:                         o.Offerer,
		Zone:                            o.Zone,
		OrderType:                       uint8(o.OrderType),
		StartTime:                       orZero(o.StartTime),
		EndTime:                         orZero(o.EndTime),
		ZoneHash:                        o.ZoneHash,
		Salt:                            orZero(o.Salt),
		ConduitKey:                      o.ConduitKey,
		TotalOriginalConsiderationItems: big.NewInt(int64(len(o.Consideration))),
	}
	for _, item := range o.Offer {
		params.Offer = append(params.Offer, seaportOfferItem{
			ItemType:             uint8(item.ItemType),
			Token:                item.Token,
			IdentifierOrCriteria: orZero(item.IdentifierOrCriteria),
			StartAmount:          orZero(item.StartAmount),
			EndAmount:            orZero(item.EndAmount),
		})
	}
	for _, item := range o.Consideration {
		params.Consideration = append(params.Consideration, seaportConsiderationItem{
			ItemType:             uint8(item.ItemType),
			Token:                item.Token,
			IdentifierOrCriteria: orZero(item.IdentifierOrCriteria),
			StartAmount:          orZero(item.StartAmount),
			EndAmount:            orZero(item.EndAmount),
			Recipient:            item.Recipient,
		})
	}
	return seaportOrder{Parameters: params, Signature: signed.Signature.Bytes()}
}

// packFulfillOrder encodes a Seaport fulfillOrder call without a fulfiller conduit.
func packFulfillOrder(signed *SignedOrder) ([]byte, error) {
	return seaportABI.Pack("fulfillOrder", toSeaportOrder(signed), [32]byte{})
}

// Fulfill pays the order's consideration and receives its offer through Seaport.
// ERC20 consideration must be covered by the signer's balance; missing allowance
// is approved first.
func (cc *ContractCaller) Fulfill(ctx context.Context, signed *SignedOrder) (*types.Receipt, error) {
	if signed == nil || signed.Order == nil || signed.Signature == nil {
		return nil, fmt.Errorf("signed order is incomplete")
	}

	owner := cc.GetSignerAddress()
	native := new(big.Int)
	owed := make(map[common.Address]*big.Int)
	for _, item := range signed.Order.Consideration {
		amount := maxAmount(item.StartAmount, item.EndAmount)
		switch item.ItemType {
		case ItemTypeNative:
			native.Add(native, amount)
		case ItemTypeERC20:
			if owed[item.Token] == nil {
				owed[item.Token] = new(big.Int)
			}
			owed[item.Token].Add(owed[item.Token], amount)
		default:
			return nil, fmt.Errorf("unsupported consideration item type %s", item.ItemType)
		}
	}

	for token, amount := range owed {
		balance, err := cc.getERC20Balance(ctx, token, owner)
		if err != nil {
			return nil, fmt.Errorf("failed to get balance of %s: %w", token.Hex(), err)
		}
		if balance.Cmp(amount) < 0 {
			return nil, fmt.Errorf("insufficient %s balance: has %s, needs %s", token.Hex(), balance.String(), amount.String())
		}
		if err := cc.ensureERC20Allowance(ctx, token, owner, cc.seaportAddr, amount); err != nil {
			return nil, err
		}
	}

	data, err := packFulfillOrder(signed)
	if err != nil {
		return nil, fmt.Errorf("failed to pack fulfillOrder: %w", err)
	}

	tx, err := cc.sendTransaction(ctx, cc.seaportAddr, native, data)
	if err != nil {
		return nil, fmt.Errorf("failed to send fulfillOrder: %w", err)
	}

	receipt, err := cc.waitForReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to wait for fulfillment: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("fulfillment reverted: tx hash %s", tx.Hash().Hex())
	}
	return receipt, nil
}

// EnsureAvailable checks the signer holds amount of the instrument. Clearinghouse
// options that are short are written first.
func (cc *ContractCaller) EnsureAvailable(ctx context.Context, instrument Instrument, amount *big.Int) error {
	owner := cc.GetSignerAddress()

	switch instrument.ItemType {
	case ItemTypeERC20:
		balance, err := cc.getERC20Balance(ctx, instrument.Token, owner)
		if err != nil {
			return fmt.Errorf("failed to get balance: %w", err)
		}
		if balance.Cmp(amount) < 0 {
			return fmt.Errorf("insufficient balance: has %s, needs %s", balance.String(), amount.String())
		}
		return nil

	case ItemTypeERC1155:
		if instrument.Token != cc.clearinghouseAddr {
			return fmt.Errorf("instrument %s is not a clearinghouse option", instrument.Token.Hex())
		}
		balance, err := cc.getOptionBalance(ctx, owner, instrument.Identifier)
		if err != nil {
			return fmt.Errorf("failed to get option balance: %w", err)
		}
		if balance.Cmp(amount) >= 0 {
			return nil
		}
		return cc.writeOptions(ctx, instrument.Identifier, new(big.Int).Sub(amount, balance))
	}

	return fmt.Errorf("unsupported instrument item type %s", instrument.ItemType)
}

func (cc *ContractCaller) writeOptions(ctx context.Context, optionID, amount *big.Int) error {
	if err := cc.CheckGasBalance(ctx, 300000); err != nil {
		return err
	}

	data, err := clearinghouseABI.Pack("write", optionID, amount)
	if err != nil {
		return fmt.Errorf("failed to pack write: %w", err)
	}

	tx, err := cc.sendTransaction(ctx, cc.clearinghouseAddr, nil, data)
	if err != nil {
		return fmt.Errorf("failed to write options: %w", err)
	}

	receipt, err := cc.waitForReceipt(ctx, tx.Hash())
	if err != nil {
		return fmt.Errorf("failed to wait for write transaction: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("write transaction failed: tx hash %s", tx.Hash().Hex())
	}
	return nil
}

// EnableTrading approves the settlement token for Seaport and the clearinghouse,
// and lets Seaport move the signer's options. Checks are skipped while within the
// configured interval of the last run.
func (cc *ContractCaller) EnableTrading(ctx context.Context) ([]*types.Transaction, error) {
	cc.txMu.Lock()
	if !cc.enableTradingLastTime.IsZero() && time.Since(cc.enableTradingLastTime) < cc.enableTradingCheckInterval {
		cc.txMu.Unlock()
		return nil, nil
	}
	cc.txMu.Unlock()

	if err := cc.CheckGasBalance(ctx, 500000); err != nil {
		return nil, err
	}

	owner := cc.GetSignerAddress()
	var sent []*types.Transaction

	decimals, err := cc.getERC20Decimals(ctx, cc.settlementTokenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to get decimals: %w", err)
	}
	// Calculate minimum threshold: 1 billion * 10^decimals
	minThreshold := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	minThreshold.Mul(minThreshold, big.NewInt(1000000000))

	for _, spender := range []common.Address{cc.seaportAddr, cc.clearinghouseAddr} {
		tx, err := cc.approveERC20(ctx, cc.settlementTokenAddr, owner, spender, minThreshold)
		if err != nil {
			return sent, err
		}
		if tx != nil {
			sent = append(sent, tx)
		}
	}

	approved, err := cc.isApprovedForAll(ctx, owner, cc.seaportAddr)
	if err != nil {
		return sent, fmt.Errorf("failed to check isApprovedForAll: %w", err)
	}
	if !approved {
		data, err := clearinghouseABI.Pack("setApprovalForAll", cc.seaportAddr, true)
		if err != nil {
			return sent, fmt.Errorf("failed to pack setApprovalForAll: %w", err)
		}
		tx, err := cc.sendTransaction(ctx, cc.clearinghouseAddr, nil, data)
		if err != nil {
			return sent, fmt.Errorf("failed to send setApprovalForAll: %w", err)
		}
		sent = append(sent, tx)
	}

	for _, tx := range sent {
		receipt, err := cc.waitForReceipt(ctx, tx.Hash())
		if err != nil {
			return sent, err
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			return sent, fmt.Errorf("approval transaction failed: tx hash %s", tx.Hash().Hex())
		}
	}

	// Only a fully successful run starts the check interval.
	cc.txMu.Lock()
	cc.enableTradingLastTime = time.Now()
	cc.txMu.Unlock()
	return sent, nil
}

// approveERC20 grants spender an unlimited allowance when the current one is below
// threshold. Returns nil when nothing was sent.
func (cc *ContractCaller) approveERC20(ctx context.Context, token, owner, spender common.Address, threshold *big.Int) (*types.Transaction, error) {
	allowance, err := cc.getERC20Allowance(ctx, token, owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to get allowance: %w", err)
	}
	if allowance.Cmp(threshold) >= 0 {
		return nil, nil
	}

	// Unlimited approval amount (max uint256)
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	data, err := erc20ABI.Pack("approve", spender, maxUint256)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve: %w", err)
	}
	tx, err := cc.sendTransaction(ctx, token, nil, data)
	if err != nil {
		return nil, fmt.Errorf("failed to send approve: %w", err)
	}
	return tx, nil
}

func (cc *ContractCaller) ensureERC20Allowance(ctx context.Context, token, owner, spender common.Address, amount *big.Int) error {
	tx, err := cc.approveERC20(ctx, token, owner, spender, amount)
	if err != nil || tx == nil {
		return err
	}
	receipt, err := cc.waitForReceipt(ctx, tx.Hash())
	if err != nil {
		return fmt.Errorf("failed to wait for approve: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("approve transaction failed: tx hash %s", tx.Hash().Hex())
	}
	return nil
}

// getERC20Allowance returns the ERC20 allowance for owner to spender
func (cc *ContractCaller) getERC20Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	err := cc.call(ctx, erc20ABI, token, &allowance, "allowance", owner, spender)
	return allowance, err
}

// getERC20Balance returns the ERC20 balance for an account
func (cc *ContractCaller) getERC20Balance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	var balance *big.Int
	err := cc.call(ctx, erc20ABI, token, &balance, "balanceOf", account)
	return balance, err
}

func (cc *ContractCaller) getERC20Decimals(ctx context.Context, token common.Address) (uint8, error) {
	var decimals uint8
	err := cc.call(ctx, erc20ABI, token, &decimals, "decimals")
	return decimals, err
}

func (cc *ContractCaller) getOptionBalance(ctx context.Context, account common.Address, optionID *big.Int) (*big.Int, error) {
	var balance *big.Int
	err := cc.call(ctx, clearinghouseABI, cc.clearinghouseAddr, &balance, "balanceOf", account, orZero(optionID))
	return balance, err
}

// isApprovedForAll checks if an operator is approved for all tokens on the clearinghouse
func (cc *ContractCaller) isApprovedForAll(ctx context.Context, owner, operator common.Address) (bool, error) {
	var approved bool
	err := cc.call(ctx, clearinghouseABI, cc.clearinghouseAddr, &approved, "isApprovedForAll", owner, operator)
	return approved, err
}

func (cc *ContractCaller) call(ctx context.Context, contract abiPacker, to common.Address, out interface{}, method string, args ...interface{}) error {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return err
	}

	result, err := cc.client.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return err
	}

	return contract.UnpackIntoInterface(out, method, result)
}

type abiPacker interface {
	Pack(name string, args ...interface{}) ([]byte, error)
	UnpackIntoInterface(v interface{}, name string, data []byte) error
}

// sendTransaction signs and submits a call to `to`.
func (cc *ContractCaller) sendTransaction(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	cc.txMu.Lock()
	defer cc.txMu.Unlock()

	value = orZero(value)
	from := cc.GetSignerAddress()

	chainID, err := cc.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	nonce, err := cc.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := cc.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	gas, err := cc.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gas = gas * 120 / 100

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), cc.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := cc.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx, nil
}

// waitForReceipt polls for a transaction receipt until the receipt timeout.
func (cc *ContractCaller) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, cc.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(cc.receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := cc.client.TransactionReceipt(timeoutCtx, txHash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-timeoutCtx.Done():
			return nil, fmt.Errorf("timeout waiting for transaction receipt: %s", txHash.Hex())
		case <-ticker.C:
		}
	}
}

// Close closes the Ethereum client connection
func (cc *ContractCaller) Close() {
	if cc.closer != nil {
		cc.closer()
	}
}

func maxAmount(a, b *big.Int) *big.Int {
	a, b = orZero(a), orZero(b)
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}
