package valoremrfq

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/kaifufi/valorem-rfq-sdk-go/chain"
	"github.com/kaifufi/valorem-rfq-sdk-go/logger"
)

// Client is the main SDK client
type Client struct {
	conn           *grpc.ClientConn
	auth           *GRPCAuthBridge
	contractCaller *chain.ContractCaller
	signer         *chain.KeySigner
	domain         *chain.EIP712Domain
	tokens         *TokenCache
	config         ClientConfig
	log            logger.Interface
}

// ClientConfig holds configuration for creating a Client
type ClientConfig struct {
	// Endpoint is the trade API gRPC target.
	Endpoint string
	Insecure bool

	ChainID    ChainID
	RPCURL     string
	PrivateKey string

	SeaportAddr         string
	ClearinghouseAddr   string
	SettlementTokenAddr string

	SIWEDomain    string
	SIWEURI       string
	SIWEStatement string

	OrderValidity              time.Duration
	SaltDomainTag              uint32
	EnableTradingCheckInterval time.Duration
	KeepAliveInterval          time.Duration

	// Tokens defaults to DefaultTokenCache.
	Tokens      *TokenCache
	Logger      logger.Interface
	DialOptions []grpc.DialOption
}

// TakerOption adjusts the configuration of a taker created by the client.
type TakerOption func(*TakerConfig)

// MakerOption adjusts the configuration of a maker created by the client.
type MakerOption func(*MakerConfig)

// NewClient creates a new Valorem RFQ SDK client
func NewClient(config ClientConfig) (*Client, error) {
	isSupported := false
	for _, supportedID := range SupportedChainIDs {
		if config.ChainID == supportedID {
			isSupported = true
			break
		}
	}
	if !isSupported {
		return nil, &InvalidParamError{
			Message: fmt.Sprintf("chain_id must be one of %v", SupportedChainIDs),
		}
	}

	// Use default contract addresses if not provided
	contracts := DefaultContractAddresses[config.ChainID]
	if config.SeaportAddr == "" {
		config.SeaportAddr = contracts.Seaport
	}
	if config.ClearinghouseAddr == "" {
		config.ClearinghouseAddr = contracts.Clearinghouse
	}
	if config.SettlementTokenAddr == "" {
		config.SettlementTokenAddr = contracts.USDC
	}
	for name, addr := range map[string]string{
		"seaport":          config.SeaportAddr,
		"clearinghouse":    config.ClearinghouseAddr,
		"settlement token": config.SettlementTokenAddr,
	} {
		if !common.IsHexAddress(addr) {
			return nil, &InvalidParamError{Message: fmt.Sprintf("invalid %s address: %s", name, addr)}
		}
	}

	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.SIWEDomain == "" {
		config.SIWEDomain = DefaultDomain
	}
	if config.SIWEURI == "" {
		config.SIWEURI = DefaultURI
	}
	if config.OrderValidity == 0 {
		config.OrderValidity = chain.DefaultOrderValidity
	}
	if config.EnableTradingCheckInterval == 0 {
		config.EnableTradingCheckInterval = 1 * time.Hour
	}
	if config.KeepAliveInterval == 0 {
		config.KeepAliveInterval = 30 * time.Second
	}
	if config.Tokens == nil {
		config.Tokens = DefaultTokenCache
	}
	if config.Logger == nil {
		config.Logger = logger.NewNopLogger()
	}

	signer, err := chain.NewKeySignerFromHex(config.PrivateKey)
	if err != nil {
		return nil, err
	}

	transport := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if config.Insecure {
		transport = insecure.NewCredentials()
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(transport),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    config.KeepAliveInterval,
			Timeout: 10 * time.Second,
		}),
	}, config.DialOptions...)

	conn, err := grpc.NewClient(config.Endpoint, dialOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create grpc client")
	}

	contractCaller, err := chain.NewContractCaller(config.RPCURL, config.PrivateKey, chain.ContractConfig{
		Seaport:                    common.HexToAddress(config.SeaportAddr),
		Clearinghouse:              common.HexToAddress(config.ClearinghouseAddr),
		SettlementToken:            common.HexToAddress(config.SettlementTokenAddr),
		EnableTradingCheckInterval: config.EnableTradingCheckInterval,
	})
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to create contract caller")
	}

	return &Client{
		conn:           conn,
		auth:           NewGRPCAuthBridge(conn),
		contractCaller: contractCaller,
		signer:         signer,
		domain:         chain.NewEIP712Domain(config.ChainID.Big(), common.HexToAddress(config.SeaportAddr)),
		tokens:         config.Tokens,
		config:         config,
		log:            config.Logger,
	}, nil
}

// Close closes the client and cleans up resources
func (c *Client) Close() error {
	if c.contractCaller != nil {
		c.contractCaller.Close()
	}
	return c.conn.Close()
}

// Address returns the account the client trades as.
func (c *Client) Address() common.Address {
	return c.signer.Address()
}

// Domain returns the EIP712 domain orders are signed and verified under.
func (c *Client) Domain() *chain.EIP712Domain {
	return c.domain
}

// ContractCaller exposes the chain collaborator used for settlement and custody.
func (c *Client) ContractCaller() *chain.ContractCaller {
	return c.contractCaller
}

// SettlementToken returns the token quotes are priced in.
func (c *Client) SettlementToken() common.Address {
	return common.HexToAddress(c.config.SettlementTokenAddr)
}

func (c *Client) sessionConfig() SessionConfig {
	return SessionConfig{
		Signer: c.signer,
		Auth:   c.auth,
		Tokens: c.tokens,
		SignIn: SignInConfig{
			Domain:    c.config.SIWEDomain,
			URI:       c.config.SIWEURI,
			Statement: c.config.SIWEStatement,
			ChainID:   int64(c.config.ChainID),
		},
		Logger: c.log,
	}
}

// SignIn authenticates the client account and caches the token for later sessions.
func (c *Client) SignIn(ctx context.Context) (SessionToken, error) {
	cfg := c.sessionConfig()
	return c.tokens.Acquire(ctx, c.signer.Address(), func(ctx context.Context) (SessionToken, error) {
		return SignIn(ctx, c.auth, c.signer, cfg.SignIn)
	})
}

// EnableTrading approves Seaport and the clearinghouse to move the client's tokens
func (c *Client) EnableTrading(ctx context.Context) ([]*types.Transaction, error) {
	return c.contractCaller.EnableTrading(ctx)
}

// NewTaker creates a taker session settling through the client's contract caller.
func (c *Client) NewTaker(policy TakerPolicy, opts ...TakerOption) (*Taker, error) {
	cfg := TakerConfig{
		SessionConfig: c.sessionConfig(),
		Domain:        c.domain,
		Policy:        policy,
		Settlement:    c.contractCaller,
		State:         c.contractCaller,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewTaker(c.conn, cfg)
}

// NewMaker creates a maker session that writes options through the client's
// contract caller before offering them.
func (c *Client) NewMaker(policy MakerPolicy, opts ...MakerOption) (*Maker, error) {
	builder, err := chain.NewOrderBuilder(c.domain, c.signer, c.contractCaller,
		chain.WithValidity(c.config.OrderValidity),
		chain.WithSaltDomainTag(c.config.SaltDomainTag),
	)
	if err != nil {
		return nil, err
	}

	cfg := MakerConfig{
		SessionConfig: c.sessionConfig(),
		Policy:        policy,
		Custody:       c.contractCaller,
		Builder:       builder,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewMaker(c.conn, cfg)
}

// Negotiate authenticates a fresh taker session and runs one negotiation on it.
func (c *Client) Negotiate(ctx context.Context, req *QuoteRequest, policy TakerPolicy, opts ...TakerOption) (*Fill, error) {
	taker, err := c.NewTaker(policy, opts...)
	if err != nil {
		return nil, err
	}
	defer taker.Close()

	if err := taker.Authenticate(ctx); err != nil {
		return nil, err
	}
	return taker.Negotiate(ctx, req)
}

// Serve authenticates a fresh maker session and serves requests until ctx is done.
func (c *Client) Serve(ctx context.Context, policy MakerPolicy, opts ...MakerOption) error {
	maker, err := c.NewMaker(policy, opts...)
	if err != nil {
		return err
	}
	defer maker.Close()

	if err := maker.Authenticate(ctx); err != nil {
		return err
	}
	return maker.Serve(ctx)
}
