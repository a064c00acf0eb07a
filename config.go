package valoremrfq

import (
	"math/big"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/kaifufi/valorem-rfq-sdk-go/logger"
)

// ChainID represents a blockchain chain ID
type ChainID int64

const (
	ChainIDArbitrumOne    ChainID = 42161  // Arbitrum One mainnet
	ChainIDArbitrumGoerli ChainID = 421613 // Arbitrum Goerli testnet
)

// SupportedChainIDs lists all supported chain IDs
var SupportedChainIDs = []ChainID{ChainIDArbitrumOne, ChainIDArbitrumGoerli}

// Big returns the chain id as a *big.Int.
func (id ChainID) Big() *big.Int {
	return big.NewInt(int64(id))
}

// ContractAddresses holds contract addresses for each chain
type ContractAddresses struct {
	Seaport       string
	Clearinghouse string
	USDC          string
	WETH          string
}

// DefaultContractAddresses maps chain IDs to their contract addresses
var DefaultContractAddresses = map[ChainID]ContractAddresses{
	ChainIDArbitrumOne: {
		Seaport:       "0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC",
		Clearinghouse: "0x402A401B1944EBb5A3030F36Aa70d6b5794190c9",
		USDC:          "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
		WETH:          "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
	},
	ChainIDArbitrumGoerli: {
		Seaport:       "0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC",
		Clearinghouse: "0x402A401B1944EBb5A3030F36Aa70d6b5794190c9",
		USDC:          "0x8AE0EeedD35DbEFe460Df12A20823eFDe9e03458",
		WETH:          "0x618b9a2Db0CF23Bb20A849dAa2963c72770C1372",
	},
}

const (
	DefaultEndpoint = "trade.valorem.xyz:443"
	DefaultDomain   = "trade.valorem.xyz"
	DefaultURI      = "https://trade.valorem.xyz"
)

// EnvConfig is the environment configuration of the example programs.
type EnvConfig struct {
	App   AppConfig   `envPrefix:"APP_"`
	Node  NodeConfig  `envPrefix:"NODE_"`
	Trade TradeConfig `envPrefix:"TRADE_"`
	Maker MakerEnv    `envPrefix:"MAKER_"`
	Taker TakerEnv    `envPrefix:"TAKER_"`
}

// AppConfig represents the application configuration.
type AppConfig struct {
	Name        string `env:"NAME" envDefault:"valorem-rfq"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// NodeConfig represents the chain node and account configuration.
type NodeConfig struct {
	RPCURL     string `env:"RPC_URL,required"`
	PrivateKey string `env:"PRIVATE_KEY,required,unset"`
	ChainID    int64  `env:"CHAIN_ID" envDefault:"421613"`
}

// TradeConfig represents the trade API configuration.
type TradeConfig struct {
	Endpoint   string        `env:"ENDPOINT" envDefault:"trade.valorem.xyz:443"`
	Insecure   bool          `env:"INSECURE" envDefault:"false"`
	Domain     string        `env:"DOMAIN" envDefault:"trade.valorem.xyz"`
	URI        string        `env:"URI" envDefault:"https://trade.valorem.xyz"`
	KeepAlive  time.Duration `env:"KEEPALIVE" envDefault:"30s"`
	SaltDomain uint32        `env:"SALT_DOMAIN" envDefault:"0"`
}

// MakerEnv represents the maker program configuration.
type MakerEnv struct {
	OptionIDs     []string      `env:"OPTION_IDS" envSeparator:","`
	MaxAmount     string        `env:"MAX_AMOUNT" envDefault:"100"`
	Premium       string        `env:"PREMIUM" envDefault:"1"`
	OrderValidity time.Duration `env:"ORDER_VALIDITY" envDefault:"30m"`
	Concurrency   int           `env:"CONCURRENCY" envDefault:"8"`
}

// TakerEnv represents the taker program configuration.
type TakerEnv struct {
	OptionID        string        `env:"OPTION_ID"`
	Amount          string        `env:"AMOUNT" envDefault:"5"`
	MaxPrice        string        `env:"MAX_PRICE" envDefault:"200"`
	RequestInterval time.Duration `env:"REQUEST_INTERVAL" envDefault:"0s"`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"5m"`
}

// LoadConfig loads the configuration from the environment, reading a .env file
// first if one exists.
func LoadConfig() (*EnvConfig, error) {
	_ = godotenv.Load()

	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if _, ok := DefaultContractAddresses[ChainID(cfg.Node.ChainID)]; !ok {
		return nil, &InvalidParamError{Message: "unsupported chain id"}
	}
	return cfg, nil
}

// ClientConfig builds the client configuration described by the environment.
func (c *EnvConfig) ClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:          c.Trade.Endpoint,
		Insecure:          c.Trade.Insecure,
		ChainID:           ChainID(c.Node.ChainID),
		RPCURL:            c.Node.RPCURL,
		PrivateKey:        c.Node.PrivateKey,
		SIWEDomain:        c.Trade.Domain,
		SIWEURI:           c.Trade.URI,
		KeepAliveInterval: c.Trade.KeepAlive,
		SaltDomainTag:     c.Trade.SaltDomain,
		OrderValidity:     c.Maker.OrderValidity,
	}
}

// NewLogger builds the logger described by the environment.
func (c *EnvConfig) NewLogger() (*logger.Logger, error) {
	opts := []logger.Options{logger.WithLoggingLevel(logger.Level(c.App.LogLevel))}
	if c.App.Environment == "development" {
		opts = append(opts, logger.WithDevelopment())
	}
	return logger.NewLogger(opts...)
}

// Addresses returns the parsed contract addresses for the chain.
func (a ContractAddresses) Addresses() (seaport, clearinghouse, usdc, weth common.Address) {
	return common.HexToAddress(a.Seaport), common.HexToAddress(a.Clearinghouse),
		common.HexToAddress(a.USDC), common.HexToAddress(a.WETH)
}
