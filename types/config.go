package types

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// SandboxConfig enables behavior that must never be reachable in a
// production deployment: reduced amounts for cheap end-to-end runs and
// the native-balance fallback signal for constrained test environments.
type SandboxConfig struct {
	Enabled bool `json:"enabled" env:"SANDBOX_MODE"`

	// PaymentMultiplier scales requested amounts at creation, with a
	// floor of one token.
	PaymentMultiplier decimal.Decimal `json:"paymentMultiplier" env:"SANDBOX_PAYMENT_MULTIPLIER" envDefault:"0.01"`

	// NativeBalanceFallback accepts any positive SOL balance on the
	// payment address as a completion signal when no token account is
	// found. Liveness demo only; it skips token verification entirely.
	NativeBalanceFallback bool `json:"nativeBalanceFallback" env:"SANDBOX_NATIVE_FALLBACK"`
}

// Config is the engine configuration.
type Config struct {
	// Network selects the cluster; RPCEndpoint overrides the cluster's
	// public endpoint when set.
	Network     string `json:"network" env:"SOLANA_NETWORK" envDefault:"devnet" validate:"oneof=mainnet-beta testnet devnet"`
	RPCEndpoint string `json:"rpcEndpoint" env:"SOLANA_RPC_ENDPOINT" validate:"omitempty,url"`

	TokenMint     string `json:"tokenMint" env:"SPL_TOKEN_MINT" validate:"required"`
	TokenSymbol   string `json:"tokenSymbol" env:"SPL_TOKEN_SYMBOL" envDefault:"SPL"`
	TokenDecimals int    `json:"tokenDecimals" env:"SPL_TOKEN_DECIMALS" envDefault:"9" validate:"gte=0,lte=12"`

	// Treasury settings are required for the sweep path only; a
	// check-only deployment may leave them empty.
	TreasuryAddress      string `json:"treasuryAddress" env:"TREASURY_WALLET"`
	TreasuryKey          string `json:"-" env:"TREASURY_WALLET_PRIVATE_KEY"`
	TreasuryTokenAccount string `json:"treasuryTokenAccount" env:"TREASURY_WALLET_TOKEN_ACCOUNT"`

	PaymentTimeout  time.Duration `json:"paymentTimeout" env:"PAYMENT_TIMEOUT" envDefault:"10m"`
	ConfirmInterval time.Duration `json:"confirmInterval" env:"CONFIRM_INTERVAL" envDefault:"2s"`
	ConfirmAttempts int           `json:"confirmAttempts" env:"CONFIRM_ATTEMPTS" envDefault:"10" validate:"gte=1"`

	RPCAttempts   int           `json:"rpcAttempts" env:"RPC_ATTEMPTS" envDefault:"3" validate:"gte=1"`
	RPCRetryDelay time.Duration `json:"rpcRetryDelay" env:"RPC_RETRY_DELAY" envDefault:"1s"`

	Sandbox SandboxConfig `json:"sandbox"`
}

// Validate applies defaults and checks the configuration.
func (c *Config) Validate() error {
	if c.Network == "" {
		c.Network = "devnet"
	}
	if c.TokenSymbol == "" {
		c.TokenSymbol = "SPL"
	}
	if c.TokenDecimals == 0 {
		c.TokenDecimals = 9
	}
	if c.PaymentTimeout <= 0 {
		c.PaymentTimeout = 10 * time.Minute
	}
	if c.ConfirmInterval <= 0 {
		c.ConfirmInterval = 2 * time.Second
	}
	if c.ConfirmAttempts <= 0 {
		c.ConfirmAttempts = 10
	}
	if c.RPCAttempts <= 0 {
		c.RPCAttempts = 3
	}
	if c.RPCRetryDelay <= 0 {
		c.RPCRetryDelay = time.Second
	}
	if c.RPCEndpoint == "" {
		c.RPCEndpoint = EndpointForNetwork(c.Network)
	}
	if err := validate.Struct(c); err != nil {
		return &Error{Code: ErrConfigError, Message: fmt.Sprintf("invalid config: %v", err)}
	}
	if _, err := solana.PublicKeyFromBase58(c.TokenMint); err != nil {
		return &Error{Code: ErrConfigError, Message: fmt.Sprintf("invalid token mint %q: %v", c.TokenMint, err)}
	}
	return nil
}

// Mint returns the configured token mint as a public key. Validate must
// have succeeded first.
func (c *Config) Mint() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.TokenMint)
}

// Units returns the resolver for the configured decimals.
func (c *Config) Units() UnitResolver {
	return UnitResolver{Decimals: c.TokenDecimals}
}

// EndpointForNetwork maps a cluster name to its public RPC endpoint.
func EndpointForNetwork(network string) string {
	switch network {
	case "mainnet-beta":
		return rpc.MainNetBeta_RPC
	case "testnet":
		return rpc.TestNet_RPC
	default:
		return rpc.DevNet_RPC
	}
}
