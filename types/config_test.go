package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func TestConfigValidateDefaults(t *testing.T) {
	cfg := &Config{TokenMint: testMint}
	require.NoError(t, cfg.Validate())

	require.Equal(t, "devnet", cfg.Network)
	require.Equal(t, "SPL", cfg.TokenSymbol)
	require.Equal(t, 9, cfg.TokenDecimals)
	require.Equal(t, 10*time.Minute, cfg.PaymentTimeout)
	require.Equal(t, 2*time.Second, cfg.ConfirmInterval)
	require.Equal(t, 10, cfg.ConfirmAttempts)
	require.NotEmpty(t, cfg.RPCEndpoint)
}

func TestConfigValidateRejectsBadMint(t *testing.T) {
	cfg := &Config{TokenMint: "not-a-mint"}
	err := cfg.Validate()
	require.Error(t, err)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, ErrConfigError, terr.Code)
}

func TestConfigValidateRejectsBadNetwork(t *testing.T) {
	cfg := &Config{TokenMint: testMint, Network: "localnet"}
	require.Error(t, cfg.Validate())
}

func TestConfigMissingMint(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.Validate())
}
