package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/esimpay/solsweep/chain"
	"github.com/esimpay/solsweep/logger"
	"github.com/esimpay/solsweep/metrics"
	"github.com/esimpay/solsweep/types"
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func testConfig(t *testing.T) *types.Config {
	t.Helper()
	cfg := &types.Config{
		Network:       "devnet",
		TokenMint:     usdcMint,
		TokenSymbol:   "USDC",
		TokenDecimals: 6,
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func testPayment(t *testing.T, amount string, now time.Time) *types.Payment {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return &types.Payment{
		ID:         "pay-1",
		Amount:     decimal.RequireFromString(amount),
		Address:    key.PublicKey(),
		PrivateKey: key,
		CreatedAt:  now,
		ExpiresAt:  now.Add(10 * time.Minute),
		Status:     types.StatusPending,
	}
}

// balanceGateway reports a single token account whose balance the test
// mutates between checks.
func balanceGateway(account solana.PublicKey, balance *uint64) *chain.MockGateway {
	return &chain.MockGateway{
		TokenAccountsByOwnerFn: func(_ context.Context, owner, mint solana.PublicKey) ([]chain.TokenAccount, error) {
			if *balance == 0 {
				return nil, nil
			}
			return []chain.TokenAccount{{
				Address: account,
				Mint:    mint,
				Owner:   owner,
				Balance: *balance,
				State:   chain.AccountStateInitialized,
			}}, nil
		},
	}
}

func newEngine(cfg *types.Config, gw chain.Gateway, now func() time.Time) *Engine {
	return NewEngine(cfg, gw, logger.NoopLogger{}, metrics.NoopRecorder{}, now)
}

func TestCheckAccumulatesPartialPayments(t *testing.T) {
	start := time.Now()
	cfg := testConfig(t)
	p := testPayment(t, "100", start)

	account := solana.NewWallet().PublicKey()
	var balance uint64
	e := newEngine(cfg, balanceGateway(account, &balance), func() time.Time { return start })
	ctx := context.Background()

	// Nothing received yet.
	res := e.Check(ctx, p)
	require.False(t, res.Success)
	require.Equal(t, types.StatusPending, res.Status)
	require.Equal(t, types.StatusPending, p.Status)

	// First partial payment of 50.
	balance = 50_000_000
	res = e.Check(ctx, p)
	require.False(t, res.Success)
	require.Equal(t, types.StatusUnderpaid, res.Status)
	require.Equal(t, types.StatusPending, p.Status)
	require.True(t, decimal.RequireFromString("50").Equal(res.AmountPaid))
	require.True(t, decimal.RequireFromString("50").Equal(res.AmountRemaining))
	require.Equal(t, account, p.TokenAccount)

	// Second partial payment brings the total to 80.
	balance = 80_000_000
	res = e.Check(ctx, p)
	require.Equal(t, types.StatusUnderpaid, res.Status)
	require.True(t, decimal.RequireFromString("20").Equal(res.AmountRemaining))

	// Final top-up overshoots to 105.
	balance = 105_000_000
	res = e.Check(ctx, p)
	require.True(t, res.Success)
	require.Equal(t, types.StatusCompleted, res.Status)
	require.Equal(t, types.StatusCompleted, p.Status)
	require.True(t, decimal.RequireFromString("105").Equal(res.AmountPaid))
	require.Len(t, p.History, 3)
	require.Equal(t, types.RawAmount(105_000_000), p.AccumulatedBalance)
}

func TestCheckCompletedIsIdempotent(t *testing.T) {
	start := time.Now()
	cfg := testConfig(t)
	p := testPayment(t, "100", start)
	p.Status = types.StatusCompleted

	calls := 0
	gw := &chain.MockGateway{
		TokenAccountsByOwnerFn: func(context.Context, solana.PublicKey, solana.PublicKey) ([]chain.TokenAccount, error) {
			calls++
			return nil, nil
		},
	}
	e := newEngine(cfg, gw, func() time.Time { return start })

	res := e.Check(context.Background(), p)
	require.True(t, res.Success)
	require.Equal(t, types.StatusCompleted, res.Status)
	require.Zero(t, calls, "settled payments must not hit the chain")
}

func TestCheckExpires(t *testing.T) {
	start := time.Now()
	cfg := testConfig(t)
	p := testPayment(t, "100", start)

	now := start
	e := newEngine(cfg, &chain.MockGateway{}, func() time.Time { return now })

	res := e.Check(context.Background(), p)
	require.Equal(t, types.StatusPending, res.Status)

	now = start.Add(11 * time.Minute)
	res = e.Check(context.Background(), p)
	require.False(t, res.Success)
	require.Equal(t, types.StatusExpired, res.Status)
	require.Equal(t, types.StatusExpired, p.Status)

	// Expired is sticky even when the clock is rolled back.
	now = start
	res = e.Check(context.Background(), p)
	require.Equal(t, types.StatusExpired, res.Status)
}

func TestCheckTransportErrorLeavesPaymentUntouched(t *testing.T) {
	start := time.Now()
	cfg := testConfig(t)
	p := testPayment(t, "100", start)

	gw := &chain.MockGateway{
		TokenAccountsByOwnerFn: func(context.Context, solana.PublicKey, solana.PublicKey) ([]chain.TokenAccount, error) {
			return nil, errors.New("rpc unavailable")
		},
	}
	e := newEngine(cfg, gw, func() time.Time { return start })

	res := e.Check(context.Background(), p)
	require.False(t, res.Success)
	require.Equal(t, types.StatusPending, res.Status)
	require.Equal(t, types.StatusPending, p.Status)
	require.Empty(t, p.History)
}

func TestCheckIgnoresEmptyAccounts(t *testing.T) {
	start := time.Now()
	cfg := testConfig(t)
	p := testPayment(t, "100", start)

	funded := solana.NewWallet().PublicKey()
	gw := &chain.MockGateway{
		TokenAccountsByOwnerFn: func(_ context.Context, owner, mint solana.PublicKey) ([]chain.TokenAccount, error) {
			return []chain.TokenAccount{
				{Address: solana.NewWallet().PublicKey(), Mint: mint, Owner: owner, Balance: 0, State: chain.AccountStateInitialized},
				{Address: funded, Mint: mint, Owner: owner, Balance: 100_000_000, State: chain.AccountStateInitialized},
			}, nil
		},
	}
	e := newEngine(cfg, gw, func() time.Time { return start })

	res := e.Check(context.Background(), p)
	require.True(t, res.Success)
	require.Equal(t, funded, p.TokenAccount)
}

func TestCheckRawAmountPassthrough(t *testing.T) {
	start := time.Now()
	cfg := testConfig(t)
	// Above the magnitude threshold the amount is read as raw units.
	p := testPayment(t, "100000000", start)

	account := solana.NewWallet().PublicKey()
	balance := uint64(100_000_000)
	e := newEngine(cfg, balanceGateway(account, &balance), func() time.Time { return start })

	res := e.Check(context.Background(), p)
	require.True(t, res.Success)
	require.Equal(t, types.StatusCompleted, res.Status)
}

func TestCheckSandboxNativeFallback(t *testing.T) {
	start := time.Now()
	cfg := testConfig(t)
	cfg.Sandbox.Enabled = true
	cfg.Sandbox.NativeBalanceFallback = true
	p := testPayment(t, "100", start)

	gw := &chain.MockGateway{
		NativeBalanceFn: func(context.Context, solana.PublicKey) (uint64, error) {
			return 5_000, nil
		},
	}
	e := newEngine(cfg, gw, func() time.Time { return start })

	res := e.Check(context.Background(), p)
	require.True(t, res.Success)
	require.Equal(t, types.StatusCompleted, p.Status)
}

func TestCheckNativeFallbackOffOutsideSandbox(t *testing.T) {
	start := time.Now()
	cfg := testConfig(t)
	p := testPayment(t, "100", start)

	gw := &chain.MockGateway{
		NativeBalanceFn: func(context.Context, solana.PublicKey) (uint64, error) {
			return 5_000, nil
		},
	}
	e := newEngine(cfg, gw, func() time.Time { return start })

	res := e.Check(context.Background(), p)
	require.False(t, res.Success)
	require.Equal(t, types.StatusPending, p.Status)
}
