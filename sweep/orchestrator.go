package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/esimpay/solsweep/chain"
	"github.com/esimpay/solsweep/logger"
	"github.com/esimpay/solsweep/metrics"
	"github.com/esimpay/solsweep/retry"
	"github.com/esimpay/solsweep/types"
	"github.com/esimpay/solsweep/wallet"
)

// Orchestrator drives the sweep protocol: re-verify balance, acquire a
// fresh blockhash, build and submit the transaction, then optionally
// poll for confirmation. Like the reconciliation engine it relies on the
// caller to serialize calls per payment.
type Orchestrator struct {
	cfg     *types.Config
	gateway chain.Gateway
	builder *Builder
	units   types.UnitResolver
	log     logger.Logger
	rec     metrics.Recorder
	now     func() time.Time

	treasuryMu  sync.Mutex
	treasury    solana.PrivateKey
	treasuryErr error
	treasuryOK  bool
}

func NewOrchestrator(cfg *types.Config, gw chain.Gateway, log logger.Logger, rec metrics.Recorder, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	o := &Orchestrator{
		cfg:     cfg,
		gateway: gw,
		units:   cfg.Units(),
		log:     log,
		rec:     rec,
		now:     now,
	}
	if cfg.TreasuryTokenAccount != "" {
		if pk, err := solana.PublicKeyFromBase58(cfg.TreasuryTokenAccount); err == nil {
			o.builder = NewBuilder(pk)
		}
	}
	return o
}

// Sweep submits a transaction moving the full observed balance of the
// payment's holding account to the treasury. It performs no retries of
// its own beyond the RPC layer; re-invocation is the caller's retry.
func (o *Orchestrator) Sweep(ctx context.Context, p *types.Payment) *types.SweepResult {
	start := o.now()
	defer func() {
		o.rec.ObserveLatency(metrics.OpSweep, o.now().Sub(start), o.labels())
	}()

	if !p.Status.Sweepable() {
		return &types.SweepResult{
			Success: false,
			Status:  p.Status,
			Message: fmt.Sprintf("payment not completed: %s", p.Status),
		}
	}
	if msg := o.configGap(p); msg != "" {
		return &types.SweepResult{Success: false, Status: p.Status, Message: msg}
	}

	treasury, err := o.treasuryKey()
	if err != nil {
		return &types.SweepResult{Success: false, Status: p.Status, Message: err.Error()}
	}

	// Balances can still be rising; never sweep a cached figure.
	balance, msg := o.verifyHoldingAccount(ctx, p)
	if msg != "" {
		return &types.SweepResult{Success: false, Status: p.Status, Message: msg}
	}

	blockhash, err := o.freshBlockhash(ctx)
	if err != nil {
		return &types.SweepResult{
			Success: false,
			Status:  p.Status,
			Message: fmt.Sprintf("failed to get blockhash for transaction: %v", err),
		}
	}

	tx, err := o.builder.Build(p, treasury, balance, blockhash)
	if err != nil {
		return &types.SweepResult{
			Success: false,
			Status:  p.Status,
			Message: fmt.Sprintf("error creating sweep transaction: %v", err),
		}
	}

	sig, err := o.gateway.SubmitTransaction(ctx, tx)
	if err != nil {
		if chain.IsBlockhashNotFound(err) {
			// The anchor went stale before the node accepted the
			// transaction. Park the payment for a later re-sweep rather
			// than failing it.
			p.Status = types.StatusSweepPending
			o.rec.IncCounter(metrics.CounterSweepsDeferred, o.labels())
			o.log.Warn("sweep deferred on stale blockhash", logger.Fields{
				"address": p.Address.String(),
				"error":   err.Error(),
			})
			return &types.SweepResult{
				Success:    true,
				Status:     types.StatusSweepPending,
				Message:    "payment marked for re-sweep after stale blockhash",
				NeedsRetry: true,
			}
		}
		o.rec.IncCounter(metrics.CounterSweepsFailed, o.labels())
		o.log.Error("sweep submission failed", logger.Fields{
			"address": p.Address.String(),
			"error":   err.Error(),
		})
		// Status is left untouched so the caller can decide between
		// retrying and writing the payment off.
		return &types.SweepResult{
			Success: false,
			Status:  p.Status,
			Message: fmt.Sprintf("failed to send sweep transaction: %v", err),
		}
	}

	p.Status = types.StatusSwept
	p.TxSignature = sig.String()
	o.rec.IncCounter(metrics.CounterSweepsSubmitted, o.labels())

	display := o.units.ToDisplay(balance)
	result := &types.SweepResult{
		Success:   true,
		Status:    types.StatusSwept,
		Message:   fmt.Sprintf("tokens swept to treasury: %s %s", display, o.cfg.TokenSymbol),
		Signature: sig.String(),
		AmountRaw: balance,
		Amount:    display,
	}
	if required := o.units.ToRaw(p.Amount); balance > required {
		result.Overpaid = o.units.ToDisplay(balance - required)
	}
	o.log.Info("sweep submitted", logger.Fields{
		"address":   p.Address.String(),
		"signature": sig.String(),
		"amount":    display.String(),
	})
	return result
}

// SweepAndConfirm sweeps and then polls the signature status at a fixed
// interval until the transaction confirms, errors on chain, or the
// attempt budget runs out. An exhausted budget is reported as
// swept_unconfirmed, which is "we don't know", not a failure.
func (o *Orchestrator) SweepAndConfirm(ctx context.Context, p *types.Payment) *types.SweepResult {
	result := o.Sweep(ctx, p)
	if !result.Success || result.NeedsRetry {
		return result
	}

	sig, err := solana.SignatureFromBase58(result.Signature)
	if err != nil {
		return result
	}

	start := o.now()
	defer func() {
		o.rec.ObserveLatency(metrics.OpConfirm, o.now().Sub(start), o.labels())
	}()

	final, done, _ := retry.Poll(ctx, o.cfg.ConfirmAttempts, o.cfg.ConfirmInterval,
		func(ctx context.Context) (*types.SweepResult, bool, error) {
			status, err := o.gateway.SignatureStatus(ctx, sig)
			if err != nil {
				o.log.Warn("confirmation poll failed", logger.Fields{
					"signature": sig.String(),
					"error":     err.Error(),
				})
				return nil, false, nil
			}
			if status.Found && status.TxErr != nil {
				p.Status = types.StatusSweepFailed
				o.rec.IncCounter(metrics.CounterSweepsFailed, o.labels())
				return &types.SweepResult{
					Success:   false,
					Status:    types.StatusSweepFailed,
					Message:   fmt.Sprintf("transaction failed on chain: %v", status.TxErr),
					Signature: sig.String(),
				}, true, nil
			}
			if status.Confirmed() {
				p.Status = types.StatusSweptConfirmed
				o.rec.IncCounter(metrics.CounterSweepsConfirmed, o.labels())
				confirmed := *result
				confirmed.Status = types.StatusSweptConfirmed
				confirmed.Message = fmt.Sprintf("transaction %s", status.Confirmation)
				return &confirmed, true, nil
			}
			return nil, false, nil
		})
	if done {
		return final
	}

	p.Status = types.StatusSweptUnconfirmed
	o.log.Warn("sweep not confirmed within budget", logger.Fields{
		"signature": sig.String(),
		"attempts":  o.cfg.ConfirmAttempts,
	})
	unconfirmed := *result
	unconfirmed.Status = types.StatusSweptUnconfirmed
	unconfirmed.Message = fmt.Sprintf("transaction submitted but not confirmed after %d attempts", o.cfg.ConfirmAttempts)
	return &unconfirmed
}

// verifyHoldingAccount re-reads the holding account and validates it is
// a live, correctly-minted token account owned by the payment address.
// Returns the live balance, or a reason the sweep cannot proceed.
func (o *Orchestrator) verifyHoldingAccount(ctx context.Context, p *types.Payment) (types.RawAmount, string) {
	acc, err := o.gateway.TokenAccount(ctx, p.TokenAccount)
	if err != nil {
		return 0, fmt.Sprintf("error verifying token account: %v", err)
	}
	if acc == nil {
		return 0, fmt.Sprintf("token account %s does not exist on chain", p.TokenAccount)
	}
	if !acc.Mint.Equals(o.cfg.Mint()) {
		return 0, fmt.Sprintf("wrong token mint: %s", acc.Mint)
	}
	if !acc.Owner.Equals(p.Address) {
		return 0, fmt.Sprintf("token account is owned by %s, not %s", acc.Owner, p.Address)
	}
	if acc.State != chain.AccountStateInitialized {
		return 0, fmt.Sprintf("invalid token account state: %s", acc.State)
	}
	if acc.Balance == 0 {
		return 0, "no tokens found in account to sweep"
	}
	return types.RawAmount(acc.Balance), ""
}

// freshBlockhash fetches an anchor at the fastest acceptable commitment
// and cross-checks it against the current block height, discarding and
// refetching anchors that are already expired. The isBlockhashValid
// probe is best effort; its failure never blocks a submission attempt.
func (o *Orchestrator) freshBlockhash(ctx context.Context) (solana.Hash, error) {
	commitment := rpc.CommitmentConfirmed
	if o.cfg.Network == "mainnet-beta" {
		commitment = rpc.CommitmentProcessed
	}

	bh, err := retry.DoValue(ctx, o.cfg.RPCAttempts, retry.Exponential(o.cfg.RPCRetryDelay),
		func(ctx context.Context) (*chain.Blockhash, error) {
			bh, err := o.gateway.LatestBlockhash(ctx, commitment)
			if err != nil {
				return nil, err
			}
			if bh.LastValidBlockHeight > 0 {
				height, err := o.gateway.BlockHeight(ctx, commitment)
				if err == nil && height > bh.LastValidBlockHeight {
					return nil, fmt.Errorf("blockhash already expired: height %d > last valid %d", height, bh.LastValidBlockHeight)
				}
			}
			if valid, err := o.gateway.IsBlockhashValid(ctx, bh.Hash); err == nil && !valid {
				return nil, fmt.Errorf("blockhash %s reported invalid", bh.Hash)
			}
			return bh, nil
		})
	if err != nil {
		return solana.Hash{}, err
	}
	return bh.Hash, nil
}

func (o *Orchestrator) configGap(p *types.Payment) string {
	switch {
	case o.cfg.TreasuryAddress == "":
		return "treasury wallet not configured"
	case o.cfg.TreasuryKey == "":
		return "treasury wallet private key not configured"
	case o.cfg.TreasuryTokenAccount == "" || o.builder == nil:
		return "treasury token account not configured"
	case p.TokenAccount.IsZero():
		return "no token account found for payment address"
	}
	return ""
}

// treasuryKey parses and verifies the treasury signing key once and
// caches the outcome, including a negative one: a key mismatch is fatal
// and never retried.
func (o *Orchestrator) treasuryKey() (solana.PrivateKey, error) {
	o.treasuryMu.Lock()
	defer o.treasuryMu.Unlock()
	if !o.treasuryOK {
		o.treasury, o.treasuryErr = wallet.ParseTreasuryKey(o.cfg.TreasuryKey, o.cfg.TreasuryAddress)
		o.treasuryOK = true
	}
	return o.treasury, o.treasuryErr
}

func (o *Orchestrator) labels() map[string]string {
	return map[string]string{"network": o.cfg.Network}
}
