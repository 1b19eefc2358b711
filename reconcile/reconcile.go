// Package reconcile decides when a payment address has received enough
// funds, accumulating partial payments and flagging over- and
// underpayment along the way.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/esimpay/solsweep/chain"
	"github.com/esimpay/solsweep/logger"
	"github.com/esimpay/solsweep/metrics"
	"github.com/esimpay/solsweep/types"
)

// Engine reconciles observed on-chain balances against a payment's
// required amount. It mutates only the payment handed to Check; the
// caller is responsible for serializing calls per address.
type Engine struct {
	cfg     *types.Config
	gateway chain.Gateway
	units   types.UnitResolver
	log     logger.Logger
	rec     metrics.Recorder
	now     func() time.Time
}

func NewEngine(cfg *types.Config, gw chain.Gateway, log logger.Logger, rec metrics.Recorder, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:     cfg,
		gateway: gw,
		units:   cfg.Units(),
		log:     log,
		rec:     rec,
		now:     now,
	}
}

// Check runs one reconciliation pass over the payment. Transport
// failures never mutate the payment; pending, underpaid and expired are
// ordinary outcomes.
func (e *Engine) Check(ctx context.Context, p *types.Payment) *types.CheckResult {
	start := e.now()
	defer func() {
		e.rec.ObserveLatency(metrics.OpCheckStatus, e.now().Sub(start), e.labels())
	}()

	// Anything past pending is settled one way or the other; re-checking
	// is an idempotent no-op with no new I/O.
	if p.Status != types.StatusPending {
		if p.Status.Settled() || p.Status == types.StatusSweepPending {
			return &types.CheckResult{Success: true, Status: p.Status, Payment: p}
		}
		return &types.CheckResult{
			Success: false,
			Status:  p.Status,
			Message: fmt.Sprintf("payment is %s", p.Status),
			Payment: p,
		}
	}

	now := e.now()
	if p.Expired(now) {
		p.Status = types.StatusExpired
		e.rec.IncCounter(metrics.CounterPaymentsExpired, e.labels())
		e.log.Info("payment expired", logger.Fields{"address": p.Address.String()})
		return &types.CheckResult{
			Success: false,
			Status:  types.StatusExpired,
			Message: "payment expired",
			Payment: p,
		}
	}

	accounts, err := e.gateway.TokenAccountsByOwner(ctx, p.Address, e.cfg.Mint())
	if err != nil {
		// Chain instability is not a verdict; leave the record alone.
		e.log.Warn("token account lookup failed", logger.Fields{
			"address": p.Address.String(),
			"error":   err.Error(),
		})
		return &types.CheckResult{
			Success: false,
			Status:  p.Status,
			Message: fmt.Sprintf("error checking payment: %v", err),
			Payment: p,
		}
	}

	for _, acc := range accounts {
		if acc.Balance == 0 {
			continue
		}
		return e.reconcileBalance(p, acc, now)
	}

	if e.cfg.Sandbox.Enabled && e.cfg.Sandbox.NativeBalanceFallback {
		if res := e.nativeFallback(ctx, p); res != nil {
			return res
		}
	}

	return &types.CheckResult{
		Success:   false,
		Status:    types.StatusPending,
		Message:   "payment pending",
		ExpiresIn: p.TimeRemaining(now),
		Payment:   p,
	}
}

func (e *Engine) reconcileBalance(p *types.Payment, acc chain.TokenAccount, now time.Time) *types.CheckResult {
	p.TokenAccount = acc.Address

	balance := types.RawAmount(acc.Balance)
	requiredRaw := e.units.ToRaw(p.Amount)
	p.UpdateBalance(now, balance)

	if balance >= requiredRaw {
		p.Status = types.StatusCompleted
		e.rec.IncCounter(metrics.CounterPaymentsCompleted, e.labels())

		fields := logger.Fields{
			"address":     p.Address.String(),
			"account":     acc.Address.String(),
			"balance_raw": uint64(balance),
		}
		if over := balance - requiredRaw; over > 0 {
			fields["overpaid_raw"] = uint64(over)
			fields["overpaid"] = e.units.ToDisplay(over).String()
		}
		e.log.Info("payment completed", fields)

		return &types.CheckResult{
			Success:    true,
			Status:     types.StatusCompleted,
			AmountPaid: e.units.ToDisplay(balance),
			History:    p.History,
			Payment:    p,
		}
	}

	remaining := requiredRaw - balance
	e.rec.IncCounter(metrics.CounterPaymentsUnderpaid, e.labels())
	e.log.Info("underpayment detected", logger.Fields{
		"address":       p.Address.String(),
		"balance_raw":   uint64(balance),
		"remaining_raw": uint64(remaining),
	})

	return &types.CheckResult{
		Success:         false,
		Status:          types.StatusUnderpaid,
		Message:         fmt.Sprintf("underpaid by %s %s", e.units.ToDisplay(remaining), e.cfg.TokenSymbol),
		AmountPaid:      e.units.ToDisplay(balance),
		AmountRemaining: e.units.ToDisplay(remaining),
		ExpiresIn:       p.TimeRemaining(now),
		History:         p.History,
		Payment:         p,
	}
}

// nativeFallback accepts any positive lamport balance as a completion
// signal. Sandbox only: it proves the address is reachable in constrained
// test clusters where no SPL mint exists, nothing more.
func (e *Engine) nativeFallback(ctx context.Context, p *types.Payment) *types.CheckResult {
	balance, err := e.gateway.NativeBalance(ctx, p.Address)
	if err != nil || balance == 0 {
		return nil
	}
	p.Status = types.StatusCompleted
	e.rec.IncCounter(metrics.CounterPaymentsCompleted, e.labels())
	e.log.Warn("payment completed via sandbox native-balance fallback", logger.Fields{
		"address":  p.Address.String(),
		"lamports": balance,
	})
	return &types.CheckResult{
		Success: true,
		Status:  types.StatusCompleted,
		Message: "completed via sandbox native-balance fallback",
		Payment: p,
	}
}

func (e *Engine) labels() map[string]string {
	return map[string]string{"network": e.cfg.Network}
}
