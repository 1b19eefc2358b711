// Package solsweep accepts SPL token micro-payments at ephemeral
// single-use addresses, reconciles partial and excess payments against
// the required amount, and sweeps received funds into a treasury wallet.
package solsweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/esimpay/solsweep/chain"
	"github.com/esimpay/solsweep/logger"
	"github.com/esimpay/solsweep/metrics"
	"github.com/esimpay/solsweep/reconcile"
	"github.com/esimpay/solsweep/store"
	"github.com/esimpay/solsweep/sweep"
	"github.com/esimpay/solsweep/types"
	"github.com/esimpay/solsweep/wallet"
)

// Manager is the payment engine facade. It owns the payment registry and
// serializes all checks and sweeps on the same address through a
// per-address lock, so concurrent pollers cannot race a payment's state.
type Manager struct {
	cfg     *types.Config
	store   store.Store
	gateway chain.Gateway
	issuer  wallet.Issuer
	engine  *reconcile.Engine
	sweeper *sweep.Orchestrator
	log     logger.Logger
	rec     metrics.Recorder
	now     func() time.Time
	locks   addressLocks
}

// New creates a Manager for the given configuration. Defaults: in-memory
// store, random address issuer, live Solana gateway, silent logger and
// metrics.
func New(cfg *types.Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, &types.Error{Code: types.ErrConfigError, Message: "config is required"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:    cfg,
		store:  store.NewMemoryStore(),
		issuer: wallet.RandomIssuer{},
		log:    logger.NoopLogger{},
		rec:    metrics.NoopRecorder{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.gateway == nil {
		m.gateway = chain.NewSolanaGateway(cfg, m.log)
	}
	m.engine = reconcile.NewEngine(cfg, m.gateway, m.log, m.rec, m.now)
	m.sweeper = sweep.NewOrchestrator(cfg, m.gateway, m.log, m.rec, m.now)

	m.log.Info("payment manager initialized", logger.Fields{
		"network": cfg.Network,
		"mint":    cfg.TokenMint,
		"symbol":  cfg.TokenSymbol,
	})
	return m, nil
}

// CreatePayment issues a fresh single-use address and registers a
// pending payment for the requested amount. No network I/O happens here.
func (m *Manager) CreatePayment(amount decimal.Decimal, userID, orderRef string) (*types.Payment, error) {
	if amount.Sign() <= 0 {
		return nil, &types.Error{Code: types.ErrInvalidState, Message: "amount must be positive"}
	}

	if m.cfg.Sandbox.Enabled && m.cfg.Sandbox.PaymentMultiplier.Sign() > 0 {
		scaled := amount.Mul(m.cfg.Sandbox.PaymentMultiplier)
		if scaled.LessThan(decimal.New(1, 0)) {
			scaled = decimal.New(1, 0)
		}
		m.log.Info("sandbox mode reduced payment amount", logger.Fields{
			"requested": amount.String(),
			"scaled":    scaled.String(),
		})
		amount = scaled
	}

	address, key, err := m.issuer.NewKeypair()
	if err != nil {
		return nil, fmt.Errorf("generating payment keypair: %w", err)
	}

	now := m.now()
	p := &types.Payment{
		ID:         uuid.NewString(),
		Amount:     amount,
		Address:    address,
		PrivateKey: key,
		UserID:     userID,
		OrderRef:   orderRef,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.cfg.PaymentTimeout),
		Status:     types.StatusPending,
	}
	if err := m.store.Put(p); err != nil {
		return nil, err
	}

	m.rec.IncCounter(metrics.CounterPaymentsCreated, m.labels())
	m.log.Info("created payment address", logger.Fields{
		"address": address.String(),
		"amount":  amount.String(),
		"symbol":  m.cfg.TokenSymbol,
	})
	return p, nil
}

// CheckPaymentStatus runs one reconciliation pass for the address.
func (m *Manager) CheckPaymentStatus(ctx context.Context, address string) *types.CheckResult {
	p, err := m.store.Get(address)
	if err != nil {
		return &types.CheckResult{Success: false, Message: "payment not found"}
	}
	unlock := m.locks.lock(address)
	defer unlock()
	res := m.engine.Check(ctx, p)
	m.persist(p)
	return res
}

// SweepFunds moves the full observed balance of a completed payment to
// the treasury. Retries are the caller's responsibility via
// re-invocation; a stale-blockhash submission parks the payment in
// sweep_pending instead of failing it.
func (m *Manager) SweepFunds(ctx context.Context, address string) *types.SweepResult {
	p, err := m.store.Get(address)
	if err != nil {
		return &types.SweepResult{Success: false, Message: "payment not found"}
	}
	unlock := m.locks.lock(address)
	defer unlock()
	res := m.sweeper.Sweep(ctx, p)
	m.persist(p)
	return res
}

// SweepAndConfirm sweeps and then polls for confirmation until a
// terminal outcome or the attempt budget runs out.
func (m *Manager) SweepAndConfirm(ctx context.Context, address string) *types.SweepResult {
	p, err := m.store.Get(address)
	if err != nil {
		return &types.SweepResult{Success: false, Message: "payment not found"}
	}
	unlock := m.locks.lock(address)
	defer unlock()
	res := m.sweeper.SweepAndConfirm(ctx, p)
	m.persist(p)
	return res
}

// CleanupExpiredPayments flags payments still pending past their window
// and returns the newly expired addresses. Records are kept for audit.
func (m *Manager) CleanupExpiredPayments() []string {
	now := m.now()
	var expired []string
	for _, p := range m.store.All() {
		addr := p.Address.String()
		unlock := m.locks.lock(addr)
		if p.Status == types.StatusPending && p.Expired(now) {
			p.Status = types.StatusExpired
			m.rec.IncCounter(metrics.CounterPaymentsExpired, m.labels())
			m.log.Info("payment expired", logger.Fields{"address": addr})
			m.persist(p)
			expired = append(expired, addr)
		}
		unlock()
	}
	return expired
}

// TransactionStatus looks up the confirmation state of an arbitrary
// transaction signature, falling back to the full transaction record
// when the signature has aged out of the status cache.
func (m *Manager) TransactionStatus(ctx context.Context, signature string) *types.TxStatus {
	if signature == "" {
		return &types.TxStatus{Success: false, Status: "invalid", Message: "invalid transaction signature"}
	}
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return &types.TxStatus{Success: false, Status: "invalid", Message: "invalid transaction signature format"}
	}

	status, err := m.gateway.SignatureStatus(ctx, sig)
	if err == nil && status.Found {
		return txStatusFrom(status)
	}

	status, err = m.gateway.TransactionStatus(ctx, sig)
	if err != nil {
		if chain.IsInvalidParam(err) {
			return &types.TxStatus{Success: false, Status: "invalid", Message: "invalid transaction signature format"}
		}
		return &types.TxStatus{Success: false, Status: "error", Message: fmt.Sprintf("failed to check transaction status: %v", err)}
	}
	if !status.Found {
		return &types.TxStatus{Success: false, Status: "not_found", Message: "transaction not found"}
	}
	return txStatusFrom(status)
}

func txStatusFrom(status *chain.SignatureStatus) *types.TxStatus {
	if status.TxErr != nil {
		return &types.TxStatus{Success: false, Status: "failed", Message: fmt.Sprintf("transaction failed: %v", status.TxErr)}
	}
	conf := string(status.Confirmation)
	if conf == "" {
		conf = "processed"
	}
	if status.Confirmed() {
		return &types.TxStatus{Success: true, Status: conf, Message: fmt.Sprintf("transaction %s", conf)}
	}
	return &types.TxStatus{Success: false, Status: conf, Message: fmt.Sprintf("transaction still processing: %s", conf)}
}

// Payment returns the registered payment for an address.
func (m *Manager) Payment(address string) (*types.Payment, error) {
	return m.store.Get(address)
}

// Payments returns a snapshot of every registered payment.
func (m *Manager) Payments() []*types.Payment {
	return m.store.All()
}

// Close releases the chain gateway.
func (m *Manager) Close() {
	m.gateway.Close()
}

// persist writes a mutated payment back through the store so a
// copy-semantics backend keeps the transition. Called with the
// payment's address lock held.
func (m *Manager) persist(p *types.Payment) {
	if err := m.store.Put(p); err != nil {
		m.log.Error("failed to persist payment", logger.Fields{
			"address": p.Address.String(),
			"error":   err.Error(),
		})
	}
}

func (m *Manager) labels() map[string]string {
	return map[string]string{"network": m.cfg.Network}
}

// addressLocks hands out one mutex per payment address.
type addressLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *addressLocks) lock(address string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	lk, ok := l.locks[address]
	if !ok {
		lk = &sync.Mutex{}
		l.locks[address] = lk
	}
	l.mu.Unlock()
	lk.Lock()
	return lk.Unlock
}
