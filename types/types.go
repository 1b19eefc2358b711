// Package types holds the shared data model for the solsweep payment
// engine: the Payment entity, its status machine, amount units, results
// and configuration.
package types

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a Payment.
type Status string

const (
	StatusPending          Status = "pending"
	StatusCompleted        Status = "completed"
	StatusExpired          Status = "expired"
	StatusFailed           Status = "failed"
	StatusSweepPending     Status = "sweep_pending"
	StatusSwept            Status = "swept"
	StatusSweptConfirmed   Status = "swept_confirmed"
	StatusSweptUnconfirmed Status = "swept_unconfirmed"
	StatusSweepFailed      Status = "sweep_failed"

	// StatusUnderpaid appears only in CheckResult; the payment itself
	// stays pending while funds accumulate.
	StatusUnderpaid Status = "underpaid"
)

// Settled reports whether the required amount has already been observed,
// i.e. a status check is an idempotent no-op.
func (s Status) Settled() bool {
	switch s {
	case StatusCompleted, StatusSwept, StatusSweptConfirmed, StatusSweptUnconfirmed:
		return true
	}
	return false
}

// Sweepable reports whether funds may be moved out in this state.
func (s Status) Sweepable() bool {
	return s == StatusCompleted || s == StatusSweepPending
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusExpired, StatusFailed, StatusSweepFailed, StatusSweptConfirmed, StatusSweptUnconfirmed:
		return true
	}
	return false
}

// BalanceChange is one observed balance increase on a payment address.
type BalanceChange struct {
	Timestamp time.Time `json:"timestamp"`
	Previous  RawAmount `json:"previousBalance"`
	Balance   RawAmount `json:"newBalance"`
	Added     RawAmount `json:"addedAmount"`
}

// Payment is one expected inbound transfer to a single-use address.
//
// The manager serializes all access to a Payment through a per-address
// lock; Payment itself carries no synchronization. Callers outside the
// manager must treat a Payment obtained from a result as a snapshot.
type Payment struct {
	ID string `json:"id"`

	// Amount is the required quantity as supplied by the caller. Call
	// sites populate it in either display tokens or raw units; the
	// reconciliation engine disambiguates via UnitResolver.
	Amount decimal.Decimal `json:"amount"`

	Address    solana.PublicKey  `json:"address"`
	PrivateKey solana.PrivateKey `json:"-"`

	UserID      string `json:"userId,omitempty"`
	OrderRef    string `json:"orderRef,omitempty"`
	ExternalRef string `json:"externalRef,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`

	Status      Status `json:"status"`
	TxSignature string `json:"transactionSignature,omitempty"`

	// TokenAccount is the on-chain holding account discovered for this
	// address and the configured mint. Zero until discovery.
	TokenAccount solana.PublicKey `json:"tokenAccount"`

	// AccumulatedBalance is the highest raw balance observed so far.
	// It never decreases.
	AccumulatedBalance RawAmount       `json:"accumulatedBalance"`
	History            []BalanceChange `json:"paymentHistory,omitempty"`

	// Fulfilled guards the downstream order submission so retries of the
	// status check cannot trigger it twice.
	Fulfilled     bool   `json:"fulfilled"`
	FulfillmentID string `json:"fulfillmentId,omitempty"`
}

// Expired reports whether the payment window has closed.
func (p *Payment) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// TimeRemaining returns how long the payment window stays open, zero once
// expired.
func (p *Payment) TimeRemaining(now time.Time) time.Duration {
	if p.Expired(now) {
		return 0
	}
	return p.ExpiresAt.Sub(now)
}

// UpdateBalance records a newly observed raw balance. Only a strict
// increase is recorded; equal or lower observations are ignored so the
// accumulated balance stays monotonic. Returns true when a history entry
// was appended.
func (p *Payment) UpdateBalance(now time.Time, balance RawAmount) bool {
	if balance <= p.AccumulatedBalance {
		return false
	}
	p.History = append(p.History, BalanceChange{
		Timestamp: now,
		Previous:  p.AccumulatedBalance,
		Balance:   balance,
		Added:     balance - p.AccumulatedBalance,
	})
	p.AccumulatedBalance = balance
	return true
}

// MarkFulfilled flags the payment as handed off to the downstream order
// API. Returns false when it was already fulfilled.
func (p *Payment) MarkFulfilled(orderID string) bool {
	if p.Fulfilled {
		return false
	}
	p.Fulfilled = true
	p.FulfillmentID = orderID
	return true
}

// MarshalJSON includes the hex-encoded private key so a durable store can
// round-trip the record. Treat serialized payments as secrets.
func (p Payment) MarshalJSON() ([]byte, error) {
	type alias Payment
	return json.Marshal(struct {
		alias
		PrivateKeyHex string `json:"privateKey,omitempty"`
	}{
		alias:         alias(p),
		PrivateKeyHex: hex.EncodeToString(p.PrivateKey),
	})
}

// UnmarshalJSON restores a serialized payment, including its key material.
func (p *Payment) UnmarshalJSON(data []byte) error {
	type alias Payment
	var aux struct {
		alias
		PrivateKeyHex string `json:"privateKey,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Payment(aux.alias)
	if aux.PrivateKeyHex != "" {
		raw, err := hex.DecodeString(aux.PrivateKeyHex)
		if err != nil {
			return err
		}
		p.PrivateKey = solana.PrivateKey(raw)
	}
	return nil
}

// CheckResult is the outcome of a single status check. Pending, underpaid
// and expired are first-class outcomes, not errors.
type CheckResult struct {
	Success bool   `json:"success"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`

	// Set on underpaid outcomes so the caller can prompt for a top-up.
	AmountPaid      decimal.Decimal `json:"amountPaid"`
	AmountRemaining decimal.Decimal `json:"amountRemaining"`

	ExpiresIn time.Duration   `json:"expiresIn,omitempty"`
	History   []BalanceChange `json:"paymentHistory,omitempty"`
	Payment   *Payment        `json:"payment,omitempty"`
}

// SweepResult is the outcome of a sweep or sweep-and-confirm call.
type SweepResult struct {
	Success   bool   `json:"success"`
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
	Signature string `json:"transactionSignature,omitempty"`

	AmountRaw RawAmount       `json:"amountRaw,omitempty"`
	Amount    decimal.Decimal `json:"amountDisplay"`
	Overpaid  decimal.Decimal `json:"overpaid"`

	// NeedsRetry marks the stale-blockhash path: the payment moved to
	// sweep_pending and a later re-sweep is expected.
	NeedsRetry bool `json:"needsRetry,omitempty"`
}

// TxStatus is the outcome of a standalone transaction-status lookup.
type TxStatus struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Error is a typed engine error with a machine-readable code.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Error codes.
const (
	ErrPaymentNotFound = "PAYMENT_NOT_FOUND"
	ErrInvalidState    = "INVALID_STATE"
	ErrConfigError     = "CONFIG_ERROR"
	ErrKeyMaterial     = "KEY_MATERIAL_ERROR"
	ErrKeyMismatch     = "KEY_MISMATCH"
	ErrNetworkError    = "NETWORK_ERROR"
	ErrStaleBlockhash  = "STALE_BLOCKHASH"
	ErrNothingToSweep  = "NOTHING_TO_SWEEP"
	ErrAccountInvalid  = "ACCOUNT_INVALID"
)
