package solsweep

import (
	"time"

	"github.com/esimpay/solsweep/chain"
	"github.com/esimpay/solsweep/logger"
	"github.com/esimpay/solsweep/metrics"
	"github.com/esimpay/solsweep/store"
	"github.com/esimpay/solsweep/wallet"
)

type Option func(*Manager)

func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(m *Manager) {
		m.rec = r
	}
}

// WithGateway substitutes the chain gateway, e.g. a mock in tests.
func WithGateway(g chain.Gateway) Option {
	return func(m *Manager) {
		m.gateway = g
	}
}

// WithStore substitutes the payment registry, e.g. a durable store.
func WithStore(s store.Store) Option {
	return func(m *Manager) {
		m.store = s
	}
}

// WithIssuer substitutes the address issuer.
func WithIssuer(i wallet.Issuer) Option {
	return func(m *Manager) {
		m.issuer = i
	}
}

// WithClock substitutes the time source, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}
