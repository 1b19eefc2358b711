// Package store is the payment registry. The engine only depends on the
// Store interface, so the in-memory implementation can be replaced by a
// durable one without touching reconciliation or sweep logic.
package store

import (
	"fmt"
	"sync"

	"github.com/esimpay/solsweep/types"
)

// Store registers payments keyed by their base58 address.
type Store interface {
	Put(p *types.Payment) error
	Get(address string) (*types.Payment, error)
	All() []*types.Payment
	Len() int
}

// MemoryStore is a mutex-guarded in-memory Store. Payment records are
// kept after they reach a terminal state; retention is the caller's
// decision.
type MemoryStore struct {
	mu       sync.RWMutex
	payments map[string]*types.Payment
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{payments: make(map[string]*types.Payment)}
}

func (s *MemoryStore) Put(p *types.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.Address.String()] = p
	return nil
}

func (s *MemoryStore) Get(address string) (*types.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[address]
	if !ok {
		return nil, &types.Error{
			Code:    types.ErrPaymentNotFound,
			Message: fmt.Sprintf("no payment registered for address %s", address),
		}
	}
	return p, nil
}

// All returns a snapshot of the registered payments. The slice is safe
// to iterate while other goroutines insert.
func (s *MemoryStore) All() []*types.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, p)
	}
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payments)
}
