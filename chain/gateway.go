// Package chain is the JSON-RPC boundary of the engine. Gateway covers
// exactly the node surface the reconciliation and sweep paths need; every
// call is a single round trip, independently retried with exponential
// backoff by the Solana implementation.
package chain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TokenAccount is a parsed token holding account.
type TokenAccount struct {
	Address  solana.PublicKey
	Mint     solana.PublicKey
	Owner    solana.PublicKey
	Balance  uint64
	State    string
	Delegate *solana.PublicKey
}

// Token account states as reported by the token program.
const (
	AccountStateUninitialized = "uninitialized"
	AccountStateInitialized   = "initialized"
	AccountStateFrozen        = "frozen"
)

// Blockhash is a transaction-ordering anchor together with the block
// height at which it stops being accepted.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// SignatureStatus is the confirmation state of a submitted transaction.
// Found is false when the node does not know the signature (yet).
type SignatureStatus struct {
	Found        bool
	Slot         uint64
	Confirmation rpc.ConfirmationStatusType
	TxErr        interface{}
}

// Confirmed reports whether the transaction reached at least the
// confirmed commitment tier without an on-chain error.
func (s *SignatureStatus) Confirmed() bool {
	if s == nil || !s.Found || s.TxErr != nil {
		return false
	}
	return s.Confirmation == rpc.ConfirmationStatusConfirmed ||
		s.Confirmation == rpc.ConfirmationStatusFinalized
}

// Gateway executes RPC calls against a blockchain node.
type Gateway interface {
	// TokenAccountsByOwner lists the holding accounts owned by owner for
	// the given mint.
	TokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]TokenAccount, error)

	// TokenAccount fetches and parses a single holding account. Returns
	// (nil, nil) when the account does not exist on chain.
	TokenAccount(ctx context.Context, account solana.PublicKey) (*TokenAccount, error)

	// NativeBalance returns the lamport balance of an address.
	NativeBalance(ctx context.Context, address solana.PublicKey) (uint64, error)

	LatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*Blockhash, error)
	BlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)

	// IsBlockhashValid is best effort; callers may proceed on error.
	IsBlockhashValid(ctx context.Context, hash solana.Hash) (bool, error)

	// SubmitTransaction sends a fully signed transaction with aggressive
	// options (no preflight, node-side retries).
	SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)

	// SignatureStatus polls getSignatureStatuses for one signature.
	SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)

	// TransactionStatus is the getTransaction fallback for signatures
	// that have aged out of the status cache.
	TransactionStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)

	Close()
}
