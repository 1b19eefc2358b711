package chain

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// MockGateway is a configurable in-memory Gateway for tests. Unset
// functions return zero values, so a test only wires the calls it cares
// about.
type MockGateway struct {
	TokenAccountsByOwnerFn func(ctx context.Context, owner, mint solana.PublicKey) ([]TokenAccount, error)
	TokenAccountFn         func(ctx context.Context, account solana.PublicKey) (*TokenAccount, error)
	NativeBalanceFn        func(ctx context.Context, address solana.PublicKey) (uint64, error)
	LatestBlockhashFn      func(ctx context.Context, commitment rpc.CommitmentType) (*Blockhash, error)
	BlockHeightFn          func(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	IsBlockhashValidFn     func(ctx context.Context, hash solana.Hash) (bool, error)
	SubmitTransactionFn    func(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	SignatureStatusFn      func(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)
	TransactionStatusFn    func(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)

	SubmittedTxs []*solana.Transaction
}

var _ Gateway = (*MockGateway)(nil)

func (m *MockGateway) TokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]TokenAccount, error) {
	if m.TokenAccountsByOwnerFn != nil {
		return m.TokenAccountsByOwnerFn(ctx, owner, mint)
	}
	return nil, nil
}

func (m *MockGateway) TokenAccount(ctx context.Context, account solana.PublicKey) (*TokenAccount, error) {
	if m.TokenAccountFn != nil {
		return m.TokenAccountFn(ctx, account)
	}
	return nil, nil
}

func (m *MockGateway) NativeBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	if m.NativeBalanceFn != nil {
		return m.NativeBalanceFn(ctx, address)
	}
	return 0, nil
}

func (m *MockGateway) LatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*Blockhash, error) {
	if m.LatestBlockhashFn != nil {
		return m.LatestBlockhashFn(ctx, commitment)
	}
	return &Blockhash{Hash: solana.Hash{}, LastValidBlockHeight: 1}, nil
}

func (m *MockGateway) BlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	if m.BlockHeightFn != nil {
		return m.BlockHeightFn(ctx, commitment)
	}
	return 0, nil
}

func (m *MockGateway) IsBlockhashValid(ctx context.Context, hash solana.Hash) (bool, error) {
	if m.IsBlockhashValidFn != nil {
		return m.IsBlockhashValidFn(ctx, hash)
	}
	return true, nil
}

func (m *MockGateway) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	m.SubmittedTxs = append(m.SubmittedTxs, tx)
	if m.SubmitTransactionFn != nil {
		return m.SubmitTransactionFn(ctx, tx)
	}
	return solana.Signature{}, errors.New("submit not configured")
}

func (m *MockGateway) SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	if m.SignatureStatusFn != nil {
		return m.SignatureStatusFn(ctx, sig)
	}
	return &SignatureStatus{}, nil
}

func (m *MockGateway) TransactionStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	if m.TransactionStatusFn != nil {
		return m.TransactionStatusFn(ctx, sig)
	}
	return &SignatureStatus{}, nil
}

func (m *MockGateway) Close() {}
