package chain

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/esimpay/solsweep/logger"
	"github.com/esimpay/solsweep/retry"
	"github.com/esimpay/solsweep/types"
)

// SolanaGateway implements Gateway against a Solana JSON-RPC node.
// Transport failures are retried with exponential backoff; structured RPC
// errors are returned as-is (they are definitive), except for the
// stale-blockhash class on submission which stays retryable.
type SolanaGateway struct {
	endpoint string
	client   *rpc.Client
	attempts int
	backoff  retry.Backoff
	log      logger.Logger
}

var _ Gateway = (*SolanaGateway)(nil)

// NewSolanaGateway creates a gateway for the configured endpoint.
func NewSolanaGateway(cfg *types.Config, log logger.Logger) *SolanaGateway {
	return &SolanaGateway{
		endpoint: cfg.RPCEndpoint,
		client:   rpc.New(cfg.RPCEndpoint),
		attempts: cfg.RPCAttempts,
		backoff:  retry.Exponential(cfg.RPCRetryDelay),
		log:      log,
	}
}

func (g *SolanaGateway) TokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]TokenAccount, error) {
	out, err := retry.DoValue(ctx, g.attempts, g.backoff, func(ctx context.Context) (*rpc.GetTokenAccountsResult, error) {
		return g.client.GetTokenAccountsByOwner(ctx,
			owner,
			&rpc.GetTokenAccountsConfig{Mint: &mint},
			&rpc.GetTokenAccountsOpts{
				Commitment: rpc.CommitmentConfirmed,
				Encoding:   solana.EncodingBase64,
			},
		)
	})
	if err != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner: %w", err)
	}

	accounts := make([]TokenAccount, 0, len(out.Value))
	for _, raw := range out.Value {
		parsed, err := parseTokenAccount(&raw.Account)
		if err != nil {
			g.log.Warn("skipping undecodable token account", logger.Fields{
				"account": raw.Pubkey.String(),
				"error":   err.Error(),
			})
			continue
		}
		parsed.Address = raw.Pubkey
		accounts = append(accounts, *parsed)
	}
	return accounts, nil
}

func (g *SolanaGateway) TokenAccount(ctx context.Context, account solana.PublicKey) (*TokenAccount, error) {
	out, err := retry.DoValue(ctx, g.attempts, g.backoff, func(ctx context.Context) (*rpc.GetAccountInfoResult, error) {
		res, err := g.client.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingBase64,
		})
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, retry.Permanent(err)
		}
		return res, err
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo: %w", err)
	}

	parsed, err := parseTokenAccount(out.Value)
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrAccountInvalid,
			Message: fmt.Sprintf("account %s is not a token account: %v", account, err),
		}
	}
	parsed.Address = account
	return parsed, nil
}

func (g *SolanaGateway) NativeBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	out, err := retry.DoValue(ctx, g.attempts, g.backoff, func(ctx context.Context) (*rpc.GetBalanceResult, error) {
		return g.client.GetBalance(ctx, address, rpc.CommitmentConfirmed)
	})
	if err != nil {
		return 0, fmt.Errorf("getBalance: %w", err)
	}
	return out.Value, nil
}

func (g *SolanaGateway) LatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*Blockhash, error) {
	out, err := retry.DoValue(ctx, g.attempts, g.backoff, func(ctx context.Context) (*rpc.GetLatestBlockhashResult, error) {
		return g.client.GetLatestBlockhash(ctx, commitment)
	})
	if err != nil {
		return nil, fmt.Errorf("getLatestBlockhash: %w", err)
	}
	return &Blockhash{
		Hash:                 out.Value.Blockhash,
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
	}, nil
}

func (g *SolanaGateway) BlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	return retry.DoValue(ctx, g.attempts, g.backoff, func(ctx context.Context) (uint64, error) {
		return g.client.GetBlockHeight(ctx, commitment)
	})
}

func (g *SolanaGateway) IsBlockhashValid(ctx context.Context, hash solana.Hash) (bool, error) {
	out, err := g.client.IsBlockhashValid(ctx, hash, rpc.CommitmentProcessed)
	if err != nil {
		return false, fmt.Errorf("isBlockhashValid: %w", err)
	}
	return out.Value, nil
}

func (g *SolanaGateway) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	maxRetries := uint(5)
	return retry.DoValue(ctx, g.attempts, g.backoff, func(ctx context.Context) (solana.Signature, error) {
		sig, err := g.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			// Preflight simulation is skipped so a blockhash going stale
			// between fetch and submit surfaces as a node-side error we
			// can classify, not a client-side simulation failure.
			SkipPreflight:       true,
			MaxRetries:          &maxRetries,
			PreflightCommitment: rpc.CommitmentProcessed,
		})
		if err != nil && IsRPCError(err) && !IsBlockhashNotFound(err) {
			return sig, retry.Permanent(err)
		}
		return sig, err
	})
}

func (g *SolanaGateway) SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	out, err := retry.DoValue(ctx, g.attempts, g.backoff, func(ctx context.Context) (*rpc.GetSignatureStatusesResult, error) {
		return g.client.GetSignatureStatuses(ctx, false, sig)
	})
	if err != nil {
		return nil, fmt.Errorf("getSignatureStatuses: %w", err)
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return &SignatureStatus{}, nil
	}
	st := out.Value[0]
	return &SignatureStatus{
		Found:        true,
		Slot:         st.Slot,
		Confirmation: st.ConfirmationStatus,
		TxErr:        st.Err,
	}, nil
}

func (g *SolanaGateway) TransactionStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	out, err := retry.DoValue(ctx, g.attempts, g.backoff, func(ctx context.Context) (*rpc.GetTransactionResult, error) {
		res, err := g.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Commitment: rpc.CommitmentConfirmed,
		})
		if errors.Is(err, rpc.ErrNotFound) || IsInvalidParam(err) {
			return nil, retry.Permanent(err)
		}
		return res, err
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return &SignatureStatus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getTransaction: %w", err)
	}
	status := &SignatureStatus{
		Found: true,
		Slot:  out.Slot,
		// Present at confirmed commitment means at least confirmed.
		Confirmation: rpc.ConfirmationStatusConfirmed,
	}
	if out.Meta != nil {
		status.TxErr = out.Meta.Err
	}
	return status, nil
}

func (g *SolanaGateway) Close() {}

func parseTokenAccount(acc *rpc.Account) (*TokenAccount, error) {
	if acc == nil {
		return nil, errors.New("empty account")
	}
	data := acc.Data.GetBinary()
	var ta token.Account
	if err := bin.NewBinDecoder(data).Decode(&ta); err != nil {
		return nil, err
	}
	return &TokenAccount{
		Mint:     ta.Mint,
		Owner:    ta.Owner,
		Balance:  ta.Amount,
		State:    accountStateString(ta.State),
		Delegate: ta.Delegate,
	}, nil
}

func accountStateString(s token.AccountState) string {
	switch s {
	case token.Initialized:
		return AccountStateInitialized
	case token.Frozen:
		return AccountStateFrozen
	default:
		return AccountStateUninitialized
	}
}
