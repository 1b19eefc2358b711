// Package sweep moves funds from single-use payment addresses into the
// treasury: transaction construction, submission and confirmation.
package sweep

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/esimpay/solsweep/types"
)

// Builder assembles the signed sweep transaction for a payment.
type Builder struct {
	treasuryTokenAccount solana.PublicKey
}

func NewBuilder(treasuryTokenAccount solana.PublicKey) *Builder {
	return &Builder{treasuryTokenAccount: treasuryTokenAccount}
}

// Build creates a single token-transfer moving amount raw units out of
// the payment's holding account, fee-paid by the treasury and authorized
// by the payment's own key, and signs it with both.
func (b *Builder) Build(
	p *types.Payment,
	treasury solana.PrivateKey,
	amount types.RawAmount,
	blockhash solana.Hash,
) (*solana.Transaction, error) {
	if amount == 0 {
		return nil, &types.Error{Code: types.ErrNothingToSweep, Message: "no tokens to sweep"}
	}

	ix := token.NewTransferInstruction(
		uint64(amount),
		p.TokenAccount,
		b.treasuryTokenAccount,
		p.Address,
		nil,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash,
		solana.TransactionPayer(treasury.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("building sweep transaction: %w", err)
	}

	treasuryPub := treasury.PublicKey()
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		switch {
		case key.Equals(treasuryPub):
			return &treasury
		case key.Equals(p.Address):
			return &p.PrivateKey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("signing sweep transaction: %w", err)
	}
	return tx, nil
}
