// Package wallet covers key generation for payment addresses and parsing
// of the treasury's signing material.
package wallet

import "github.com/gagliardetto/solana-go"

// Issuer mints a fresh keypair per payment. It exists as an interface so
// tests can substitute a deterministic source.
type Issuer interface {
	NewKeypair() (solana.PublicKey, solana.PrivateKey, error)
}

// RandomIssuer issues random ed25519 keypairs. Address collision from
// random generation is treated as negligible and not defended against.
type RandomIssuer struct{}

func (RandomIssuer) NewKeypair() (solana.PublicKey, solana.PrivateKey, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	return key.PublicKey(), key, nil
}
