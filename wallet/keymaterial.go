package wallet

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/esimpay/solsweep/types"
)

// Wallet exports in the wild come in several encodings. Each strategy
// either yields raw key bytes or a specific failure reason; failures are
// aggregated so a bad key reports every format that was tried.
type decodeStrategy struct {
	name   string
	decode func(material string) ([]byte, error)
}

var strategies = []decodeStrategy{
	{name: "byte array", decode: decodeByteArray},
	{name: "base58", decode: decodeBase58},
	{name: "hex", decode: decodeHex},
}

// ParseKeyMaterial decodes private signing material supplied as a JSON
// byte array, base58 text or hex text, in that order. The first decode
// that yields a structurally valid ed25519 keypair wins.
func ParseKeyMaterial(material string) (solana.PrivateKey, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, &types.Error{Code: types.ErrKeyMaterial, Message: "empty key material"}
	}

	var failures []string
	for _, s := range strategies {
		raw, err := s.decode(material)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", s.name, err))
			continue
		}
		if len(raw) != ed25519.PrivateKeySize {
			failures = append(failures, fmt.Sprintf("%s: decoded to %d bytes, want %d", s.name, len(raw), ed25519.PrivateKeySize))
			continue
		}
		return solana.PrivateKey(raw), nil
	}

	return nil, &types.Error{
		Code:    types.ErrKeyMaterial,
		Message: fmt.Sprintf("could not parse key material in any supported format: %s", strings.Join(failures, "; ")),
	}
}

// ParseTreasuryKey parses key material and verifies the derived public
// address against the configured treasury address. A mismatch is a hard
// error; the engine never signs with an unverified key.
func ParseTreasuryKey(material, expectedAddress string) (solana.PrivateKey, error) {
	key, err := ParseKeyMaterial(material)
	if err != nil {
		return nil, err
	}
	derived := key.PublicKey().String()
	if derived != expectedAddress {
		return nil, &types.Error{
			Code:    types.ErrKeyMismatch,
			Message: fmt.Sprintf("derived public key %s does not match configured treasury address %s", derived, expectedAddress),
		}
	}
	return key, nil
}

func decodeByteArray(material string) ([]byte, error) {
	if !strings.HasPrefix(material, "[") || !strings.HasSuffix(material, "]") {
		return nil, fmt.Errorf("not a bracketed list")
	}
	var values []int
	if err := json.Unmarshal([]byte(material), &values); err != nil {
		return nil, err
	}
	raw := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("element %d out of byte range: %d", i, v)
		}
		raw[i] = byte(v)
	}
	return raw, nil
}

func decodeBase58(material string) ([]byte, error) {
	return base58.Decode(material)
}

func decodeHex(material string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(material, "0x"))
}
