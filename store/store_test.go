package store

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/esimpay/solsweep/types"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	require.Equal(t, 0, s.Len())

	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	p := &types.Payment{ID: "pay-1", Address: key.PublicKey(), Status: types.StatusPending}
	require.NoError(t, s.Put(p))
	require.Equal(t, 1, s.Len())

	got, err := s.Get(p.Address.String())
	require.NoError(t, err)
	require.Same(t, p, got)

	require.Len(t, s.All(), 1)
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get("missing")
	require.Error(t, err)

	var terr *types.Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, types.ErrPaymentNotFound, terr.Code)
}
