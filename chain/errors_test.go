package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/require"
)

func TestIsBlockhashNotFound(t *testing.T) {
	require.False(t, IsBlockhashNotFound(nil))
	require.False(t, IsBlockhashNotFound(errors.New("connection refused")))

	rpcErr := &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"}
	require.True(t, IsBlockhashNotFound(rpcErr))
	require.True(t, IsBlockhashNotFound(fmt.Errorf("sending transaction: %w", rpcErr)))
	require.True(t, IsBlockhashNotFound(errors.New("BlockhashNotFound")))
}

func TestIsInvalidParam(t *testing.T) {
	require.False(t, IsInvalidParam(errors.New("timeout")))
	require.True(t, IsInvalidParam(&jsonrpc.RPCError{Code: -32602, Message: "Invalid param: WrongSize"}))
}

func TestIsRPCError(t *testing.T) {
	require.False(t, IsRPCError(errors.New("timeout")))
	require.True(t, IsRPCError(&jsonrpc.RPCError{Code: -32005, Message: "node is behind"}))
}
