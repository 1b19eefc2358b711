package chain

import (
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// IsBlockhashNotFound reports whether err belongs to the stale-anchor
// class of submission errors. These get the sweep_pending treatment
// instead of a hard failure.
func IsBlockhashNotFound(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		if strings.Contains(rpcErr.Message, "Blockhash not found") {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "BlockhashNotFound") || strings.Contains(msg, "Blockhash not found")
}

// IsRPCError reports whether the node returned a structured JSON-RPC
// error, as opposed to a transport failure. Structured errors are
// definitive and not retried.
func IsRPCError(err error) bool {
	var rpcErr *jsonrpc.RPCError
	return errors.As(err, &rpcErr)
}

// IsInvalidParam reports a malformed-request rejection, e.g. a signature
// that is not valid base58.
func IsInvalidParam(err error) bool {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.Code == -32602 || strings.Contains(rpcErr.Message, "Invalid param")
}
