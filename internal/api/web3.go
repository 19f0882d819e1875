package api

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"evmAdapter/internal/jsonrpc"
)

// NodeInfo holds the static identity values reported to clients.
type NodeInfo struct {
	ClientVersion  string
	NetworkVersion string
	ChainID        uint64
}

// Web3Router serves the identity methods that need no chain access.
func Web3Router(info NodeInfo) *jsonrpc.MethodRouter {
	chainID := hexutil.EncodeUint64(info.ChainID)
	return jsonrpc.NewMethodRouter("web3").
		Handle("web3_clientVersion", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			return info.ClientVersion, nil
		}).
		Handle("net_version", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			return info.NetworkVersion, nil
		}).
		Handle("eth_chainId", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			return chainID, nil
		})
}
