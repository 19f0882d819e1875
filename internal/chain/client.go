package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"evmAdapter/internal/model"
)

// maxCachedParents bounds the parent hash cache.
const maxCachedParents = 4096

var errHeaderNotFound = errors.New("header not found")

// Header is the part of a Substrate block header the adapter reads.
type Header struct {
	ParentHash common.Hash `json:"parentHash"`
	Number     string      `json:"number"`
}

// DispatchInfo is the payment_queryInfo result.
type DispatchInfo struct {
	Class      string         `json:"class"`
	PartialFee model.Quantity `json:"partialFee"`
}

// Client wraps a go-ethereum RPC connection to the Substrate node.
type Client struct {
	rpcClient *rpc.Client

	mu          sync.RWMutex
	parentCache map[common.Hash]common.Hash
}

// NewClient creates a new node client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return newClient(rpcClient), nil
}

func newClient(rpcClient *rpc.Client) *Client {
	return &Client{
		rpcClient:   rpcClient,
		parentCache: make(map[common.Hash]common.Hash),
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// Header returns the header of the block with the given hash.
func (c *Client) Header(ctx context.Context, blockHash common.Hash) (*Header, error) {
	var header *Header
	if err := c.rpcClient.CallContext(ctx, &header, "chain_getHeader", blockHash); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("block %s: %w", blockHash.Hex(), errHeaderNotFound)
	}
	return header, nil
}

// ParentHash returns the parent of a block, using an in-memory cache.
// Headers never change once a block is known, so entries never expire.
func (c *Client) ParentHash(ctx context.Context, blockHash common.Hash) (common.Hash, error) {
	c.mu.RLock()
	parent, ok := c.parentCache[blockHash]
	c.mu.RUnlock()
	if ok {
		return parent, nil
	}

	header, err := c.Header(ctx, blockHash)
	if err != nil {
		return common.Hash{}, err
	}

	c.mu.Lock()
	if len(c.parentCache) >= maxCachedParents {
		c.parentCache = make(map[common.Hash]common.Hash)
	}
	c.parentCache[blockHash] = header.ParentHash
	c.mu.Unlock()

	return header.ParentHash, nil
}

// QueryInfo asks the node what the extrinsic would be charged at a block.
func (c *Client) QueryInfo(ctx context.Context, extrinsic hexutil.Bytes, at common.Hash) (*DispatchInfo, error) {
	var info *DispatchInfo
	if err := c.rpcClient.CallContext(ctx, &info, "payment_queryInfo", extrinsic, at); err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("payment_queryInfo returned no result")
	}
	return info, nil
}

// QueryDispatchFee returns the partial fee in native units.
func (c *Client) QueryDispatchFee(ctx context.Context, extrinsic hexutil.Bytes, at common.Hash) (*big.Int, error) {
	info, err := c.QueryInfo(ctx, extrinsic, at)
	if err != nil {
		return nil, err
	}
	return info.PartialFee.Big(), nil
}
