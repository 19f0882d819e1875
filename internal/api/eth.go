package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"evmAdapter/internal/evm"
	"evmAdapter/internal/jsonrpc"
	"evmAdapter/internal/model"
	"evmAdapter/internal/storage"
)

// ChainSource is the chain data the eth handlers read.
type ChainSource interface {
	evm.FeeSource
	Block(ctx context.Context, blockHash common.Hash) (*model.Block, error)
	FindExtrinsicBlock(ctx context.Context, extrinsicHash common.Hash) (common.Hash, error)
}

// EthAPI serves the transaction lookups of the eth namespace.
type EthAPI struct {
	source ChainSource
	logger *zap.Logger
}

func NewEthAPI(source ChainSource, logger *zap.Logger) *EthAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EthAPI{source: source, logger: logger}
}

// Router exposes the API as the "eth" router.
func (api *EthAPI) Router() *jsonrpc.MethodRouter {
	return jsonrpc.NewMethodRouter("eth").
		Handle("eth_getTransactionReceipt", api.handleReceipt).
		Handle("eth_getTransactionByHash", api.handleTransactionByHash).
		Handle("eth_getTransactionByBlockHashAndIndex", api.handleTransactionByBlockHashAndIndex).
		Handle("eth_getBlockTransactionCountByHash", api.handleBlockTransactionCount)
}

func (api *EthAPI) handleReceipt(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var hash common.Hash
	if err := jsonrpc.DecodeParams(params, 1, &hash); err != nil {
		return nil, err
	}
	receipt, err := api.GetTransactionReceipt(ctx, hash)
	if receipt == nil || err != nil {
		return nil, err
	}
	return receipt, nil
}

func (api *EthAPI) handleTransactionByHash(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var hash common.Hash
	if err := jsonrpc.DecodeParams(params, 1, &hash); err != nil {
		return nil, err
	}
	tx, err := api.GetTransactionByHash(ctx, hash)
	if tx == nil || err != nil {
		return nil, err
	}
	return tx, nil
}

func (api *EthAPI) handleTransactionByBlockHashAndIndex(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var (
		blockHash common.Hash
		index     hexutil.Uint
	)
	if err := jsonrpc.DecodeParams(params, 2, &blockHash, &index); err != nil {
		return nil, err
	}
	tx, err := api.GetTransactionByBlockHashAndIndex(ctx, blockHash, uint64(index))
	if tx == nil || err != nil {
		return nil, err
	}
	return tx, nil
}

func (api *EthAPI) handleBlockTransactionCount(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var blockHash common.Hash
	if err := jsonrpc.DecodeParams(params, 1, &blockHash); err != nil {
		return nil, err
	}
	count, err := api.GetBlockTransactionCountByHash(ctx, blockHash)
	if count == nil || err != nil {
		return nil, err
	}
	return count, nil
}

// GetTransactionReceipt returns the receipt of an EVM transaction, or nil
// when the index does not know the hash.
func (api *EthAPI) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*RPCReceipt, error) {
	tx, err := api.locateByHash(ctx, hash)
	if tx == nil || err != nil {
		return nil, err
	}
	if tx.identity.IsExtrinsicFailed {
		return nil, &evm.ExtrinsicFailedError{
			TransactionHash: hash.Hex(),
			DispatchError:   dispatchError(tx.block.Events),
		}
	}

	partial, err := evm.SynthesizeReceipt(tx.event)
	if err != nil {
		return nil, err
	}
	gasPrice, err := evm.ComputeEffectiveGasPrice(ctx, api.source, tx.event, tx.block.Hash, tx.extrinsic)
	if err != nil {
		return nil, err
	}
	return formatReceipt(*tx, partial, gasPrice), nil
}

// GetTransactionByHash returns an EVM transaction, or nil when the index does
// not know the hash.
func (api *EthAPI) GetTransactionByHash(ctx context.Context, hash common.Hash) (*RPCTransaction, error) {
	tx, err := api.locateByHash(ctx, hash)
	if tx == nil || err != nil {
		return nil, err
	}
	return api.transaction(ctx, tx)
}

// GetTransactionByBlockHashAndIndex returns the index-th EVM transaction of a
// block, or nil when the block is not indexed or has fewer transactions.
func (api *EthAPI) GetTransactionByBlockHashAndIndex(ctx context.Context, blockHash common.Hash, index uint64) (*RPCTransaction, error) {
	block, err := api.block(ctx, blockHash)
	if block == nil || err != nil {
		return nil, err
	}
	tx, err := locate(block, evm.IndexSelector(index))
	if err != nil {
		var notFound *evm.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return api.transaction(ctx, tx)
}

// GetBlockTransactionCountByHash counts the EVM transactions of a block, or
// returns nil when the block is not indexed.
func (api *EthAPI) GetBlockTransactionCountByHash(ctx context.Context, blockHash common.Hash) (*hexutil.Uint, error) {
	block, err := api.block(ctx, blockHash)
	if block == nil || err != nil {
		return nil, err
	}
	count := hexutil.Uint(len(evm.IdentifyEvmExtrinsics(block.Events)))
	return &count, nil
}

func (api *EthAPI) transaction(ctx context.Context, tx *located) (*RPCTransaction, error) {
	outcome, err := evm.DecodeOutcome(tx.event)
	if err != nil {
		return nil, err
	}
	gasPrice, err := evm.ComputeEffectiveGasPrice(ctx, api.source, tx.event, tx.block.Hash, tx.extrinsic)
	if err != nil {
		return nil, err
	}
	from := hexutil.Encode(outcome.Source.Bytes())
	return formatTransaction(*tx, from, gasPrice), nil
}

func (api *EthAPI) locateByHash(ctx context.Context, hash common.Hash) (*located, error) {
	blockHash, err := api.source.FindExtrinsicBlock(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find block of %s: %w", hash.Hex(), err)
	}
	block, err := api.block(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	if block == nil {
		api.logger.Warn("indexed extrinsic points to a missing block",
			zap.String("extrinsic", hash.Hex()),
			zap.String("block", blockHash.Hex()),
		)
		return nil, nil
	}
	return locate(block, evm.HashSelector(hash))
}

func (api *EthAPI) block(ctx context.Context, blockHash common.Hash) (*model.Block, error) {
	block, err := api.source.Block(ctx, blockHash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load block %s: %w", blockHash.Hex(), err)
	}
	return block, nil
}

func locate(block *model.Block, selector evm.Selector) (*located, error) {
	identity, err := evm.ResolveTransactionIdentity(selector, block.Extrinsics, block.Events)
	if err != nil {
		return nil, err
	}
	event, ok := evm.FindEvmEvent(evm.ExtrinsicEvents(block.Events, identity.ExtrinsicIndex))
	if !ok {
		return nil, &evm.NotFoundError{Selector: selector.String(), Reason: "expected extrinsic include evm events"}
	}
	return &located{
		block:     block,
		identity:  identity,
		extrinsic: block.Extrinsics[identity.ExtrinsicIndex],
		event:     event,
	}, nil
}

// dispatchError renders the dispatch error carried by the block's last
// event, which is the ExtrinsicFailed event when the failure flag is set.
func dispatchError(events []model.EventRecord) string {
	if len(events) == 0 {
		return ""
	}
	last := events[len(events)-1]
	if len(last.Data) == 0 {
		return last.Method
	}
	var text string
	if err := json.Unmarshal(last.Data[0], &text); err == nil {
		return text
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, last.Data[0]); err != nil {
		return string(last.Data[0])
	}
	return buf.String()
}
