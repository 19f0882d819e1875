package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"evmAdapter/internal/model"
	"evmAdapter/internal/storage"
)

var errStorageDepositUnset = errors.New("storage deposit per byte is not configured")

// Node is the subset of node RPC the source needs.
type Node interface {
	ParentHash(ctx context.Context, blockHash common.Hash) (common.Hash, error)
	QueryDispatchFee(ctx context.Context, extrinsic hexutil.Bytes, at common.Hash) (*big.Int, error)
}

// SourceConfig holds the chain constants and retry policy of a Source.
type SourceConfig struct {
	NativeDecimals        uint8
	StorageDepositPerByte *big.Int
	MaxRetries            int
	RetryBackoff          time.Duration
}

// Source combines the node and the block index into the chain data the RPC
// handlers need. Every upstream call is retried with backoff.
type Source struct {
	node   Node
	store  storage.BlockStore
	cfg    SourceConfig
	logger *zap.Logger
}

func NewSource(node Node, store storage.BlockStore, cfg SourceConfig, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{node: node, store: store, cfg: cfg, logger: logger}
}

func (s *Source) ParentHash(ctx context.Context, blockHash common.Hash) (common.Hash, error) {
	var parent common.Hash
	err := s.retry(ctx, "parent hash", func(ctx context.Context) error {
		var err error
		parent, err = s.node.ParentHash(ctx, blockHash)
		return err
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("parent of %s: %w", blockHash.Hex(), err)
	}
	return parent, nil
}

func (s *Source) QueryDispatchFee(ctx context.Context, extrinsic hexutil.Bytes, at common.Hash) (*big.Int, error) {
	var fee *big.Int
	err := s.retry(ctx, "dispatch fee", func(ctx context.Context) error {
		var err error
		fee, err = s.node.QueryDispatchFee(ctx, extrinsic, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fee, nil
}

// StorageDepositPerByte returns a copy of the configured constant. An unset
// constant is an error rather than zero.
func (s *Source) StorageDepositPerByte(ctx context.Context) (*big.Int, error) {
	if s.cfg.StorageDepositPerByte == nil {
		return nil, errStorageDepositUnset
	}
	return new(big.Int).Set(s.cfg.StorageDepositPerByte), nil
}

func (s *Source) NativeDecimals() uint8 {
	return s.cfg.NativeDecimals
}

// Block returns the indexed extrinsics and events of a block.
func (s *Source) Block(ctx context.Context, blockHash common.Hash) (*model.Block, error) {
	var block *model.Block
	err := s.retry(ctx, "block data", func(ctx context.Context) error {
		var err error
		block, err = s.store.BlockData(ctx, blockHash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// FindExtrinsicBlock returns the hash of the block that includes the
// extrinsic.
func (s *Source) FindExtrinsicBlock(ctx context.Context, extrinsicHash common.Hash) (common.Hash, error) {
	var blockHash common.Hash
	err := s.retry(ctx, "extrinsic block", func(ctx context.Context) error {
		var err error
		blockHash, err = s.store.FindBlockByExtrinsicHash(ctx, extrinsicHash)
		return err
	})
	return blockHash, err
}

func (s *Source) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	attempt := 0
	return withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil && !permanent(err) {
			s.logger.Warn("chain query failed",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	})
}
