package storage

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"evmAdapter/internal/model"
)

// ErrNotFound is returned when a block or extrinsic is not indexed.
var ErrNotFound = errors.New("not found")

// BlockStore reads decoded blocks from an index.
type BlockStore interface {
	// BlockData returns the extrinsics and events of a block.
	BlockData(ctx context.Context, blockHash common.Hash) (*model.Block, error)
	// FindBlockByExtrinsicHash returns the hash of the block that includes
	// the extrinsic.
	FindBlockByExtrinsicHash(ctx context.Context, extrinsicHash common.Hash) (common.Hash, error)
}
