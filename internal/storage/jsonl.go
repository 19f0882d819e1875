package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"evmAdapter/internal/model"
)

const maxBlockLine = 64 * 1024 * 1024

// JsonlStore keeps blocks in a JSONL file, one block per line. It serves
// offline debugging and fixtures; the file is re-read on every lookup.
type JsonlStore struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStore(path string) *JsonlStore {
	return &JsonlStore{path: path}
}

// PutBlocks appends blocks as JSON lines.
func (s *JsonlStore) PutBlocks(blocks []model.Block) error {
	if len(blocks) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, block := range blocks {
		line, err := json.Marshal(block)
		if err != nil {
			return fmt.Errorf("marshal block: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write block: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

func (s *JsonlStore) BlockData(ctx context.Context, blockHash common.Hash) (*model.Block, error) {
	var found *model.Block
	err := s.scan(ctx, func(block *model.Block) bool {
		if block.Hash == blockHash {
			found = block
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("block %s: %w", blockHash.Hex(), ErrNotFound)
	}
	return found, nil
}

func (s *JsonlStore) FindBlockByExtrinsicHash(ctx context.Context, extrinsicHash common.Hash) (common.Hash, error) {
	var found *common.Hash
	err := s.scan(ctx, func(block *model.Block) bool {
		for _, extrinsic := range block.Extrinsics {
			if extrinsic.Hash == extrinsicHash {
				hash := block.Hash
				found = &hash
				return false
			}
		}
		return true
	})
	if err != nil {
		return common.Hash{}, err
	}
	if found == nil {
		return common.Hash{}, fmt.Errorf("extrinsic %s: %w", extrinsicHash.Hex(), ErrNotFound)
	}
	return *found, nil
}

// scan calls fn for each block in file order until fn returns false.
func (s *JsonlStore) scan(ctx context.Context, fn func(*model.Block) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open blocks file: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	for lineNo := 1; ; lineNo++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := reader.ReadBytes('\n')
		if len(line) > maxBlockLine {
			return fmt.Errorf("blocks file line %d too long", lineNo)
		}
		if len(line) > 0 && len(trimNewline(line)) > 0 {
			var block model.Block
			if uerr := json.Unmarshal(line, &block); uerr != nil {
				return fmt.Errorf("decode block at line %d: %w", lineNo, uerr)
			}
			if !fn(&block) {
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read blocks file: %w", err)
		}
	}
}

func trimNewline(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
