package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"evmAdapter/internal/model"
	"evmAdapter/internal/storage"
)

// Store reads decoded blocks from the chain index database. Hashes are
// stored as lower-case 0x hex text.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// BlockData loads a block's extrinsics and events in chain order.
func (s *Store) BlockData(ctx context.Context, blockHash common.Hash) (*model.Block, error) {
	block := &model.Block{Hash: blockHash}
	key := hashKey(blockHash)

	rows, err := s.pool.Query(ctx, `
		SELECT block_number, idx, hash, section, method, args, nonce, raw
		FROM extrinsics
		WHERE block_hash = $1
		ORDER BY idx
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query extrinsics: %w", err)
	}
	extrinsics, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ExtrinsicRecord, error) {
		var (
			number  int64
			index   int32
			hash    string
			section string
			method  string
			args    []byte
			nonce   int64
			raw     string
		)
		if err := row.Scan(&number, &index, &hash, &section, &method, &args, &nonce, &raw); err != nil {
			return model.ExtrinsicRecord{}, err
		}
		block.Number = uint64(number)
		return decodeExtrinsic(index, hash, section, method, args, nonce, raw)
	})
	if err != nil {
		return nil, fmt.Errorf("scan extrinsics: %w", err)
	}
	if len(extrinsics) == 0 {
		return nil, fmt.Errorf("block %s: %w", blockHash.Hex(), storage.ErrNotFound)
	}
	block.Extrinsics = extrinsics

	rows, err = s.pool.Query(ctx, `
		SELECT phase_extrinsic, section, method, data
		FROM events
		WHERE block_hash = $1
		ORDER BY idx
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.EventRecord, error) {
		var (
			phase   *int64
			section string
			method  string
			data    []byte
		)
		if err := row.Scan(&phase, &section, &method, &data); err != nil {
			return model.EventRecord{}, err
		}
		return decodeEvent(phase, section, method, data)
	})
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	block.Events = events

	return block, nil
}

// FindBlockByExtrinsicHash returns the latest block including the extrinsic.
func (s *Store) FindBlockByExtrinsicHash(ctx context.Context, extrinsicHash common.Hash) (common.Hash, error) {
	var blockHash string
	row := s.pool.QueryRow(ctx, `
		SELECT block_hash FROM extrinsics
		WHERE hash = $1
		ORDER BY block_number DESC
		LIMIT 1
	`, hashKey(extrinsicHash))
	if err := row.Scan(&blockHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.Hash{}, fmt.Errorf("extrinsic %s: %w", extrinsicHash.Hex(), storage.ErrNotFound)
		}
		return common.Hash{}, err
	}
	return common.HexToHash(blockHash), nil
}

func hashKey(hash common.Hash) string {
	return hexutil.Encode(hash.Bytes())
}

func decodeExtrinsic(index int32, hash, section, method string, args []byte, nonce int64, raw string) (model.ExtrinsicRecord, error) {
	record := model.ExtrinsicRecord{
		Index:   uint32(index),
		Hash:    common.HexToHash(hash),
		Section: section,
		Method:  method,
		Nonce:   uint64(nonce),
	}
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &record.Args); err != nil {
			return model.ExtrinsicRecord{}, fmt.Errorf("extrinsic %d: %w", index, err)
		}
	}
	if raw != "" {
		decoded, err := hexutil.Decode(raw)
		if err != nil {
			return model.ExtrinsicRecord{}, fmt.Errorf("extrinsic %d raw: %w", index, err)
		}
		record.Raw = decoded
	}
	return record, nil
}

func decodeEvent(phase *int64, section, method string, data []byte) (model.EventRecord, error) {
	event := model.EventRecord{Section: section, Method: method}
	if phase != nil {
		event.Phase = model.ApplyExtrinsicPhase(uint32(*phase))
	}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &event.Data); err != nil {
			return model.EventRecord{}, fmt.Errorf("event %s.%s data: %w", section, method, err)
		}
	}
	return event, nil
}
