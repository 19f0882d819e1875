package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"evmAdapter/internal/model"
)

// FeeSource supplies the chain data needed to price gas.
type FeeSource interface {
	ParentHash(ctx context.Context, blockHash common.Hash) (common.Hash, error)
	QueryDispatchFee(ctx context.Context, extrinsic hexutil.Bytes, at common.Hash) (*big.Int, error)
	StorageDepositPerByte(ctx context.Context) (*big.Int, error)
	NativeDecimals() uint8
}

// DefaultGasPrice is returned when the event carries no gas usage.
var DefaultGasPrice = big.NewInt(1)

// HasGasInfo reports whether the event data ends with used gas and used
// storage fields. Failed variants carry an extra exit reason field, so five
// fields are only enough for Created and Executed.
func HasGasInfo(event model.EventRecord) bool {
	n := len(event.Data)
	if n > 5 {
		return true
	}
	return n == 5 && (event.Method == MethodCreated || event.Method == MethodExecuted)
}

// ComputeEffectiveGasPrice derives the price per gas unit that reproduces the
// fee the chain charged for the extrinsic.
func ComputeEffectiveGasPrice(ctx context.Context, fees FeeSource, event model.EventRecord, blockHash common.Hash, extrinsic model.ExtrinsicRecord) (*big.Int, error) {
	if !HasGasInfo(event) {
		return new(big.Int).Set(DefaultGasPrice), nil
	}

	n := len(event.Data)
	var usedGas, usedStorage model.Quantity
	if err := usedGas.UnmarshalJSON(event.Data[n-2]); err != nil {
		return nil, fmt.Errorf("decode used gas: %w", err)
	}
	if err := usedStorage.UnmarshalJSON(event.Data[n-1]); err != nil {
		return nil, fmt.Errorf("decode used storage: %w", err)
	}
	if usedGas.Sign() <= 0 {
		return new(big.Int).Set(DefaultGasPrice), nil
	}

	// The fee is queried against the parent block so it reflects the state
	// before the extrinsic ran.
	parentHash, err := fees.ParentHash(ctx, blockHash)
	if err != nil {
		return nil, fmt.Errorf("get parent hash: %w", err)
	}
	partialFee, err := fees.QueryDispatchFee(ctx, extrinsic.Raw, parentHash)
	if err != nil {
		return nil, fmt.Errorf("query dispatch fee: %w", err)
	}

	txFee := NativeToEth(partialFee, fees.NativeDecimals())

	if usedStorage.Sign() > 0 {
		perByte, err := fees.StorageDepositPerByte(ctx)
		if err != nil {
			return nil, fmt.Errorf("get storage deposit: %w", err)
		}
		storageFee := new(big.Int).Mul(usedStorage.Big(), perByte)
		txFee.Add(txFee, storageFee)
	}

	return txFee.Quo(txFee, usedGas.Big()), nil
}
