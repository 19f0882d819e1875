package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"evmAdapter/internal/model"
)

// Extrinsics carry no Ethereum signature, so transactions report the
// EIP-155 example signature.
const (
	placeholderV = "0x25"
	placeholderR = "0x1b5e176d927f8e9ab405058b2d2457392da3e20f328b16ddabcebc33eaac5fea"
	placeholderS = "0x4ba69724e8f69de52f0125ad8b3c5c2cef33019bac3249e2c0a2192766d1721c"

	nonEvmGas = 2_100_000
)

// ExtrinsicTx is the part of an Ethereum transaction that can be read from
// an extrinsic alone.
type ExtrinsicTx struct {
	Value *big.Int
	Gas   uint64
	Input hexutil.Bytes
	To    *common.Address
	Nonce uint64
	V     string
	R     string
	S     string
}

// ParseExtrinsic reads the Ethereum-facing fields of an extrinsic. Calls
// outside the EVM pallet get fixed defaults.
func ParseExtrinsic(extrinsic model.ExtrinsicRecord) ExtrinsicTx {
	tx := ExtrinsicTx{
		Value: big.NewInt(0),
		Gas:   nonEvmGas,
		Input: hexutil.Bytes{},
		Nonce: extrinsic.Nonce,
		V:     placeholderV,
		R:     placeholderR,
		S:     placeholderS,
	}
	if !extrinsic.IsEvm() {
		return tx
	}

	args := extrinsic.Args
	tx.Value = args.Value.Big()
	tx.Gas = 0
	if args.GasLimit.IsUint64() {
		tx.Gas = args.GasLimit.Uint64()
	}
	if len(args.Input) > 0 {
		tx.Input = args.Input
	}
	if args.Target != nil {
		to := *args.Target
		tx.To = &to
	}
	return tx
}
