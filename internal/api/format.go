package api

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"evmAdapter/internal/evm"
	"evmAdapter/internal/model"
)

// RPCLog is a log entry as returned in eth_getTransactionReceipt.
type RPCLog struct {
	Removed          bool           `json:"removed"`
	Address          string         `json:"address"`
	Data             string         `json:"data"`
	Topics           []string       `json:"topics"`
	LogIndex         hexutil.Uint   `json:"logIndex"`
	BlockHash        common.Hash    `json:"blockHash"`
	BlockNumber      hexutil.Uint64 `json:"blockNumber"`
	TransactionHash  common.Hash    `json:"transactionHash"`
	TransactionIndex hexutil.Uint   `json:"transactionIndex"`
}

// RPCReceipt is the eth_getTransactionReceipt result.
type RPCReceipt struct {
	To                *string        `json:"to"`
	From              string         `json:"from"`
	ContractAddress   *string        `json:"contractAddress"`
	TransactionIndex  hexutil.Uint   `json:"transactionIndex"`
	TransactionHash   common.Hash    `json:"transactionHash"`
	BlockHash         common.Hash    `json:"blockHash"`
	BlockNumber       hexutil.Uint64 `json:"blockNumber"`
	GasUsed           *hexutil.Big   `json:"gasUsed"`
	CumulativeGasUsed *hexutil.Big   `json:"cumulativeGasUsed"`
	EffectiveGasPrice *hexutil.Big   `json:"effectiveGasPrice"`
	LogsBloom         string         `json:"logsBloom"`
	Logs              []RPCLog       `json:"logs"`
	Status            hexutil.Uint64 `json:"status"`
	Type              hexutil.Uint64 `json:"type"`
	ExitReason        *string        `json:"exitReason,omitempty"`
}

// RPCTransaction is the eth_getTransactionBy* result.
type RPCTransaction struct {
	BlockHash        common.Hash     `json:"blockHash"`
	BlockNumber      hexutil.Uint64  `json:"blockNumber"`
	From             string          `json:"from"`
	Gas              hexutil.Uint64  `json:"gas"`
	GasPrice         *hexutil.Big    `json:"gasPrice"`
	Hash             common.Hash     `json:"hash"`
	Input            hexutil.Bytes   `json:"input"`
	Nonce            hexutil.Uint64  `json:"nonce"`
	To               *common.Address `json:"to"`
	TransactionIndex hexutil.Uint    `json:"transactionIndex"`
	Value            *hexutil.Big    `json:"value"`
	V                string          `json:"v"`
	R                string          `json:"r"`
	S                string          `json:"s"`
}

// located is an EVM transaction found in a block.
type located struct {
	block     *model.Block
	identity  model.TransactionIdentity
	extrinsic model.ExtrinsicRecord
	event     model.EventRecord
}

func formatReceipt(tx located, partial model.PartialTransactionReceipt, gasPrice *big.Int) *RPCReceipt {
	logs := make([]RPCLog, 0, len(partial.Logs))
	for _, log := range partial.Logs {
		logs = append(logs, RPCLog{
			Removed:          log.Removed,
			Address:          log.Address,
			Data:             log.Data,
			Topics:           log.Topics,
			LogIndex:         hexutil.Uint(log.LogIndex),
			BlockHash:        tx.block.Hash,
			BlockNumber:      hexutil.Uint64(tx.block.Number),
			TransactionHash:  tx.identity.TransactionHash,
			TransactionIndex: hexutil.Uint(tx.identity.TransactionIndex),
		})
	}

	var status uint64
	if partial.Status != nil {
		status = *partial.Status
	}

	return &RPCReceipt{
		To:                partial.To,
		From:              partial.From,
		ContractAddress:   partial.ContractAddress,
		TransactionIndex:  hexutil.Uint(tx.identity.TransactionIndex),
		TransactionHash:   tx.identity.TransactionHash,
		BlockHash:         tx.block.Hash,
		BlockNumber:       hexutil.Uint64(tx.block.Number),
		GasUsed:           (*hexutil.Big)(partial.GasUsed),
		CumulativeGasUsed: (*hexutil.Big)(partial.CumulativeGasUsed),
		EffectiveGasPrice: (*hexutil.Big)(gasPrice),
		LogsBloom:         partial.LogsBloom,
		Logs:              logs,
		Status:            hexutil.Uint64(status),
		Type:              hexutil.Uint64(partial.Type),
		ExitReason:        partial.ExitReason,
	}
}

func formatTransaction(tx located, from string, gasPrice *big.Int) *RPCTransaction {
	parsed := evm.ParseExtrinsic(tx.extrinsic)
	return &RPCTransaction{
		BlockHash:        tx.block.Hash,
		BlockNumber:      hexutil.Uint64(tx.block.Number),
		From:             from,
		Gas:              hexutil.Uint64(parsed.Gas),
		GasPrice:         (*hexutil.Big)(gasPrice),
		Hash:             tx.identity.TransactionHash,
		Input:            parsed.Input,
		Nonce:            hexutil.Uint64(parsed.Nonce),
		To:               parsed.To,
		TransactionIndex: hexutil.Uint(tx.identity.TransactionIndex),
		Value:            (*hexutil.Big)(parsed.Value),
		V:                parsed.V,
		R:                parsed.R,
		S:                parsed.S,
	}
}
