package evm

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"evmAdapter/internal/model"
)

// Bloom filters are not computed until the chain exposes them; receipts carry
// an all-zero bloom.
var emptyLogsBloom = hexutil.Encode(types.Bloom{}.Bytes())

// SynthesizeReceipt builds the partial receipt for an EVM outcome event.
func SynthesizeReceipt(event model.EventRecord) (model.PartialTransactionReceipt, error) {
	outcome, err := DecodeOutcome(event)
	if err != nil {
		return model.PartialTransactionReceipt{}, err
	}
	return ReceiptFromOutcome(outcome), nil
}

// ReceiptFromOutcome maps a decoded outcome onto the receipt fields.
func ReceiptFromOutcome(outcome OutcomeEvent) model.PartialTransactionReceipt {
	gasUsed := big.NewInt(0)
	if outcome.UsedGas != nil {
		gasUsed.Set(outcome.UsedGas)
	}

	var status uint64
	if outcome.Succeeded() {
		status = 1
	}

	receipt := model.PartialTransactionReceipt{
		From:              lowerHex(outcome.Source.Hex()),
		Logs:              PartialLogs(outcome.Logs),
		LogsBloom:         emptyLogsBloom,
		Byzantium:         false,
		Type:              0,
		CumulativeGasUsed: big.NewInt(0),
		GasUsed:           gasUsed,
		Status:            &status,
	}

	target := lowerHex(outcome.Target.Hex())
	if outcome.IsCreate() {
		receipt.ContractAddress = &target
	} else {
		receipt.To = &target
	}
	if !outcome.Succeeded() {
		reason := outcome.ExitReason
		receipt.ExitReason = &reason
	}

	return receipt
}

// PartialLogs converts raw EVM logs, numbering them from zero within the
// transaction.
func PartialLogs(logs []model.EvmLog) []model.PartialLog {
	out := make([]model.PartialLog, 0, len(logs))
	for i, log := range logs {
		topics := make([]string, 0, len(log.Topics))
		for _, topic := range log.Topics {
			topics = append(topics, topic.Hex())
		}
		out = append(out, model.PartialLog{
			Removed:  false,
			Address:  lowerHex(log.Address.Hex()),
			Data:     lowerHex(hexutil.Encode(log.Data)),
			Topics:   topics,
			LogIndex: uint(i),
		})
	}
	return out
}

func lowerHex(value string) string {
	return strings.ToLower(value)
}
