package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PartialLog is one EVM log of a synthesized receipt.
type PartialLog struct {
	Removed  bool     `json:"removed"`
	Address  string   `json:"address"`
	Data     string   `json:"data"`
	Topics   []string `json:"topics"`
	LogIndex uint     `json:"logIndex"`
}

// PartialTransactionReceipt is the receipt part derived from a single EVM
// outcome event. Block and transaction position fields are added by callers.
type PartialTransactionReceipt struct {
	To                *string      `json:"to,omitempty"`
	From              string       `json:"from"`
	Logs              []PartialLog `json:"logs"`
	ContractAddress   *string      `json:"contractAddress,omitempty"`
	LogsBloom         string       `json:"logsBloom"`
	Byzantium         bool         `json:"byzantium"`
	Type              uint64       `json:"type"`
	CumulativeGasUsed *big.Int     `json:"cumulativeGasUsed"`
	GasUsed           *big.Int     `json:"gasUsed"`
	Status            *uint64      `json:"status,omitempty"`
	ExitReason        *string      `json:"exitReason,omitempty"`
}

// TransactionIdentity binds an Ethereum transaction position to the
// extrinsic that carried it.
type TransactionIdentity struct {
	TransactionIndex  uint        `json:"transactionIndex"`
	TransactionHash   common.Hash `json:"transactionHash"`
	ExtrinsicIndex    uint32      `json:"extrinsicIndex"`
	IsExtrinsicFailed bool        `json:"isExtrinsicFailed"`
}
