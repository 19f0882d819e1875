package model

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Phase tells when an event was emitted: inside an extrinsic or during block
// finalization.
type Phase struct {
	ApplyExtrinsic bool   `json:"apply_extrinsic"`
	ExtrinsicIndex uint32 `json:"extrinsic_index"`
}

func ApplyExtrinsicPhase(index uint32) Phase {
	return Phase{ApplyExtrinsic: true, ExtrinsicIndex: index}
}

// EventRecord is one chain-native event. Data holds the ordered event fields
// as emitted by the chain; their meaning depends on Section and Method.
type EventRecord struct {
	Phase   Phase             `json:"phase"`
	Section string            `json:"section"`
	Method  string            `json:"method"`
	Data    []json.RawMessage `json:"data"`
}

// EvmLog is a raw log entry carried by an EVM outcome event.
type EvmLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

// Block groups a block's extrinsics and events.
type Block struct {
	Hash       common.Hash       `json:"hash"`
	Number     uint64            `json:"number"`
	Extrinsics []ExtrinsicRecord `json:"extrinsics"`
	Events     []EventRecord     `json:"events"`
}
