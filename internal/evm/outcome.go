package evm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"evmAdapter/internal/model"
)

// OutcomeEvent is an EVM outcome event with its fields decoded.
type OutcomeEvent struct {
	Method      string
	Source      common.Address
	Target      common.Address
	Logs        []model.EvmLog
	ExitReason  string
	UsedGas     *big.Int
	UsedStorage *big.Int
}

// Succeeded reports whether the variant is Created or Executed.
func (o OutcomeEvent) Succeeded() bool {
	return o.Method == MethodCreated || o.Method == MethodExecuted
}

// IsCreate reports whether the variant is Created or CreatedFailed.
func (o OutcomeEvent) IsCreate() bool {
	return o.Method == MethodCreated || o.Method == MethodCreatedFailed
}

// outcomeLayout gives the data field positions for a variant. Gas and
// storage usage follow the logs and are absent on older runtimes.
type outcomeLayout struct {
	exitReason int
	logs       int
}

var outcomeLayouts = map[string]outcomeLayout{
	MethodCreated:        {exitReason: -1, logs: 2},
	MethodExecuted:       {exitReason: -1, logs: 2},
	MethodCreatedFailed:  {exitReason: 2, logs: 3},
	MethodExecutedFailed: {exitReason: 2, logs: 4},
}

// DecodeOutcome reads the fields of an EVM outcome event.
func DecodeOutcome(event model.EventRecord) (OutcomeEvent, error) {
	layout, ok := outcomeLayouts[event.Method]
	if !ok {
		return OutcomeEvent{}, &UnsupportedEventError{Method: event.Method}
	}
	if len(event.Data) <= layout.logs {
		return OutcomeEvent{}, fmt.Errorf("%s event has %d fields, want at least %d", event.Method, len(event.Data), layout.logs+1)
	}

	outcome := OutcomeEvent{Method: event.Method}

	var err error
	if outcome.Source, err = decodeAddress(event.Data[0]); err != nil {
		return OutcomeEvent{}, fmt.Errorf("decode source: %w", err)
	}
	if outcome.Target, err = decodeAddress(event.Data[1]); err != nil {
		return OutcomeEvent{}, fmt.Errorf("decode target: %w", err)
	}
	if layout.exitReason >= 0 {
		outcome.ExitReason = decodeExitReason(event.Data[layout.exitReason])
	}
	if err := json.Unmarshal(event.Data[layout.logs], &outcome.Logs); err != nil {
		return OutcomeEvent{}, fmt.Errorf("decode logs: %w", err)
	}

	if gasField := layout.logs + 1; len(event.Data) > gasField {
		var used model.Quantity
		if err := json.Unmarshal(event.Data[gasField], &used); err != nil {
			return OutcomeEvent{}, fmt.Errorf("decode used gas: %w", err)
		}
		outcome.UsedGas = used.Big()
	}
	if storageField := layout.logs + 2; len(event.Data) > storageField {
		var used model.Quantity
		if err := json.Unmarshal(event.Data[storageField], &used); err != nil {
			return OutcomeEvent{}, fmt.Errorf("decode used storage: %w", err)
		}
		outcome.UsedStorage = used.Big()
	}

	return outcome, nil
}

func decodeAddress(raw json.RawMessage) (common.Address, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(text) {
		return common.Address{}, fmt.Errorf("invalid address: %s", text)
	}
	return common.HexToAddress(text), nil
}

// decodeExitReason renders the exit reason the way the chain prints it:
// plain strings unquoted, enum objects as compact JSON.
func decodeExitReason(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
