package evm

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"evmAdapter/internal/model"
)

const (
	MethodCreated        = "Created"
	MethodCreatedFailed  = "CreatedFailed"
	MethodExecuted       = "Executed"
	MethodExecutedFailed = "ExecutedFailed"

	methodExtrinsicFailed = "ExtrinsicFailed"
)

// IsOutcomeEvent reports whether the event is one of the four EVM outcome
// events.
func IsOutcomeEvent(event model.EventRecord) bool {
	if !strings.EqualFold(event.Section, "evm") {
		return false
	}
	switch event.Method {
	case MethodCreated, MethodCreatedFailed, MethodExecuted, MethodExecutedFailed:
		return true
	default:
		return false
	}
}

// IdentifyEvmExtrinsics returns the indices of extrinsics that emitted an EVM
// outcome event, in event order. An extrinsic with several EVM events takes a
// single slot. The position in the result is the Ethereum transaction index.
func IdentifyEvmExtrinsics(events []model.EventRecord) []uint32 {
	indexes := make([]uint32, 0)
	for _, event := range events {
		if !event.Phase.ApplyExtrinsic || !IsOutcomeEvent(event) {
			continue
		}
		index := event.Phase.ExtrinsicIndex
		if len(indexes) > 0 && indexes[len(indexes)-1] == index {
			continue
		}
		indexes = append(indexes, index)
	}
	return indexes
}

// FindEvmEvent returns the first EVM outcome event in events. Further EVM
// events of the same extrinsic are ignored.
func FindEvmEvent(events []model.EventRecord) (model.EventRecord, bool) {
	for _, event := range events {
		if IsOutcomeEvent(event) {
			return event, true
		}
	}
	return model.EventRecord{}, false
}

// ExtrinsicEvents returns the events applied within the given extrinsic.
func ExtrinsicEvents(events []model.EventRecord, extrinsicIndex uint32) []model.EventRecord {
	out := make([]model.EventRecord, 0)
	for _, event := range events {
		if event.Phase.ApplyExtrinsic && event.Phase.ExtrinsicIndex == extrinsicIndex {
			out = append(out, event)
		}
	}
	return out
}

// Selector picks a transaction inside a block, either by extrinsic hash or
// by Ethereum transaction index.
type Selector struct {
	hash    common.Hash
	index   uint64
	byHash  bool
	display string
}

func HashSelector(hash common.Hash) Selector {
	return Selector{hash: hash, byHash: true, display: hash.Hex()}
}

func IndexSelector(index uint64) Selector {
	return Selector{index: index, display: fmt.Sprintf("%d", index)}
}

// ParseSelector accepts a 32-byte 0x hash or a non-negative integer in
// decimal or 0x quantity form.
func ParseSelector(input string) (Selector, error) {
	text := strings.TrimSpace(input)
	if len(text) == 66 && (strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X")) {
		data, err := hexutil.Decode("0x" + text[2:])
		if err != nil {
			return Selector{}, fmt.Errorf("invalid transaction hash: %s", input)
		}
		return HashSelector(common.BytesToHash(data)), nil
	}
	value, err := model.ParseQuantity(text)
	if err != nil || text == "" {
		return Selector{}, fmt.Errorf("invalid transaction selector: %s", input)
	}
	if value.Sign() < 0 || !value.IsUint64() {
		return Selector{}, fmt.Errorf("transaction index out of range: %s", input)
	}
	return IndexSelector(value.Uint64()), nil
}

func (s Selector) String() string {
	return s.display
}

// ResolveTransactionIdentity maps a selector to the Ethereum identity of an
// EVM extrinsic in a block.
//
// IsExtrinsicFailed is taken from the last event of the whole block, not of
// the selected extrinsic. This only holds while no later event follows the
// failing extrinsic; it is kept as is for compatibility with existing clients.
func ResolveTransactionIdentity(selector Selector, extrinsics []model.ExtrinsicRecord, events []model.EventRecord) (model.TransactionIdentity, error) {
	evmIndexes := IdentifyEvmExtrinsics(events)

	extrinsicIndex := -1
	if selector.byHash {
		for i, extrinsic := range extrinsics {
			if extrinsic.Hash == selector.hash {
				extrinsicIndex = i
				break
			}
		}
	} else if selector.index < uint64(len(evmIndexes)) {
		extrinsicIndex = int(evmIndexes[selector.index])
	}

	if extrinsicIndex < 0 || extrinsicIndex >= len(extrinsics) {
		return model.TransactionIdentity{}, &NotFoundError{Selector: selector.String(), Reason: "transaction hash not found"}
	}

	transactionIndex := -1
	for i, index := range evmIndexes {
		if int(index) == extrinsicIndex {
			transactionIndex = i
			break
		}
	}
	if transactionIndex < 0 {
		return model.TransactionIdentity{}, &NotFoundError{Selector: selector.String(), Reason: "expected extrinsic include evm events"}
	}

	failed := len(events) > 0 && events[len(events)-1].Method == methodExtrinsicFailed

	return model.TransactionIdentity{
		TransactionIndex:  uint(transactionIndex),
		TransactionHash:   extrinsics[extrinsicIndex].Hash,
		ExtrinsicIndex:    uint32(extrinsicIndex),
		IsExtrinsicFailed: failed,
	}, nil
}
