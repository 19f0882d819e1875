package evm

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"evmAdapter/internal/model"
)

var (
	sourceAddr = "0xAaAaAaAaaAaAaAaAAaAaaaAaAaAaAAaAaAAaAaaA"
	targetAddr = "0xBbBbbBbBbbbbBBbbbBbbbbbbBBbbbbBbBbbbBbBB"
)

func buildEvent(t *testing.T, section, method string, phase model.Phase, fields ...interface{}) model.EventRecord {
	t.Helper()

	data := make([]json.RawMessage, 0, len(fields))
	for _, field := range fields {
		raw, err := json.Marshal(field)
		if err != nil {
			t.Fatalf("marshal field: %v", err)
		}
		data = append(data, raw)
	}
	return model.EventRecord{Phase: phase, Section: section, Method: method, Data: data}
}

func evmEvent(t *testing.T, method string, extrinsic uint32, fields ...interface{}) model.EventRecord {
	t.Helper()
	return buildEvent(t, "evm", method, model.ApplyExtrinsicPhase(extrinsic), fields...)
}

func systemEvent(t *testing.T, method string, extrinsic uint32, fields ...interface{}) model.EventRecord {
	t.Helper()
	return buildEvent(t, "system", method, model.ApplyExtrinsicPhase(extrinsic), fields...)
}

func rawLog(address string, data string, topics ...string) map[string]interface{} {
	return map[string]interface{}{
		"address": address,
		"topics":  topics,
		"data":    data,
	}
}

func extrinsicsWithHashes(n int) []model.ExtrinsicRecord {
	out := make([]model.ExtrinsicRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.ExtrinsicRecord{
			Index:   uint32(i),
			Hash:    common.BytesToHash([]byte{0xee, byte(i + 1)}),
			Section: "evm",
			Method:  "call",
		})
	}
	return out
}
