package evm

import (
	"errors"
	"strings"
	"testing"
)

const (
	topicTransfer = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
	topicOther    = "0x0000000000000000000000000000000000000000000000000000000000000001"
)

func TestSynthesizeReceiptVariants(t *testing.T) {
	noLogs := []interface{}{}
	cases := []struct {
		method     string
		fields     []interface{}
		status     uint64
		create     bool
		exitReason string
	}{
		{MethodCreated, []interface{}{sourceAddr, targetAddr, noLogs, 100, 0}, 1, true, ""},
		{MethodExecuted, []interface{}{sourceAddr, targetAddr, noLogs, 100, 0}, 1, false, ""},
		{MethodCreatedFailed, []interface{}{sourceAddr, targetAddr, map[string]string{"error": "OutOfGas"}, noLogs, 100, 0}, 0, true, `{"error":"OutOfGas"}`},
		{MethodExecutedFailed, []interface{}{sourceAddr, targetAddr, "Revert", "0x08c379a0", noLogs, 100, 0}, 0, false, "Revert"},
	}

	for _, tc := range cases {
		receipt, err := SynthesizeReceipt(evmEvent(t, tc.method, 1, tc.fields...))
		if err != nil {
			t.Fatalf("%s: synthesize: %v", tc.method, err)
		}
		if receipt.Status == nil || *receipt.Status != tc.status {
			t.Fatalf("%s: status mismatch: %v", tc.method, receipt.Status)
		}
		if (receipt.ContractAddress != nil) != tc.create {
			t.Fatalf("%s: contractAddress presence mismatch", tc.method)
		}
		if (receipt.To != nil) == tc.create {
			t.Fatalf("%s: to presence mismatch", tc.method)
		}
		target := receipt.To
		if tc.create {
			target = receipt.ContractAddress
		}
		if *target != strings.ToLower(targetAddr) {
			t.Fatalf("%s: target mismatch: %s", tc.method, *target)
		}
		if receipt.From != strings.ToLower(sourceAddr) {
			t.Fatalf("%s: from mismatch: %s", tc.method, receipt.From)
		}
		if tc.exitReason == "" && receipt.ExitReason != nil {
			t.Fatalf("%s: unexpected exit reason %s", tc.method, *receipt.ExitReason)
		}
		if tc.exitReason != "" && (receipt.ExitReason == nil || *receipt.ExitReason != tc.exitReason) {
			t.Fatalf("%s: exit reason mismatch: %v", tc.method, receipt.ExitReason)
		}
		if receipt.GasUsed.Int64() != 100 || receipt.CumulativeGasUsed.Sign() != 0 {
			t.Fatalf("%s: gas mismatch: %s %s", tc.method, receipt.GasUsed, receipt.CumulativeGasUsed)
		}
		if receipt.Byzantium || receipt.Type != 0 {
			t.Fatalf("%s: byzantium/type mismatch", tc.method)
		}
		if len(receipt.LogsBloom) != 2+512 || strings.Trim(receipt.LogsBloom[2:], "0") != "" {
			t.Fatalf("%s: logs bloom should be 256 zero bytes", tc.method)
		}
	}
}

func TestSynthesizeReceiptCreatedFailedLogs(t *testing.T) {
	logs := []interface{}{
		rawLog("0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC", "0xDEADBEEF", topicTransfer),
		rawLog("0xdDdDddDddDddddDDdDdDDdDDdDDDDDDDdDDDDDDd", "0x", topicTransfer, topicOther),
	}
	event := evmEvent(t, MethodCreatedFailed, 3, sourceAddr, targetAddr, "OutOfFund", logs, 42000, 0)

	receipt, err := SynthesizeReceipt(event)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if len(receipt.Logs) != 2 {
		t.Fatalf("logs length mismatch: %d", len(receipt.Logs))
	}
	for i, log := range receipt.Logs {
		if log.LogIndex != uint(i) {
			t.Fatalf("log %d index mismatch: %d", i, log.LogIndex)
		}
		if log.Removed {
			t.Fatalf("log %d should not be removed", i)
		}
	}
	if receipt.Logs[0].Address != "0xcccccccccccccccccccccccccccccccccccccccc" {
		t.Fatalf("log address should be lower-cased: %s", receipt.Logs[0].Address)
	}
	if receipt.Logs[0].Data != "0xdeadbeef" {
		t.Fatalf("log data should be lower-cased: %s", receipt.Logs[0].Data)
	}
	if len(receipt.Logs[1].Topics) != 2 || receipt.Logs[1].Topics[1] != topicOther {
		t.Fatalf("topics mismatch: %v", receipt.Logs[1].Topics)
	}
}

func TestSynthesizeReceiptLegacyWithoutGas(t *testing.T) {
	receipt, err := SynthesizeReceipt(evmEvent(t, MethodExecuted, 1, sourceAddr, targetAddr, []interface{}{}))
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if receipt.GasUsed == nil || receipt.GasUsed.Sign() != 0 {
		t.Fatalf("missing gas should default to zero: %v", receipt.GasUsed)
	}
}

func TestSynthesizeReceiptUnsupported(t *testing.T) {
	_, err := SynthesizeReceipt(evmEvent(t, "Log", 1, sourceAddr))
	var unsupported *UnsupportedEventError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedEventError, got %v", err)
	}
	if err.Error() != "unsupported event: Log" {
		t.Fatalf("message mismatch: %s", err.Error())
	}
}

func TestSynthesizeReceiptMalformed(t *testing.T) {
	if _, err := SynthesizeReceipt(evmEvent(t, MethodExecuted, 1, sourceAddr, targetAddr)); err == nil {
		t.Fatalf("expected error for missing logs field")
	}
	if _, err := SynthesizeReceipt(evmEvent(t, MethodExecuted, 1, "nope", targetAddr, []interface{}{})); err == nil {
		t.Fatalf("expected error for invalid source")
	}
}
