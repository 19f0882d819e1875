package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"evmAdapter/internal/evm"
	"evmAdapter/internal/jsonrpc"
	"evmAdapter/internal/model"
	"evmAdapter/internal/storage"
)

const (
	senderHex   = "0xAaAaAaAaaAaAaAaAAaAaaaAaAaAaAAaAaAAaAaaA"
	contractHex = "0xBbBbbBbBbbbbBBbbbBbbbbbbBBbbbbBbBbbbBbBB"
)

var (
	testBlockHash  = common.HexToHash("0xb10c")
	testParentHash = common.HexToHash("0xb10b")
	callTxHash     = common.HexToHash("0xe002")
	createTxHash   = common.HexToHash("0xe003")
	transferHash   = common.HexToHash("0xe001")
)

type fakeSource struct {
	blocks map[common.Hash]*model.Block
	fee    *big.Int
	feeErr error
}

func (f *fakeSource) ParentHash(ctx context.Context, blockHash common.Hash) (common.Hash, error) {
	return testParentHash, nil
}

func (f *fakeSource) QueryDispatchFee(ctx context.Context, extrinsic hexutil.Bytes, at common.Hash) (*big.Int, error) {
	if f.feeErr != nil {
		return nil, f.feeErr
	}
	if at != testParentHash {
		return nil, fmt.Errorf("fee queried at %s", at.Hex())
	}
	return new(big.Int).Set(f.fee), nil
}

func (f *fakeSource) StorageDepositPerByte(ctx context.Context) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeSource) NativeDecimals() uint8 { return evm.NativeDecimals }

func (f *fakeSource) Block(ctx context.Context, blockHash common.Hash) (*model.Block, error) {
	block, ok := f.blocks[blockHash]
	if !ok {
		return nil, fmt.Errorf("block %s: %w", blockHash.Hex(), storage.ErrNotFound)
	}
	return block, nil
}

func (f *fakeSource) FindExtrinsicBlock(ctx context.Context, extrinsicHash common.Hash) (common.Hash, error) {
	for hash, block := range f.blocks {
		for _, extrinsic := range block.Extrinsics {
			if extrinsic.Hash == extrinsicHash {
				return hash, nil
			}
		}
	}
	return common.Hash{}, storage.ErrNotFound
}

func rawFields(t *testing.T, fields ...interface{}) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(fields))
	for _, field := range fields {
		raw, err := json.Marshal(field)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		out = append(out, raw)
	}
	return out
}

// testBlock holds a timestamp inherent, a balance transfer, an EVM call and
// an EVM contract creation.
func testBlock(t *testing.T) *model.Block {
	t.Helper()
	target := common.HexToAddress(contractHex)
	logs := []map[string]interface{}{
		{"address": contractHex, "topics": []string{"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"}, "data": "0x01"},
	}
	return &model.Block{
		Hash:   testBlockHash,
		Number: 77,
		Extrinsics: []model.ExtrinsicRecord{
			{Index: 0, Hash: common.HexToHash("0xe000"), Section: "timestamp", Method: "set"},
			{Index: 1, Hash: transferHash, Section: "balances", Method: "transfer"},
			{
				Index: 2, Hash: callTxHash, Section: "evm", Method: "eth_call", Nonce: 5, Raw: hexutil.Bytes{0x02},
				Args: model.ExtrinsicArgs{Value: model.NewQuantity(10), GasLimit: model.NewQuantity(100000), Target: &target, Input: hexutil.Bytes{0xa9}},
			},
			{
				Index: 3, Hash: createTxHash, Section: "evm", Method: "eth_call", Nonce: 6, Raw: hexutil.Bytes{0x03},
				Args: model.ExtrinsicArgs{GasLimit: model.NewQuantity(500000), Create: true, Input: hexutil.Bytes{0x60, 0x80}},
			},
		},
		Events: []model.EventRecord{
			{Phase: model.ApplyExtrinsicPhase(0), Section: "system", Method: "ExtrinsicSuccess"},
			{Phase: model.ApplyExtrinsicPhase(1), Section: "balances", Method: "Transfer"},
			{Phase: model.ApplyExtrinsicPhase(1), Section: "system", Method: "ExtrinsicSuccess"},
			{Phase: model.ApplyExtrinsicPhase(2), Section: "evm", Method: evm.MethodExecuted, Data: rawFields(t, senderHex, contractHex, logs, 21000, 0)},
			{Phase: model.ApplyExtrinsicPhase(2), Section: "system", Method: "ExtrinsicSuccess"},
			{Phase: model.ApplyExtrinsicPhase(3), Section: "evm", Method: evm.MethodCreatedFailed, Data: rawFields(t, senderHex, contractHex, "OutOfGas", []interface{}{}, 50000, 0)},
			{Phase: model.ApplyExtrinsicPhase(3), Section: "system", Method: "ExtrinsicSuccess"},
		},
	}
}

func newTestAPI(t *testing.T) (*EthAPI, *fakeSource) {
	source := &fakeSource{
		blocks: map[common.Hash]*model.Block{testBlockHash: testBlock(t)},
		fee:    big.NewInt(21_000_000),
	}
	return NewEthAPI(source, nil), source
}

func TestGetTransactionReceipt(t *testing.T) {
	api, _ := newTestAPI(t)

	receipt, err := api.GetTransactionReceipt(context.Background(), callTxHash)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if receipt == nil {
		t.Fatalf("expected receipt")
	}
	if receipt.TransactionIndex != 0 || receipt.BlockNumber != 77 || receipt.BlockHash != testBlockHash {
		t.Fatalf("position mismatch: %+v", receipt)
	}
	if receipt.Status != 1 || receipt.To == nil || *receipt.To != strings.ToLower(contractHex) || receipt.ContractAddress != nil {
		t.Fatalf("outcome mismatch: %+v", receipt)
	}
	if receipt.From != strings.ToLower(senderHex) {
		t.Fatalf("from mismatch: %s", receipt.From)
	}
	if (*big.Int)(receipt.GasUsed).Int64() != 21000 {
		t.Fatalf("gas used mismatch: %s", receipt.GasUsed)
	}
	// 21e6 native units at 12 decimals is 21e12 wei over 21000 gas.
	if (*big.Int)(receipt.EffectiveGasPrice).Int64() != 1_000_000_000 {
		t.Fatalf("gas price mismatch: %s", receipt.EffectiveGasPrice)
	}
	if len(receipt.Logs) != 1 || receipt.Logs[0].TransactionHash != callTxHash || receipt.Logs[0].BlockNumber != 77 {
		t.Fatalf("logs mismatch: %+v", receipt.Logs)
	}
}

func TestGetTransactionReceiptCreatedFailed(t *testing.T) {
	api, _ := newTestAPI(t)

	receipt, err := api.GetTransactionReceipt(context.Background(), createTxHash)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if receipt.TransactionIndex != 1 || receipt.Status != 0 {
		t.Fatalf("receipt mismatch: %+v", receipt)
	}
	if receipt.ContractAddress == nil || receipt.To != nil {
		t.Fatalf("create receipt should set contractAddress only: %+v", receipt)
	}
	if receipt.ExitReason == nil || *receipt.ExitReason != "OutOfGas" {
		t.Fatalf("exit reason mismatch: %v", receipt.ExitReason)
	}
}

func TestGetTransactionReceiptUnknown(t *testing.T) {
	api, _ := newTestAPI(t)

	receipt, err := api.GetTransactionReceipt(context.Background(), common.HexToHash("0xdead"))
	if err != nil || receipt != nil {
		t.Fatalf("unknown hash should give nil receipt, got %v %v", receipt, err)
	}

	_, err = api.GetTransactionReceipt(context.Background(), transferHash)
	var notFound *evm.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("non-evm extrinsic should be not found, got %v", err)
	}
}

func TestGetTransactionReceiptExtrinsicFailed(t *testing.T) {
	api, source := newTestAPI(t)
	block := source.blocks[testBlockHash]
	block.Extrinsics = append(block.Extrinsics, model.ExtrinsicRecord{Index: 4, Hash: common.HexToHash("0xe004"), Section: "utility", Method: "batch"})
	block.Events = append(block.Events, model.EventRecord{
		Phase:   model.ApplyExtrinsicPhase(4),
		Section: "system",
		Method:  "ExtrinsicFailed",
		Data:    rawFields(t, map[string]string{"module": "Evm"}),
	})

	_, err := api.GetTransactionReceipt(context.Background(), callTxHash)
	var failed *evm.ExtrinsicFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected ExtrinsicFailedError, got %v", err)
	}
	if err.Error() != `ExtrinsicFailed: {"module":"Evm"}` {
		t.Fatalf("message mismatch: %s", err.Error())
	}
}

func TestGetTransactionReceiptUpstreamError(t *testing.T) {
	api, source := newTestAPI(t)
	source.feeErr = errors.New("node unavailable")

	_, err := api.GetTransactionReceipt(context.Background(), callTxHash)
	if err == nil || !strings.Contains(err.Error(), "node unavailable") {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestGetTransactionByHash(t *testing.T) {
	api, _ := newTestAPI(t)

	tx, err := api.GetTransactionByHash(context.Background(), callTxHash)
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if tx.Hash != callTxHash || tx.Nonce != 5 || tx.Gas != 100000 || (*big.Int)(tx.Value).Int64() != 10 {
		t.Fatalf("transaction mismatch: %+v", tx)
	}
	if tx.To == nil || *tx.To != common.HexToAddress(contractHex) {
		t.Fatalf("to mismatch: %v", tx.To)
	}
	if tx.From != strings.ToLower(senderHex) || tx.Input.String() != "0xa9" {
		t.Fatalf("from/input mismatch: %s %s", tx.From, tx.Input)
	}
	if tx.V != "0x25" {
		t.Fatalf("placeholder v mismatch: %s", tx.V)
	}
}

func TestGetTransactionByBlockHashAndIndex(t *testing.T) {
	api, _ := newTestAPI(t)

	tx, err := api.GetTransactionByBlockHashAndIndex(context.Background(), testBlockHash, 1)
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if tx.Hash != createTxHash || tx.To != nil || tx.TransactionIndex != 1 {
		t.Fatalf("transaction mismatch: %+v", tx)
	}

	tx, err = api.GetTransactionByBlockHashAndIndex(context.Background(), testBlockHash, 2)
	if err != nil || tx != nil {
		t.Fatalf("index past the end should give nil, got %v %v", tx, err)
	}

	tx, err = api.GetTransactionByBlockHashAndIndex(context.Background(), common.HexToHash("0x01"), 0)
	if err != nil || tx != nil {
		t.Fatalf("unknown block should give nil, got %v %v", tx, err)
	}
}

func TestGetBlockTransactionCountByHash(t *testing.T) {
	api, _ := newTestAPI(t)

	count, err := api.GetBlockTransactionCountByHash(context.Background(), testBlockHash)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if *count != 2 {
		t.Fatalf("count mismatch: %d", *count)
	}
}

func TestEthRouterOverDispatcher(t *testing.T) {
	api, _ := newTestAPI(t)
	d := jsonrpc.NewDispatcher()
	d.AddRouter(Web3Router(NodeInfo{ClientVersion: "Laguna/v1", NetworkVersion: "1000", ChainID: 1000}))
	d.AddRouter(api.Router())

	params, _ := json.Marshal([]string{callTxHash.Hex()})
	resp, err := d.Dispatch(context.Background(), &jsonrpc.Request{ID: json.RawMessage("9"), Method: "eth_getTransactionReceipt", Params: params})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		ID     int `json:"id"`
		Result struct {
			Status            string `json:"status"`
			TransactionIndex  string `json:"transactionIndex"`
			EffectiveGasPrice string `json:"effectiveGasPrice"`
			Logs              []struct {
				LogIndex string `json:"logIndex"`
				Removed  bool   `json:"removed"`
			} `json:"logs"`
		} `json:"result"`
	}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != 9 || decoded.Result.Status != "0x1" || decoded.Result.TransactionIndex != "0x0" {
		t.Fatalf("receipt json mismatch: %s", out)
	}
	if decoded.Result.EffectiveGasPrice != "0x3b9aca00" {
		t.Fatalf("gas price json mismatch: %s", out)
	}
	if len(decoded.Result.Logs) != 1 || decoded.Result.Logs[0].LogIndex != "0x0" || decoded.Result.Logs[0].Removed {
		t.Fatalf("logs json mismatch: %s", out)
	}

	unknown, _ := json.Marshal([]string{common.HexToHash("0xdead").Hex()})
	resp, _ = d.Dispatch(context.Background(), &jsonrpc.Request{ID: json.RawMessage("10"), Method: "eth_getTransactionReceipt", Params: unknown})
	if out, _ := json.Marshal(resp); string(out) != `{"id":10,"jsonrpc":"2.0","result":null}` {
		t.Fatalf("unknown receipt mismatch: %s", out)
	}

	resp, _ = d.Dispatch(context.Background(), &jsonrpc.Request{ID: json.RawMessage("11"), Method: "eth_getTransactionReceipt", Params: json.RawMessage(`["0x12"]`)})
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeInvalidParams {
		t.Fatalf("expected invalid params for short hash, got %+v", resp)
	}

	pastEnd, _ := json.Marshal([]string{testBlockHash.Hex(), "0x2"})
	resp, _ = d.Dispatch(context.Background(), &jsonrpc.Request{ID: json.RawMessage("13"), Method: "eth_getTransactionByBlockHashAndIndex", Params: pastEnd})
	if out, _ := json.Marshal(resp); string(out) != `{"id":13,"jsonrpc":"2.0","result":null}` {
		t.Fatalf("index past the end mismatch: %s", out)
	}

	transfer, _ := json.Marshal([]string{transferHash.Hex()})
	resp, _ = d.Dispatch(context.Background(), &jsonrpc.Request{ID: json.RawMessage("12"), Method: "eth_getTransactionReceipt", Params: transfer})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Fatalf("expected not found error, got %+v", resp)
	}
	if data, ok := resp.Error.Data.(map[string]string); !ok || data["hashOrNumber"] != transferHash.Hex() {
		t.Fatalf("not found data mismatch: %v", resp.Error.Data)
	}
}
