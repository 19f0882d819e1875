package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ExtrinsicRecord is one chain-native transaction container of a block.
type ExtrinsicRecord struct {
	Index   uint32        `json:"index"`
	Hash    common.Hash   `json:"hash"`
	Section string        `json:"section"`
	Method  string        `json:"method"`
	Args    ExtrinsicArgs `json:"args"`
	Nonce   uint64        `json:"nonce"`
	Raw     hexutil.Bytes `json:"raw"`
}

// IsEvm reports whether the extrinsic was dispatched to the EVM pallet.
func (e ExtrinsicRecord) IsEvm() bool {
	return strings.EqualFold(e.Section, "evm")
}

// ExtrinsicArgs holds the decoded EVM call arguments of an extrinsic.
type ExtrinsicArgs struct {
	Value        Quantity        `json:"value"`
	GasLimit     Quantity        `json:"gas_limit"`
	StorageLimit Quantity        `json:"storage_limit"`
	Target       *common.Address `json:"target,omitempty"`
	Input        hexutil.Bytes   `json:"input,omitempty"`
	Create       bool            `json:"create"`
}

// rawExtrinsicArgs mirrors the argument JSON of the evm pallet calls.
// Newer runtimes wrap the destination in an action enum, older ones use
// separate call/create methods with target/init fields.
type rawExtrinsicArgs struct {
	Action       map[string]json.RawMessage `json:"action"`
	Target       *string                    `json:"target"`
	Init         *string                    `json:"init"`
	Input        *string                    `json:"input"`
	Value        Quantity                   `json:"value"`
	GasLimit     Quantity                   `json:"gas_limit"`
	StorageLimit Quantity                   `json:"storage_limit"`
	Create       bool                       `json:"create"`
}

func (a *ExtrinsicArgs) UnmarshalJSON(data []byte) error {
	var raw rawExtrinsicArgs
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode extrinsic args: %w", err)
	}

	args := ExtrinsicArgs{
		Value:        raw.Value,
		GasLimit:     raw.GasLimit,
		StorageLimit: raw.StorageLimit,
		Create:       raw.Create,
	}

	target := ""
	if raw.Target != nil {
		target = *raw.Target
	}
	for key, value := range raw.Action {
		switch strings.ToLower(key) {
		case "call":
			var addr string
			if err := json.Unmarshal(value, &addr); err != nil {
				return fmt.Errorf("decode action call: %w", err)
			}
			target = addr
		case "create":
			args.Create = true
		}
	}
	if target != "" {
		if !common.IsHexAddress(target) {
			return fmt.Errorf("invalid target address: %s", target)
		}
		addr := common.HexToAddress(target)
		args.Target = &addr
	} else if raw.Init != nil {
		args.Create = true
	}

	payload := raw.Input
	if payload == nil {
		payload = raw.Init
	}
	if payload != nil && *payload != "" && *payload != "0x" {
		decoded, err := hexutil.Decode(*payload)
		if err != nil {
			return fmt.Errorf("decode input: %w", err)
		}
		args.Input = decoded
	}

	*a = args
	return nil
}
