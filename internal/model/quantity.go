package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Quantity is an arbitrary-precision integer decoded from chain JSON.
// The chain type registry emits small integers as JSON numbers and large ones
// as decimal or 0x-prefixed hex strings, so all three are accepted.
type Quantity struct {
	big.Int
}

func NewQuantity(v int64) Quantity {
	var q Quantity
	q.SetInt64(v)
	return q
}

// Big returns a copy of the underlying value.
func (q Quantity) Big() *big.Int {
	return new(big.Int).Set(&q.Int)
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		q.SetInt64(0)
		return nil
	}
	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		parsed, err := ParseQuantity(text)
		if err != nil {
			return err
		}
		q.Set(parsed)
		return nil
	}
	if _, ok := q.SetString(string(data), 10); !ok {
		return fmt.Errorf("invalid quantity: %s", data)
	}
	return nil
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

// ParseQuantity parses a decimal or 0x-prefixed hex integer.
func ParseQuantity(input string) (*big.Int, error) {
	text := strings.TrimSpace(input)
	text = strings.ReplaceAll(text, ",", "")
	if text == "" {
		return big.NewInt(0), nil
	}
	base := 10
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		text = text[2:]
		base = 16
		if text == "" {
			return big.NewInt(0), nil
		}
	}
	value, ok := new(big.Int).SetString(text, base)
	if !ok {
		return nil, fmt.Errorf("invalid quantity: %s", input)
	}
	return value, nil
}
