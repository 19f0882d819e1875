package evm

import "fmt"

// Error codes reported to JSON-RPC clients.
const (
	errcodeDefault  = -32000
	errcodeInternal = -32603
)

// NotFoundError is returned when a transaction selector resolves to nothing.
type NotFoundError struct {
	Selector string
	Reason   string
}

func (e *NotFoundError) Error() string {
	return e.Reason
}

func (e *NotFoundError) ErrorCode() int { return errcodeDefault }

func (e *NotFoundError) ErrorData() interface{} {
	return map[string]string{"hashOrNumber": e.Selector}
}

// UnsupportedEventError is returned for EVM outcome events this adapter does
// not know how to read, usually after a runtime upgrade.
type UnsupportedEventError struct {
	Method string
}

func (e *UnsupportedEventError) Error() string {
	return fmt.Sprintf("unsupported event: %s", e.Method)
}

func (e *UnsupportedEventError) ErrorCode() int { return errcodeInternal }

// ExtrinsicFailedError is returned when the block reports the extrinsic as
// failed at dispatch level.
type ExtrinsicFailedError struct {
	TransactionHash string
	DispatchError   string
}

func (e *ExtrinsicFailedError) Error() string {
	return fmt.Sprintf("ExtrinsicFailed: %s", e.DispatchError)
}

func (e *ExtrinsicFailedError) ErrorCode() int { return errcodeDefault }

func (e *ExtrinsicFailedError) ErrorData() interface{} {
	return map[string]string{"transactionHash": e.TransactionHash}
}
