package jsonrpc

import (
	"errors"
	"fmt"
)

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeDefault        = -32000
)

// ErrNoRouters is returned by the dispatcher when it has nothing to dispatch
// to. It is a deployment fault, never a client error.
var ErrNoRouters = errors.New("no router configured")

// Error is the error member of a JSON-RPC response.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) ErrorCode() int { return e.Code }

func (e *Error) ErrorData() interface{} { return e.Data }

// CodedError is implemented by errors that choose their JSON-RPC code.
type CodedError interface {
	Error() string
	ErrorCode() int
}

// DataError is implemented by errors that attach data to the response.
type DataError interface {
	Error() string
	ErrorData() interface{}
}

func NewInvalidRequest() *Error {
	return &Error{Code: CodeInvalidRequest, Message: "Invalid Request"}
}

func NewMethodNotFound(method string) *Error {
	return &Error{
		Code:    CodeMethodNotFound,
		Message: "Method not found",
		Data:    fmt.Sprintf("The method %s does not exist / is not available.", method),
	}
}

func NewInvalidParams(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

func NewParseError(err error) *Error {
	return &Error{Code: CodeParseError, Message: "Parse error", Data: err.Error()}
}

func newInternalError(message string) *Error {
	return &Error{Code: CodeInternalError, Message: message}
}

// ToError folds any error returned by a router into the JSON-RPC error shape.
func ToError(err error) *Error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	out := &Error{Code: CodeDefault, Message: err.Error()}
	var coded CodedError
	if errors.As(err, &coded) {
		out.Code = coded.ErrorCode()
	}
	var withData DataError
	if errors.As(err, &withData) {
		out.Data = withData.ErrorData()
	}
	return out
}
