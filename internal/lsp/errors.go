package lsp

import (
	"errors"
	"fmt"
)

// Standard errors returned by the LSP layer.
var (
	// ErrNoServer indicates no attached server advertises the capability.
	ErrNoServer = errors.New("no configured language server supports the feature")

	// ErrNotSupported indicates the server lacks a sub-capability of an advertised feature.
	ErrNotSupported = errors.New("feature not supported by server")

	// ErrInvalidResponse indicates a payload that could not be decoded.
	ErrInvalidResponse = errors.New("invalid response from server")

	// ErrServerGone indicates the server disappeared from the registry.
	ErrServerGone = errors.New("language server disappeared")
)

// RPCError represents a JSON-RPC error from the server.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeRequestCancelled = -32800
	CodeContentModified  = -32801
	CodeRequestFailed    = -32803
)

// ServerError attributes an error to the server that produced it.
type ServerError struct {
	Server string
	Method string
	Err    error
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("server %s: %s: %v", e.Server, e.Method, e.Err)
	}
	return fmt.Sprintf("server %s: %v", e.Server, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServerError) Unwrap() error {
	return e.Err
}

// DecodeError reports a payload that did not match the expected shape.
type DecodeError struct {
	What string
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoding %s: %v", e.What, e.Err)
	}
	return fmt.Sprintf("decoding %s: malformed payload", e.What)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes every DecodeError match ErrInvalidResponse.
func (e *DecodeError) Is(target error) bool {
	return target == ErrInvalidResponse
}
