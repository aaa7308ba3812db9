package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

type ErrorKind string

const (
	// KindTransport: the node could not be reached or answered garbage.
	// The request may or may not have been applied.
	KindTransport ErrorKind = "transport"
	// KindRejected: the node understood and refused the request.
	KindRejected ErrorKind = "rejected"
	KindNotFound ErrorKind = "not_found"
	KindTimeout  ErrorKind = "timeout"
)

// Node error codes from the bitcoin-family JSON-RPC interface.
const (
	codeInvalidAddressOrKey = -5 // unknown transaction
	codeInsufficientFunds   = -6
	codeInvalidParameter    = -8 // also unknown asset name
	codeInWarmup            = -28
	codeMethodNotFound      = -32601
)

// Error is a classified ledger failure
// NotSent is set when the failure happened before anything was broadcast.
type Error struct {
	Kind    ErrorKind
	Op      string
	TxId    string
	Code    int
	NotSent bool
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("chain %s %s", e.Op, e.Kind)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.TxId != "" {
		msg += " tx " + e.TxId
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err, or "" when err did not come from this package
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// WasNotSent reports whether err failed before a transaction could reach the node
func WasNotSent(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.NotSent
}

// notSent marks a classified failure as preceding any broadcast
func notSent(err error) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	cp := *e
	cp.NotSent = true
	return &cp
}

// IsTransport reports whether a retry of a read might succeed
func IsTransport(err error) bool {
	return KindOf(err) == KindTransport
}

// nodeErrorBody is the error envelope a node returns with a non-2xx status
type nodeErrorBody struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// classify turns a transport-level error into an *Error
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &Error{Kind: kindForCode(rpcErr.ErrorCode()), Op: op, Code: rpcErr.ErrorCode(), Err: err}
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		var body nodeErrorBody
		if jsonErr := json.Unmarshal(httpErr.Body, &body); jsonErr == nil && body.Error != nil {
			return &Error{
				Kind: kindForCode(body.Error.Code),
				Op:   op,
				Code: body.Error.Code,
				Err:  fmt.Errorf("%s: %s", httpErr.Status, body.Error.Message),
			}
		}
		if httpErr.StatusCode == 404 {
			return &Error{Kind: KindRejected, Op: op, Code: codeMethodNotFound, Err: err}
		}
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}

	return &Error{Kind: KindTransport, Op: op, Err: err}
}

func kindForCode(code int) ErrorKind {
	switch code {
	case codeInvalidAddressOrKey:
		return KindNotFound
	case codeInWarmup:
		return KindTransport
	default:
		return KindRejected
	}
}
