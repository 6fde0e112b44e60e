// Package classify turns the outcome of a remote call into either the
// success value or a uniform domain error. The same policy applies to every
// operation kind so that codes and messages are read identically everywhere.
package classify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papaburgs/voidinvestor/internal/spacetraders"
)

// Operation names the kind of remote call that produced an outcome.
type Operation string

const (
	OpRegister      Operation = "register"
	OpGetAgent      Operation = "get-agent"
	OpListShips     Operation = "list-ships"
	OpListWaypoints Operation = "list-waypoints"
	OpDock          Operation = "dock"
	OpOrbit         Operation = "orbit"
	OpNavigate      Operation = "navigate"
	OpRefuel        Operation = "refuel"
	OpExtract       Operation = "extract"
	OpSell          Operation = "sell"
)

// Error codes the agent reacts to.
const (
	CodeCooldown              = 4000
	CodeRegistrationPending   = 4103
	CodeAccountInvalid        = 4104
	CodeInsufficientFuel      = 4203
	CodeShipNotInOrbit        = 4204
	CodeInvalidMiningLocation = 4205
	CodeInventoryFull         = 4228
)

// ErrUnrecognized marks a failure the classifier cannot read as a domain
// error, such as a broken connection. It is fatal for the current attempt.
var ErrUnrecognized = errors.New("unrecognized remote failure")

// Error is a domain error reported by the api. Code 0 with an empty message
// means the response body did not have the expected error shape.
type Error struct {
	Op      Operation
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *Error) Error() string {
	if e.IsUnparsed() {
		return fmt.Sprintf("%s: unparsed error response", e.Op)
	}
	return fmt.Sprintf("%s: code %d: %s", e.Op, e.Code, e.Message)
}

// IsUnparsed reports whether the error body could not be read.
func (e *Error) IsUnparsed() bool {
	return e.Code == 0 && e.Message == ""
}

type errorBody struct {
	Error *struct {
		Code    *int            `json:"code"`
		Message *string         `json:"message"`
		Data    json.RawMessage `json:"data,omitempty"`
	} `json:"error"`
}

// Classify passes v through when err is nil. A response error becomes an
// *Error, and anything else is wrapped with ErrUnrecognized.
func Classify[T any](op Operation, v T, err error) (T, error) {
	if err == nil {
		return v, nil
	}
	var zero T

	var re *spacetraders.ResponseError
	if !errors.As(err, &re) {
		return zero, fmt.Errorf("%s: %w: %w", op, ErrUnrecognized, err)
	}

	if parsed, ok := parse(op, re.Body); ok {
		return zero, parsed
	}
	slog.Warn("error response did not have the expected shape",
		"op", op, "rc", re.StatusCode, "body", string(bytes.TrimSpace(re.Body)))
	return zero, &Error{Op: op}
}

// Err classifies an outcome that has no success value.
func Err(op Operation, err error) error {
	_, err = Classify(op, struct{}{}, err)
	return err
}

func parse(op Operation, body []byte) (*Error, bool) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return nil, false
	}
	if eb.Error == nil || eb.Error.Code == nil || eb.Error.Message == nil {
		return nil, false
	}
	return &Error{
		Op:      op,
		Code:    *eb.Error.Code,
		Message: *eb.Error.Message,
		Data:    eb.Error.Data,
	}, true
}

// AsError extracts a classified error from err.
func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// CodeOf returns the domain code carried by err, or 0.
func CodeOf(err error) int {
	if ce, ok := AsError(err); ok {
		return ce.Code
	}
	return 0
}

// IsFatal reports whether err is an unrecognized failure.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnrecognized)
}
