package types

import (
	"errors"
	"fmt"
	"strings"
)

// Record mutation errors.
var (
	ErrIndexOutOfRange    = errors.New("tracker index out of range")
	ErrOutOfRange         = errors.New("value out of range")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidReason      = errors.New("reason must not be empty")
	ErrInvalidKind        = errors.New("invalid ledger entry kind")
	ErrInvalidName        = errors.New("invalid name")
	ErrCollectionFull     = errors.New("collection is full")
	ErrDotBudgetExceeded  = errors.New("dot budget exceeded")
	ErrDuplicateSelection = errors.New("already selected")
	ErrUnknownSelection   = errors.New("not selected")
	ErrUnknownTrait       = errors.New("unknown trait")
	ErrUnknownField       = errors.New("unknown field")
	ErrReadOnlyField      = errors.New("field is not directly settable")
	ErrInvalidEdgeConfig  = errors.New("invalid edge configuration")
	ErrSpecialtyLimit     = errors.New("specialties exceed skill rating")
	ErrInvalidPortrait    = errors.New("invalid portrait slot")
)

// Store errors.
var (
	ErrNotFound     = errors.New("character not found")
	ErrForbidden    = errors.New("access denied")
	ErrInvalidID    = errors.New("invalid character ID")
	ErrInvalidData  = errors.New("invalid payload")
	ErrStoreClosed  = errors.New("store is detached")
	ErrAttached     = errors.New("store is already attached")
	ErrInvalidAsset = errors.New("invalid asset")
)

// FieldError is a validation message for a single field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a store rejects a payload. It carries one
// message per offending field. The autosave engine keeps its dirty set when
// it sees this error.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message recorded for name, or "" if there is none.
func (e *ValidationError) Field(name string) string {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Message
		}
	}
	return ""
}

// TransportError wraps a store failure that is not a payload rejection
// (I/O, network, timeout). It is treated as transient.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// InsufficientFundsError is returned by Ledger.Spend when the requested
// amount exceeds the available experience. The ledger is left unchanged.
type InsufficientFundsError struct {
	Requested int
	Available int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient experience: requested %d, available %d", e.Requested, e.Available)
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
