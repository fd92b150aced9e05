package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeAmount   = errors.New("negative amount")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrAccessDenied     = errors.New("access denied")
	ErrSessionBusy      = errors.New("session busy")
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	ErrMalformedRow     = errors.New("malformed ledger row")
	ErrSchemaMismatch   = errors.New("ledger schema mismatch")
	ErrDispatch         = errors.New("notification dispatch failed")
)

// StoreError reports a failed append or read against the ledger store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// NewStoreError wraps err as a StoreError. Errors that already carry a
// StoreError or a RowError are returned as they are, so that a malformed
// ledger is not reported as an outage.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var rowErr *RowError
	var storeErr *StoreError
	if errors.As(err, &rowErr) || errors.As(err, &storeErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// RowError reports a ledger row that cannot be decoded. Row is 1-based and
// counts data rows only (the header is row 0).
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("ledger header: %v", e.Err)
	}
	return fmt.Sprintf("ledger row %d column %q: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func (e *RowError) Is(target error) bool {
	if target == ErrMalformedRow {
		return true
	}
	return errors.Is(e.Err, target)
}

// DispatchError reports a failed delivery to one recipient.
type DispatchError struct {
	Recipient int64
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %d: %v", e.Recipient, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

func (e *DispatchError) Is(target error) bool { return target == ErrDispatch }
