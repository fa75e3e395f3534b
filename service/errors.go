package service

import "fmt"

// ParseError reports a malformed inbound payload. It aborts the request.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s payload: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StoreError reports that the lead table could not be written. It aborts the request.
type StoreError struct {
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ProvisionError reports a failed template workbook. The request degrades to
// a response without a workbook.
type ProvisionError struct {
	Err error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision workbook: %v", e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// NotifyError reports a failed notification. It is logged and discarded.
type NotifyError struct {
	Kind string
	Err  error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Kind, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }
