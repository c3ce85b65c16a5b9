// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for batchsync.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInitFailed      = errors.New("resource initialization failed")
	ErrBufferFull      = errors.New("batch buffer is full")
	ErrClosed          = errors.New("batch buffer is closed")
	ErrWaitTimeout     = errors.New("wait timed out")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrNotFound        = errors.New("resource not found")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeInitFailed
	ErrCodeBufferFull
	ErrCodeClosed
	ErrCodeTimeout
	ErrCodeAlreadyExists
	ErrCodeNotFound
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeInitFailed:
		return "init_failed"
	case ErrCodeBufferFull:
		return "buffer_full"
	case ErrCodeClosed:
		return "closed"
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeAlreadyExists:
		return "already_exists"
	case ErrCodeNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error // wrapped cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for e.Code, so errors.Is(err, ErrInitFailed)
// holds for any init failure regardless of its cause.
func (e *Error) Is(target error) bool {
	for _, s := range sentinels {
		if s.code == e.Code {
			return s.err == target
		}
	}
	return false
}

// sentinels is ordered; CodeOf reports the first match.
var sentinels = []struct {
	code ErrorCode
	err  error
}{
	{ErrCodeInitFailed, ErrInitFailed},
	{ErrCodeTimeout, ErrWaitTimeout},
	{ErrCodeInvalidArgument, ErrInvalidArgument},
	{ErrCodeBufferFull, ErrBufferFull},
	{ErrCodeClosed, ErrClosed},
	{ErrCodeAlreadyExists, ErrAlreadyExists},
	{ErrCodeNotFound, ErrNotFound},
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap attaches a cause to the error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf returns the ErrorCode carried by err. Plain sentinel chains map to
// their code, anything else to ErrCodeInternal. A nil error maps to ErrCodeOK.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return ErrCodeInternal
}
