// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInsufficientData   = errors.New("insufficient candle history")
	ErrStaleFeed          = errors.New("market feed is stale")
	ErrFeedUnstable       = errors.New("market feed not yet stable")
	ErrSpreadTooWide      = errors.New("spread exceeds entry limit")
	ErrLowConfidence      = errors.New("confidence below entry threshold")
	ErrTradeActive        = errors.New("trade already active for instrument")
	ErrCooldownActive     = errors.New("instrument in post-exit cooldown")
	ErrConcurrencyLimit   = errors.New("maximum concurrent trades reached")
	ErrCircuitOpen        = errors.New("trading halted by circuit breaker")
	ErrTradeClosed        = errors.New("trade already closed")
	ErrRejectedTargets    = errors.New("targets rejected")
	ErrConnectionFailed   = errors.New("connection failed")
	ErrTimeout            = errors.New("operation timed out")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrDataNotFound       = errors.New("data not found")
	ErrDatabaseError      = errors.New("database error")
	ErrNotificationFailed = errors.New("notification delivery failed")
)

// DataError represents a data-related error.
type DataError struct {
	DataType   string
	Instrument string
	Message    string
	Err        error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Instrument, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Instrument, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, instrument, message string, err error) *DataError {
	return &DataError{
		DataType:   dataType,
		Instrument: instrument,
		Message:    message,
		Err:        err,
	}
}

// FeedError represents an error from the exchange data feed.
type FeedError struct {
	Endpoint   string
	Instrument string
	Message    string
	Err        error
}

func (e *FeedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feed error [%s] %s: %s: %v", e.Endpoint, e.Instrument, e.Message, e.Err)
	}
	return fmt.Sprintf("feed error [%s] %s: %s", e.Endpoint, e.Instrument, e.Message)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFeedError creates a new FeedError.
func NewFeedError(endpoint, instrument, message string, err error) *FeedError {
	return &FeedError{
		Endpoint:   endpoint,
		Instrument: instrument,
		Message:    message,
		Err:        err,
	}
}

// RiskError represents a risk management rejection.
type RiskError struct {
	Rule    string
	Current float64
	Limit   float64
	Message string
}

func (e *RiskError) Error() string {
	return fmt.Sprintf("risk violation [%s]: %s (current: %.2f, limit: %.2f)", e.Rule, e.Message, e.Current, e.Limit)
}

// NewRiskError creates a new RiskError.
func NewRiskError(rule string, current, limit float64, message string) *RiskError {
	return &RiskError{
		Rule:    rule,
		Current: current,
		Limit:   limit,
		Message: message,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
