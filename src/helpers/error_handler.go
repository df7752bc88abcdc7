package helpers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alpha-radar/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type AlphaRadarError struct {
	Message string
	Cause   error
}

func (e *AlphaRadarError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AlphaRadarError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As
type ConfigurationError struct{ AlphaRadarError }
type DatabaseError struct{ AlphaRadarError }
type ValidationError struct{ AlphaRadarError }

// DataQualityError rejects a series before analysis. The symbol yields no signals.
type DataQualityError struct {
	AlphaRadarError
	Symbol string
}

// WorkerFaultError wraps a failure or recovered panic while analyzing one symbol.
type WorkerFaultError struct {
	AlphaRadarError
	Symbol string
}

// NewDatabaseError wraps a storage failure
func NewDatabaseError(operation string, cause error) *DatabaseError {
	return &DatabaseError{AlphaRadarError{Message: operation + " failed", Cause: cause}}
}

// NewValidationError reports invalid caller input
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{AlphaRadarError{Message: fmt.Sprintf(format, args...)}}
}

// NewDataQualityError reports why a symbol's series was rejected
func NewDataQualityError(symbol, reason string) *DataQualityError {
	return &DataQualityError{
		AlphaRadarError: AlphaRadarError{Message: fmt.Sprintf("data quality rejected %s: %s", symbol, reason)},
		Symbol:          symbol,
	}
}

// NewWorkerFaultError wraps a worker failure. Recovered panic values become the cause.
func NewWorkerFaultError(symbol string, recovered any) *WorkerFaultError {
	cause, ok := recovered.(error)
	if !ok {
		cause = fmt.Errorf("%v", recovered)
	}
	return &WorkerFaultError{
		AlphaRadarError: AlphaRadarError{Message: "analysis of " + symbol + " failed", Cause: cause},
		Symbol:          symbol,
	}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
// It stops early, returning the context error, once ctx is done.
func RetryWithBackoff[T any](ctx context.Context, log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger                 *logger.Logger
	ErrorCount             int
	MaxErrorsBeforeRestart int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{
		Logger:                 log,
		ErrorCount:             0,
		MaxErrorsBeforeRestart: 10,
	}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// Categorize wraps err into a typed error based on the operation name.
func (e *ErrorHandler) Categorize(operation string, err error) error {
	if err == nil {
		return nil
	}

	e.ErrorCount++
	base := AlphaRadarError{Message: fmt.Sprintf("%s failed", operation), Cause: err}

	lowerOp := strings.ToLower(operation)
	switch {
	case strings.Contains(lowerOp, "database") || strings.Contains(lowerOp, "save") || strings.Contains(lowerOp, "fetch"):
		return &DatabaseError{base}
	case strings.Contains(lowerOp, "config"):
		return &ConfigurationError{base}
	}
	return &base
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) Handle(err error, context string) {
	if err != nil {
		e.Logger.Error("Error in %s: %v", context, err)
	}
}

// TooManyErrors reports whether the consecutive error budget is spent.
func (e *ErrorHandler) TooManyErrors() bool {
	return e.ErrorCount >= e.MaxErrorsBeforeRestart
}
