// Package errors provides custom error types for the zai chat client and
// its query bridges.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrBridgeUnavailable = errors.New("query bridge not detected")
	ErrBridgeClosed      = errors.New("query bridge is closed")
	ErrEmptyQuery        = errors.New("query cannot be empty")
	ErrInvalidResponse   = errors.New("invalid response format")
)

// BridgeUnavailableError reports that an exchange was resolved by the
// fallback because no bridge was configured.
type BridgeUnavailableError struct {
	ExchangeID string
}

func (e *BridgeUnavailableError) Error() string {
	if e.ExchangeID == "" {
		return ErrBridgeUnavailable.Error()
	}
	return fmt.Sprintf("%s (exchange %s)", ErrBridgeUnavailable.Error(), e.ExchangeID)
}

// Is allows comparison with sentinel errors
func (e *BridgeUnavailableError) Is(target error) bool {
	if target == ErrBridgeUnavailable {
		return true
	}
	_, ok := target.(*BridgeUnavailableError)
	return ok
}

// NewBridgeUnavailableError creates a new BridgeUnavailableError
func NewBridgeUnavailableError(exchangeID string) *BridgeUnavailableError {
	return &BridgeUnavailableError{ExchangeID: exchangeID}
}

// BridgeError reports a failure inside a bridge implementation.
type BridgeError struct {
	Transport string // "http", "websocket", ...
	Message   string
	Err       error
}

func (e *BridgeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Transport == "" {
		return fmt.Sprintf("bridge error: %s", msg)
	}
	return fmt.Sprintf("%s bridge error: %s", e.Transport, msg)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// NewBridgeError creates a new BridgeError
func NewBridgeError(transport, message string, err error) *BridgeError {
	return &BridgeError{Transport: transport, Message: message, Err: err}
}

// APIError represents a non-success answer from a remote engine endpoint
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// NetworkError wraps a transport level failure
type NetworkError struct {
	Operation string
	Endpoint  string
	Err       error
}

func (e *NetworkError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("network error during %s (%s): %v", e.Operation, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("network error during %s: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(operation, endpoint string, err error) *NetworkError {
	return &NetworkError{Operation: operation, Endpoint: endpoint, Err: err}
}

// TimeoutError represents a request timeout
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "request timed out"
	}
	return fmt.Sprintf("request timed out: %s", e.Message)
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(message string) *TimeoutError {
	return &TimeoutError{Message: message}
}

// ParseError represents a response parsing error
type ParseError struct {
	Message string
	Path    string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error at %q: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// NewParseError creates a new ParseError
func NewParseError(message, path string) *ParseError {
	return &ParseError{Message: message, Path: path}
}

// Is allows comparison with sentinel errors
func (e *ParseError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// ConfigError reports an invalid configuration value
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Key, e.Message)
}

// NewConfigError creates a new ConfigError
func NewConfigError(key, message string) *ConfigError {
	return &ConfigError{Key: key, Message: message}
}
