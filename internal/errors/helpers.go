package errors

import "errors"

// IsBridgeUnavailable reports whether err means no bridge was configured.
func IsBridgeUnavailable(err error) bool {
	return errors.Is(err, ErrBridgeUnavailable)
}

// IsNetworkError reports whether err wraps a transport failure.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsTimeoutError reports whether err is a TimeoutError.
func IsTimeoutError(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}

// IsParseError reports whether err is a ParseError.
func IsParseError(err error) bool {
	return errors.Is(err, ErrInvalidResponse)
}

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// GetHTTPStatus returns the HTTP status carried by an APIError, or 0.
func GetHTTPStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
