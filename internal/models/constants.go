// Package models contains data types and constants shared by the zai
// chat controller, bridges and user interfaces.
package models

import (
	"fmt"
	"time"
)

// ExchangeIDPrefix prefixes every generated exchange id.
const ExchangeIDPrefix = "think-"

// Fixed user-visible texts
const (
	// BridgeNotDetectedText replaces the placeholder when no bridge is configured.
	BridgeNotDetectedText = "Error: query bridge not detected. Set bridge.url in the config to connect to an engine."

	// CanceledText replaces a placeholder whose exchange was canceled before resolution.
	CanceledText = "Error: request canceled."
)

// Default timings
const (
	DefaultFallbackDelay   = 1000 * time.Millisecond
	DefaultResponseTimeout = 120 * time.Second
)

// PlaceholderText returns the in-flight text shown for a pending exchange.
func PlaceholderText(engine string) string {
	return fmt.Sprintf("ZEGA is processing via %s...", engine)
}

// ResponseTimeoutText is shown when a configured bridge does not answer in time.
func ResponseTimeoutText(engine string, timeout time.Duration) string {
	return fmt.Sprintf("Error: no response from %s within %s.", engine, timeout)
}

// FailureText is delivered by bridges in place of a response when processing failed.
func FailureText(reason error) string {
	if reason == nil {
		return "Error: processing failed."
	}
	return fmt.Sprintf("Error: processing failed: %v", reason)
}
