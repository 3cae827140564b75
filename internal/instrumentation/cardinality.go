package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// Always use these helpers when recording metrics with user identifiers.

// ExtractUserDomain extracts the domain part from an email address.
// This reduces cardinality by using the domain instead of the full email.
//
// Example:
//
//	ExtractUserDomain("jane@uni.edu")  // "uni.edu"
//	ExtractUserDomain("invalid")       // "unknown"
//	ExtractUserDomain("")              // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}

// Operation types for Google API metrics.
// Status, handshake and service constants are defined in config.go.
const (
	OperationExchange = "exchange"
	OperationGet      = "get"
	OperationInsert   = "insert"
)
