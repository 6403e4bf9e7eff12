package models

import (
	"fmt"
	"strings"
)

// Validation failure reasons.
const (
	ReasonMissing       = "missing required parameter"
	ReasonOutOfDomain   = "parameter out of domain"
	ReasonInvalidNumber = "invalid number"
	ReasonMalformedDate = "malformed date"
)

// ValidationError is returned when the caller's query is rejected. It is
// always produced before any upstream call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Field)
}

// UpstreamUnavailableError covers transport failures and timeouts.
type UpstreamUnavailableError struct {
	Timeout bool
	Err     error
}

func (e *UpstreamUnavailableError) Error() string {
	if e.Timeout {
		return "upstream timed out: " + e.Err.Error()
	}
	return "upstream unavailable: " + e.Err.Error()
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

// UpstreamError is a non-2xx answer from upstream.
type UpstreamError struct {
	Status int
	Body   string
	Reason string
}

func (e *UpstreamError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// Rejected reports whether upstream refused the request itself (4xx) rather
// than failing on its side.
func (e *UpstreamError) Rejected() bool {
	return e.Status >= 400 && e.Status < 500
}

// UpstreamProtocolError is a successful upstream status carrying a body that
// cannot be used.
type UpstreamProtocolError struct {
	Err error
}

func (e *UpstreamProtocolError) Error() string {
	return "upstream protocol error: " + e.Err.Error()
}

func (e *UpstreamProtocolError) Unwrap() error {
	return e.Err
}

// ShortDiagnostic trims a message to at most n bytes on a rune boundary.
func ShortDiagnostic(msg string, n int) string {
	msg = strings.TrimSpace(msg)
	if len(msg) <= n {
		return msg
	}
	cut := n
	for cut > 0 && !isRuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
