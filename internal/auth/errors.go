package auth

import (
	"fmt"
	"strings"
)

// Error reports a failure to obtain a bearer token: missing credentials or a
// rejection by the identity provider. Provider fields are kept verbatim so
// operators can look them up.
type Error struct {
	Code          string `json:"error"`
	Description   string `json:"error_description,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	TraceID       string `json:"trace_id,omitempty"`
	StatusCode    int    `json:"-"`
	Err           error  `json:"-"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("auth: ")
	b.WriteString(e.Code)
	if e.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Description)
	}
	if e.CorrelationID != "" {
		fmt.Fprintf(&b, " (correlation_id=%s)", e.CorrelationID)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
