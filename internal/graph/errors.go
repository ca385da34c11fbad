package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody caps how much of a failure response is kept.
const maxErrorBody = 64 << 10

// RemoteError is a terminal non-2xx response from the Graph API.
type RemoteError struct {
	StatusCode int
	Body       []byte
}

func newRemoteError(res *http.Response) *RemoteError {
	defer res.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	return &RemoteError{StatusCode: res.StatusCode, Body: body}
}

func (e *RemoteError) Error() string {
	msg := string(e.Body)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("graph returned status %d: %s", e.StatusCode, msg)
}

// Detail returns the upstream body as raw JSON when it parses, else as text.
func (e *RemoteError) Detail() any {
	if json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	if len(e.Body) == 0 {
		return http.StatusText(e.StatusCode)
	}
	return string(e.Body)
}
