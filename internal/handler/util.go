package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/hashicorp/go-hclog"

	"github.com/jun/drivegate/internal/adapter"
	"github.com/jun/drivegate/internal/auth"
	"github.com/jun/drivegate/internal/extract"
	"github.com/jun/drivegate/internal/graph"
)

// TruncationMarker is appended to text cut at the character cap.
const TruncationMarker = "\n\n[...truncated...]"

// ValidationError reports missing or malformed request input.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Header returns the value of a request header, matching the name case-insensitively.
func Header(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	for k, v := range req.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// ValidAPIKey reports whether the x-api-key header equals key. An empty
// key never matches.
func ValidAPIKey(req events.APIGatewayProxyRequest, key string) bool {
	if key == "" {
		return false
	}
	got := Header(req, "x-api-key")
	return subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1
}

// Truncate caps text at max characters (runes) and appends TruncationMarker
// when it cuts. A non-positive max disables the cap.
func Truncate(text string, max int) (string, bool) {
	if max <= 0 || len(text) <= max {
		return text, false
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i] + TruncationMarker, true
		}
		n++
	}
	return text, false
}

// JSONResponse serialises v with the given status.
func JSONResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// ErrorBody is the generic error payload.
type ErrorBody struct {
	Error string `json:"error"`
}

// ErrorResponse maps err onto a status code and JSON body.
func ErrorResponse(logger hclog.Logger, err error) events.APIGatewayProxyResponse {
	var (
		validationErr *ValidationError
		authErr       *auth.Error
		remoteErr     *graph.RemoteError
	)

	switch {
	case errors.As(err, &validationErr):
		return JSONResponse(http.StatusBadRequest, ErrorBody{Error: validationErr.Err.Error()})
	case errors.As(err, &authErr):
		logger.Warn("token acquisition failed", "error", authErr)
		return JSONResponse(http.StatusUnauthorized, map[string]any{"auth_error": authErr})
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return JSONResponse(http.StatusUnsupportedMediaType, ErrorBody{Error: err.Error()})
	case errors.As(err, &remoteErr):
		logger.Warn("graph request failed", "status", remoteErr.StatusCode, "error", remoteErr)
		return JSONResponse(http.StatusBadGateway, map[string]any{"graph_error": remoteErr.Detail()})
	case errors.Is(err, adapter.ErrNotFound):
		return JSONResponse(http.StatusNotFound, ErrorBody{Error: err.Error()})
	case errors.Is(err, adapter.ErrIsFolder):
		return JSONResponse(http.StatusBadRequest, ErrorBody{Error: err.Error()})
	}

	logger.Error("request failed", "error", err)
	return JSONResponse(http.StatusInternalServerError, ErrorBody{Error: "internal server error"})
}
