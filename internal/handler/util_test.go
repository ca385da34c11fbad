package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/drivegate/internal/adapter"
	"github.com/jun/drivegate/internal/auth"
	"github.com/jun/drivegate/internal/extract"
	"github.com/jun/drivegate/internal/graph"
	"github.com/jun/drivegate/internal/handler"
)

func TestTruncate(t *testing.T) {
	text := strings.Repeat("abcde", 10)

	got, truncated := handler.Truncate(text, 10)
	if !truncated {
		t.Error("Expected truncated flag")
	}
	if len(got) != 10+len(handler.TruncationMarker) {
		t.Errorf("Expected length %d, got %d", 10+len(handler.TruncationMarker), len(got))
	}
	if !strings.HasSuffix(got, handler.TruncationMarker) {
		t.Errorf("Expected marker suffix, got %q", got)
	}
}

func TestTruncate_Boundaries(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		max           int
		want          string
		wantTruncated bool
	}{
		{"shorter", "abc", 10, "abc", false},
		{"exact", "abcdefghij", 10, "abcdefghij", false},
		{"one over", "abcdefghijk", 10, "abcdefghij" + handler.TruncationMarker, true},
		{"runes not bytes", "èèèèè", 3, "èèè" + handler.TruncationMarker, true},
		{"multibyte within cap", "èèè", 3, "èèè", false},
		{"cap disabled", "abc", 0, "abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := handler.Truncate(tt.text, tt.max)
			if got != tt.want || truncated != tt.wantTruncated {
				t.Errorf("Truncate(%q, %d) = %q, %v; want %q, %v", tt.text, tt.max, got, truncated, tt.want, tt.wantTruncated)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}

func TestValidAPIKey(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		configured string
		want       bool
	}{
		{"match", map[string]string{"x-api-key": "k1"}, "k1", true},
		{"header case", map[string]string{"X-Api-Key": "k1"}, "k1", true},
		{"wrong key", map[string]string{"x-api-key": "k2"}, "k1", false},
		{"missing header", map[string]string{}, "k1", false},
		{"nothing configured", map[string]string{"x-api-key": ""}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := events.APIGatewayProxyRequest{Headers: tt.headers}
			if got := handler.ValidAPIKey(req, tt.configured); got != tt.want {
				t.Errorf("ValidAPIKey = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidAPIKey_MultiValueHeaders(t *testing.T) {
	req := events.APIGatewayProxyRequest{
		MultiValueHeaders: map[string][]string{"X-API-KEY": {"k1"}},
	}
	if !handler.ValidAPIKey(req, "k1") {
		t.Error("Expected key from multi-value headers to match")
	}
}

func TestErrorResponse_Mapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		bodyPart string
	}{
		{"validation", &handler.ValidationError{Err: errors.New("path: cannot be blank")}, http.StatusBadRequest, "cannot be blank"},
		{"auth", &auth.Error{Code: "invalid_client", CorrelationID: "c-1"}, http.StatusUnauthorized, `"auth_error":{"error":"invalid_client","correlation_id":"c-1"}`},
		{"wrapped auth", fmt.Errorf("token: %w", &auth.Error{Code: "missing_credentials"}), http.StatusUnauthorized, "missing_credentials"},
		{"unsupported", extract.NewUnsupportedFormatError("x.xyz"), http.StatusUnsupportedMediaType, ".xyz"},
		{"remote json", &graph.RemoteError{StatusCode: 404, Body: []byte(`{"error":{"code":"itemNotFound"}}`)}, http.StatusBadGateway, `"graph_error":{"error":{"code":"itemNotFound"}}`},
		{"remote text", &graph.RemoteError{StatusCode: 503, Body: []byte("busy")}, http.StatusBadGateway, `"graph_error":"busy"`},
		{"not found", fmt.Errorf("read: %w", adapter.ErrNotFound), http.StatusNotFound, "not found"},
		{"folder", adapter.ErrIsFolder, http.StatusBadRequest, "folder"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := handler.ErrorResponse(testLogger, tt.err)
			if resp.StatusCode != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
			if !strings.Contains(resp.Body, tt.bodyPart) {
				t.Errorf("Expected body to contain %q, got %s", tt.bodyPart, resp.Body)
			}
			if resp.Headers["Content-Type"] != "application/json" {
				t.Errorf("Expected JSON content type, got %q", resp.Headers["Content-Type"])
			}
		})
	}
}
