package handler_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/hashicorp/go-hclog"

	"github.com/jun/drivegate/internal/adapter"
	"github.com/jun/drivegate/internal/adapter/memory"
)

var testLogger = hclog.NewNullLogger()

func makeRequest(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Body:       body,
		Headers: map[string]string{
			"x-api-key":    "test-key",
			"Content-Type": "application/json",
		},
		QueryStringParameters: map[string]string{},
	}
}

func decode(t *testing.T, resp events.APIGatewayProxyResponse, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(resp.Body), v); err != nil {
		t.Fatalf("Failed to decode body %q: %v", resp.Body, err)
	}
}

func newTestDrive(t *testing.T, files map[string]string) *memory.MemoryAdapter {
	t.Helper()
	m := memory.NewMemoryAdapter("tester@example.com")
	for p, content := range files {
		if _, err := m.Put(p, []byte(content)); err != nil {
			t.Fatalf("Put %s failed: %v", p, err)
		}
	}
	return m
}

// failingDrive returns err from every call.
type failingDrive struct {
	err error
}

func (d failingDrive) Search(context.Context, string, string) ([]adapter.RemoteItem, error) {
	return nil, d.err
}

func (d failingDrive) ListChildren(context.Context, string) ([]adapter.RemoteItem, error) {
	return nil, d.err
}

func (d failingDrive) ReadByPath(context.Context, string) (*adapter.File, error) {
	return nil, d.err
}

func (d failingDrive) ReadByID(context.Context, string, string) (*adapter.File, error) {
	return nil, d.err
}

func (d failingDrive) ResolveShare(context.Context, string) (*adapter.SharedItem, error) {
	return nil, d.err
}

func (d failingDrive) DriveInfo(context.Context) (*adapter.DriveInfo, error) {
	return nil, d.err
}
