package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// ServiceHandler answers the public index and health routes.
type ServiceHandler struct {
	name string
}

// NewServiceHandler creates a new ServiceHandler.
func NewServiceHandler(name string) *ServiceHandler {
	return &ServiceHandler{name: name}
}

// Index handles GET /
func (h *ServiceHandler) Index(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return JSONResponse(http.StatusOK, map[string]any{
		"name": h.name,
		"ok":   true,
		"endpoints": map[string]string{
			"health":      "GET /health",
			"search":      "GET /search?q=term&path=<optional folder>",
			"read":        "POST /read {\"path\": \"/folder/file.pdf\"}",
			"read_by_id":  "POST /read_by_id {\"id\": \"...\", \"driveId\": \"<optional>\", \"name\": \"<optional>\"}",
			"resolve":     "GET /resolve?url=<shared link>",
			"debug_token": "GET /debug/token",
			"debug_drive": "GET /debug/drive",
			"debug_list":  "GET /debug/list?path=<folder>",
		},
		"note": "Send the header 'x-api-key: <API_KEY>' on every route except / and /health",
	}), nil
}

// Health handles GET /health
func (h *ServiceHandler) Health(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return JSONResponse(http.StatusOK, map[string]bool{"ok": true}), nil
}
