package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/hashicorp/go-hclog"

	"github.com/jun/drivegate/internal/adapter"
	"github.com/jun/drivegate/internal/extract"
	"github.com/jun/drivegate/internal/model"
)

// DriveHandler serves search, read and shared-link resolution.
type DriveHandler struct {
	drive    adapter.Drive
	maxChars int
	lenient  bool
	logger   hclog.Logger
}

// NewDriveHandler creates a new DriveHandler. With lenient set, files of an
// unsupported format yield an empty document instead of a 415.
func NewDriveHandler(drive adapter.Drive, maxChars int, lenient bool, logger hclog.Logger) *DriveHandler {
	return &DriveHandler{
		drive:    drive,
		maxChars: maxChars,
		lenient:  lenient,
		logger:   logger,
	}
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Results []adapter.RemoteItem `json:"results"`
}

// Search handles GET /search?q=&path=
func (h *DriveHandler) Search(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	q := strings.TrimSpace(req.QueryStringParameters["q"])
	folder := strings.TrimSpace(req.QueryStringParameters["path"])

	if err := (validation.Errors{
		"q": validation.Validate(q, validation.Required, validation.RuneLength(1, 1024)),
	}).Filter(); err != nil {
		return ErrorResponse(h.logger, &ValidationError{Err: err}), nil
	}

	items, err := h.drive.Search(ctx, q, folder)
	if err != nil {
		return ErrorResponse(h.logger, err), nil
	}
	if items == nil {
		items = []adapter.RemoteItem{}
	}
	return JSONResponse(http.StatusOK, SearchResponse{Results: items}), nil
}

// Read handles POST /read {path}
func (h *DriveHandler) Read(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body model.ReadRequest
	if err := decodeBody(req, &body); err != nil {
		return ErrorResponse(h.logger, err), nil
	}
	body.Path = strings.TrimSpace(body.Path)
	if err := validation.ValidateStruct(&body,
		validation.Field(&body.Path, validation.Required),
	); err != nil {
		return ErrorResponse(h.logger, &ValidationError{Err: err}), nil
	}

	// The format is known from the path, so skip the download when it cannot be extracted.
	if !extract.Supported(body.Path) {
		return h.unsupported(body.Path, path.Base(body.Path), body.Path), nil
	}

	file, err := h.drive.ReadByPath(ctx, body.Path)
	if err != nil {
		return ErrorResponse(h.logger, err), nil
	}
	return h.extracted(body.Path, file.Name, file.Content, body.Path), nil
}

// ReadByID handles POST /read_by_id {id, driveId?, name?}
func (h *DriveHandler) ReadByID(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body model.ReadByIDRequest
	if err := decodeBody(req, &body); err != nil {
		return ErrorResponse(h.logger, err), nil
	}
	body.ID = strings.TrimSpace(body.ID)
	if err := validation.ValidateStruct(&body,
		validation.Field(&body.ID, validation.Required),
	); err != nil {
		return ErrorResponse(h.logger, &ValidationError{Err: err}), nil
	}

	if body.Name != "" && !extract.Supported(body.Name) {
		return h.unsupported(body.ID, body.Name, body.Name), nil
	}

	file, err := h.drive.ReadByID(ctx, body.DriveID, body.ID)
	if err != nil {
		return ErrorResponse(h.logger, err), nil
	}
	name := body.Name
	if name == "" {
		name = file.Name
	}
	return h.extracted(body.ID, name, file.Content, name), nil
}

// Resolve handles GET /resolve?url=
func (h *DriveHandler) Resolve(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	sharedURL := strings.TrimSpace(req.QueryStringParameters["url"])
	if err := (validation.Errors{
		"url": validation.Validate(sharedURL, validation.Required, is.URL),
	}).Filter(); err != nil {
		return ErrorResponse(h.logger, &ValidationError{Err: err}), nil
	}

	shared, err := h.drive.ResolveShare(ctx, sharedURL)
	if err != nil {
		return ErrorResponse(h.logger, err), nil
	}
	return JSONResponse(http.StatusOK, shared), nil
}

func (h *DriveHandler) extracted(source, name string, content []byte, filename string) events.APIGatewayProxyResponse {
	text, err := extract.Extract(content, filename)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			return h.unsupported(source, name, filename)
		}
		return ErrorResponse(h.logger, err)
	}

	text, truncated := Truncate(text, h.maxChars)
	if truncated {
		h.logger.Debug("extracted text truncated", "source", source, "max_chars", h.maxChars)
	}
	return JSONResponse(http.StatusOK, model.ExtractedDocument{
		Source:    source,
		Name:      name,
		Text:      text,
		Truncated: truncated,
	})
}

// unsupported answers for a file whose suffix has no extractor.
func (h *DriveHandler) unsupported(source, name, filename string) events.APIGatewayProxyResponse {
	if !h.lenient {
		return ErrorResponse(h.logger, extract.NewUnsupportedFormatError(filename))
	}
	return JSONResponse(http.StatusOK, model.ExtractedDocument{
		Source:      source,
		Name:        name,
		Unsupported: true,
	})
}

func decodeBody(req events.APIGatewayProxyRequest, v any) error {
	raw := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return &ValidationError{Err: fmt.Errorf("invalid base64 body: %w", err)}
		}
		raw = decoded
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
