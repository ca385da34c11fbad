package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-hclog"

	"github.com/jun/drivegate/internal/adapter"
	"github.com/jun/drivegate/internal/auth"
)

// TokenSource supplies the Graph bearer token.
type TokenSource interface {
	Token(ctx context.Context) (auth.Token, error)
}

// DebugHandler exposes operator probes for token and drive access.
type DebugHandler struct {
	tokens TokenSource
	drive  adapter.Drive
	scope  string
	tenant string
	logger hclog.Logger
}

// NewDebugHandler creates a new DebugHandler.
func NewDebugHandler(tokens TokenSource, drive adapter.Drive, scope, tenant string, logger hclog.Logger) *DebugHandler {
	return &DebugHandler{
		tokens: tokens,
		drive:  drive,
		scope:  scope,
		tenant: tenant,
		logger: logger,
	}
}

// TokenClaims is the unverified subset of access token claims worth showing.
type TokenClaims struct {
	AppID string   `json:"appid,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Exp   int64    `json:"exp,omitempty"`
}

// TokenReport is the body of GET /debug/token. It never carries the token itself.
type TokenReport struct {
	Token     string       `json:"token"`
	Scope     []string     `json:"scope"`
	Tenant    string       `json:"tenant"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Claims    *TokenClaims `json:"claims,omitempty"`
}

// Token handles GET /debug/token
func (h *DebugHandler) Token(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	tok, err := h.tokens.Token(ctx)
	if err != nil {
		return ErrorResponse(h.logger, err), nil
	}
	return JSONResponse(http.StatusOK, TokenReport{
		Token:     "OK",
		Scope:     []string{h.scope},
		Tenant:    h.tenant,
		ExpiresAt: tok.Expiry.UTC(),
		Claims:    inspectClaims(tok.Value),
	}), nil
}

// inspectClaims decodes the token payload without verifying the signature.
func inspectClaims(raw string) *TokenClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil
	}

	out := &TokenClaims{}
	if v, ok := claims["appid"].(string); ok {
		out.AppID = v
	}
	if roles, ok := claims["roles"].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				out.Roles = append(out.Roles, s)
			}
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.Exp = exp.Unix()
	}
	return out
}

// Drive handles GET /debug/drive
func (h *DebugHandler) Drive(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	info, err := h.drive.DriveInfo(ctx)
	if err != nil {
		return ErrorResponse(h.logger, err), nil
	}
	if info.RootItems == nil {
		info.RootItems = []string{}
	}
	return JSONResponse(http.StatusOK, info), nil
}

// List handles GET /debug/list?path=
func (h *DebugHandler) List(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	folder := strings.TrimSpace(req.QueryStringParameters["path"])
	items, err := h.drive.ListChildren(ctx, folder)
	if err != nil {
		return ErrorResponse(h.logger, err), nil
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return JSONResponse(http.StatusOK, names), nil
}
