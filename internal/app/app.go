package app

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/jun/drivegate/internal/adapter"
	"github.com/jun/drivegate/internal/handler"
)

// ServiceName is reported by the index route.
const ServiceName = "drivegate"

// HandlerFunc is the signature shared by all route handlers.
type HandlerFunc func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Route is one entry of the routing table.
type Route struct {
	Method string
	Path   string
	Public bool
	Handle HandlerFunc
}

// Options are the already-built dependencies of an App.
type Options struct {
	Drive         adapter.Drive
	Tokens        handler.TokenSource
	APIKey        string
	MaxChars      int
	Lenient       bool
	GraphScope    string
	TenantID      string
	AllowedOrigin string
	Logger        hclog.Logger
}

// App routes API Gateway requests to the handlers.
type App struct {
	routes        map[string]map[string]Route // path -> method -> route
	apiKey        string
	allowedOrigin string
	logger        hclog.Logger
}

// New builds the routing table over the given dependencies.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}

	serviceHandler := handler.NewServiceHandler(ServiceName)
	driveHandler := handler.NewDriveHandler(opts.Drive, opts.MaxChars, opts.Lenient, logger.Named("handler"))
	debugHandler := handler.NewDebugHandler(opts.Tokens, opts.Drive, opts.GraphScope, opts.TenantID, logger.Named("handler"))

	app := &App{
		routes:        make(map[string]map[string]Route),
		apiKey:        opts.APIKey,
		allowedOrigin: opts.AllowedOrigin,
		logger:        logger,
	}
	for _, r := range []Route{
		{Method: http.MethodGet, Path: "/", Public: true, Handle: serviceHandler.Index},
		{Method: http.MethodGet, Path: "/health", Public: true, Handle: serviceHandler.Health},
		{Method: http.MethodGet, Path: "/search", Handle: driveHandler.Search},
		{Method: http.MethodPost, Path: "/read", Handle: driveHandler.Read},
		{Method: http.MethodPost, Path: "/read_by_id", Handle: driveHandler.ReadByID},
		{Method: http.MethodGet, Path: "/resolve", Handle: driveHandler.Resolve},
		{Method: http.MethodGet, Path: "/debug/list", Handle: debugHandler.List},
		{Method: http.MethodGet, Path: "/debug/drive", Handle: debugHandler.Drive},
		{Method: http.MethodGet, Path: "/debug/token", Handle: debugHandler.Token},
	} {
		app.handle(r)
	}
	return app
}

func (app *App) handle(r Route) {
	if app.routes[r.Path] == nil {
		app.routes[r.Path] = make(map[string]Route)
	}
	app.routes[r.Path][r.Method] = r
}

// Routes lists the routing table ordered by path and method.
func (app *App) Routes() []Route {
	var out []Route
	for _, byMethod := range app.routes {
		for _, r := range byMethod {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// HandleRequest routes API Gateway requests to the appropriate handler.
// Every route that is not public requires a valid x-api-key.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	requestID := req.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	path := normalizePath(req.Path)
	method := strings.ToUpper(req.HTTPMethod)
	logger := app.logger.With("request_id", requestID)

	resp := app.dispatch(ctx, logger, method, path, req)

	resp = app.withHeaders(resp, requestID)
	logger.Info("request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))
	return resp, nil
}

func (app *App) dispatch(ctx context.Context, logger hclog.Logger, method, path string, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	// CORS Preflight
	if method == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}
	}

	byMethod, ok := app.routes[path]
	if !ok {
		return handler.JSONResponse(http.StatusNotFound, handler.ErrorBody{Error: "Not Found: " + method + " " + path})
	}
	route, ok := byMethod[method]
	if !ok {
		resp := handler.JSONResponse(http.StatusMethodNotAllowed, handler.ErrorBody{Error: "Method Not Allowed"})
		resp.Headers["Allow"] = allowed(byMethod)
		return resp
	}

	if !route.Public && !handler.ValidAPIKey(req, app.apiKey) {
		logger.Warn("rejected request without valid api key", "path", path)
		return handler.JSONResponse(http.StatusForbidden, handler.ErrorBody{Error: "Forbidden"})
	}

	resp, err := route.Handle(ctx, req)
	if err != nil {
		logger.Error("handler error", "path", path, "error", err)
		return handler.JSONResponse(http.StatusInternalServerError, handler.ErrorBody{Error: "internal server error"})
	}
	return resp
}

// withHeaders adds CORS headers and the request id.
func (app *App) withHeaders(resp events.APIGatewayProxyResponse, requestID string) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = app.allowedOrigin
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,x-api-key"
	resp.Headers["Access-Control-Expose-Headers"] = "X-Request-Id"
	resp.Headers["X-Request-Id"] = requestID
	return resp
}

// normalizePath strips the /api prefix added by CloudFront and any trailing slash.
func normalizePath(p string) string {
	if p == "/api" || strings.HasPrefix(p, "/api/") {
		p = strings.TrimPrefix(p, "/api")
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		p = "/"
	}
	return p
}

func allowed(byMethod map[string]Route) string {
	methods := make([]string, 0, len(byMethod))
	for m := range byMethod {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
