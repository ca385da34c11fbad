package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"os"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"

	"github.com/jun/drivegate/internal/app"
	"github.com/jun/drivegate/internal/config"
)

// maxBodyBytes mirrors the API Gateway payload limit.
const maxBodyBytes = 10 << 20

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		hclog.Default().Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	root := app.NewLogger(cfg, os.Stderr)
	logger := root.Named("server")

	application, err := app.Wire(context.Background(), cfg, os.Getenv, root)
	if err != nil {
		logger.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.HandleFunc("/*", proxy(application))

	addr := ":" + cfg.Port
	logger.Info("starting local server", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// proxy adapts a net/http request to the API Gateway event the app routes.
func proxy(application *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		req := events.APIGatewayProxyRequest{
			Path:                            r.URL.Path,
			HTTPMethod:                      r.Method,
			Headers:                         make(map[string]string),
			MultiValueHeaders:               r.Header,
			QueryStringParameters:           make(map[string]string),
			MultiValueQueryStringParameters: r.URL.Query(),
		}
		for k, v := range r.Header {
			req.Headers[k] = v[0]
		}
		for k, v := range r.URL.Query() {
			req.QueryStringParameters[k] = v[0]
		}
		if utf8.Valid(body) {
			req.Body = string(body)
		} else {
			req.Body = base64.StdEncoding.EncodeToString(body)
			req.IsBase64Encoded = true
		}

		resp, err := application.HandleRequest(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	}
}
