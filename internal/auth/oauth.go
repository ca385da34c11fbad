package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Exchanger obtains a new bearer token from the identity provider.
type Exchanger interface {
	Exchange(ctx context.Context) (Token, error)
}

// ClientCredentials exchanges an application's client id and secret for a
// Graph token (OAuth2 client-credentials grant against the v2.0 endpoint).
type ClientCredentials struct {
	config     *clientcredentials.Config
	tenantID   string
	httpClient *http.Client
}

// NewClientCredentials builds the exchanger. authorityHost is usually
// "https://login.microsoftonline.com".
func NewClientCredentials(clientID, clientSecret, tenantID, authorityHost, scope string, httpClient *http.Client) *ClientCredentials {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ClientCredentials{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", authorityHost, tenantID),
			Scopes:       []string{scope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		tenantID:   tenantID,
		httpClient: httpClient,
	}
}

// Config returns the underlying client-credentials config.
func (c *ClientCredentials) Config() *clientcredentials.Config {
	return c.config
}

// Exchange performs one token request. It never caches.
func (c *ClientCredentials) Exchange(ctx context.Context) (Token, error) {
	if c.config.ClientID == "" || c.config.ClientSecret == "" || c.tenantID == "" {
		return Token{}, &Error{
			Code:        "missing_credentials",
			Description: "CLIENT_ID, CLIENT_SECRET and TENANT_ID must be configured",
		}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.config.Token(ctx)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return Token{}, providerError(re)
		}
		return Token{}, &Error{Code: "token_request_failed", Description: err.Error(), Err: err}
	}

	return Token{Value: tok.AccessToken, Expiry: tok.Expiry}, nil
}

// providerError keeps the identity provider's error, error_description and
// correlation_id fields.
func providerError(re *oauth2.RetrieveError) *Error {
	e := &Error{
		Code:        re.ErrorCode,
		Description: re.ErrorDescription,
		Err:         re,
	}
	if re.Response != nil {
		e.StatusCode = re.Response.StatusCode
	}

	var body struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		CorrelationID    string `json:"correlation_id"`
		TraceID          string `json:"trace_id"`
	}
	if len(re.Body) > 0 && json.Unmarshal(re.Body, &body) == nil {
		if e.Code == "" {
			e.Code = body.Error
		}
		if e.Description == "" {
			e.Description = body.ErrorDescription
		}
		e.CorrelationID = body.CorrelationID
		e.TraceID = body.TraceID
	}
	if e.Code == "" {
		e.Code = "token_request_failed"
		if e.Description == "" {
			e.Description = string(re.Body)
		}
	}
	return e
}
