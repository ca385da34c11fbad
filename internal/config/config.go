// Package config loads the gateway configuration from environment variables.
package config

import (
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"
)

const (
	DefaultMaxChars          = 500000
	DefaultPort              = "8000"
	DefaultGraphBaseURL      = "https://graph.microsoft.com/v1.0"
	DefaultAuthorityHost     = "https://login.microsoftonline.com"
	DefaultGraphScope        = "https://graph.microsoft.com/.default"
	DefaultClientSecretParam = "/drivegate/client-secret"
	DefaultAPIKeyParam       = "/drivegate/api-key"
	DefaultKMSKeyID          = "alias/drivegate-token-key"

	ModeStrict  = "strict"
	ModeLenient = "lenient"

	SecretSourceEnv = "env"
	SecretSourceSSM = "ssm"
)

// Config is the gateway configuration. Secrets (client secret, API key)
// are not read here; see internal/secret.
type Config struct {
	ClientID     string
	TenantID     string
	OneDriveUser string
	MaxChars     int
	Port         string
	ExtractMode  string
	DevMode      bool

	GraphBaseURL  string
	AuthorityHost string
	GraphScope    string

	SecretSource      string
	ClientSecretParam string
	APIKeyParam       string

	// TokenTable enables the shared DynamoDB token cache when set.
	TokenTable string
	KMSKeyID   string

	AllowedOrigin string
	LogLevel      string
	LogFormat     string
}

// Load reads the configuration through getenv (usually os.Getenv) and validates it.
func Load(getenv func(string) string) (*Config, error) {
	var errs *multierror.Error

	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		ClientID:          get("CLIENT_ID", ""),
		TenantID:          get("TENANT_ID", ""),
		OneDriveUser:      get("ONEDRIVE_USER", ""),
		Port:              get("PORT", DefaultPort),
		ExtractMode:       strings.ToLower(get("EXTRACT_MODE", ModeStrict)),
		DevMode:           get("DEV_MODE", "") == "true",
		GraphBaseURL:      strings.TrimRight(get("GRAPH_BASE_URL", DefaultGraphBaseURL), "/"),
		AuthorityHost:     strings.TrimRight(get("AUTHORITY_HOST", DefaultAuthorityHost), "/"),
		GraphScope:        get("GRAPH_SCOPE", DefaultGraphScope),
		SecretSource:      strings.ToLower(get("SECRET_SOURCE", SecretSourceEnv)),
		ClientSecretParam: get("CLIENT_SECRET_PARAM", DefaultClientSecretParam),
		APIKeyParam:       get("API_KEY_PARAM", DefaultAPIKeyParam),
		TokenTable:        get("TOKEN_TABLE", ""),
		KMSKeyID:          get("KMS_KEY_ID", DefaultKMSKeyID),
		AllowedOrigin:     get("ALLOWED_ORIGIN", "*"),
		LogLevel:          get("LOG_LEVEL", "info"),
		LogFormat:         strings.ToLower(get("LOG_FORMAT", "text")),
	}

	cfg.MaxChars = DefaultMaxChars
	if raw := get("MAX_CHARS", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("MAX_CHARS: %q is not an integer", raw))
		} else {
			cfg.MaxChars = n
		}
	}

	if err := cfg.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. Credentials are allowed to be empty here;
// the token cache reports them as missing on first use, and dev mode
// never needs them.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxChars, validation.Required, validation.Min(1)),
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.ExtractMode, validation.In(ModeStrict, ModeLenient)),
		validation.Field(&c.SecretSource, validation.In(SecretSourceEnv, SecretSourceSSM)),
		validation.Field(&c.GraphBaseURL, validation.Required),
		validation.Field(&c.AuthorityHost, validation.Required),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
		validation.Field(&c.OneDriveUser, validation.When(!c.DevMode && c.ClientID != "", validation.Required)),
	)
}

// Lenient reports whether unsupported formats yield empty text instead of an error.
func (c *Config) Lenient() bool {
	return c.ExtractMode == ModeLenient
}
