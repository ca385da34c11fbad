package app

import (
	"context"
	"fmt"
	"io"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/hashicorp/go-hclog"

	"github.com/jun/drivegate/internal/adapter"
	"github.com/jun/drivegate/internal/adapter/memory"
	"github.com/jun/drivegate/internal/adapter/onedrive"
	"github.com/jun/drivegate/internal/auth"
	"github.com/jun/drivegate/internal/config"
	"github.com/jun/drivegate/internal/crypto"
	"github.com/jun/drivegate/internal/graph"
	"github.com/jun/drivegate/internal/secret"
)

// NewApp initializes the application dependencies from the process
// environment. It panics when the configuration is invalid.
func NewApp(ctx context.Context) *App {
	app, err := Build(ctx, os.Getenv, os.Stderr)
	if err != nil {
		panic(fmt.Sprintf("unable to initialize %s: %v", ServiceName, err))
	}
	return app
}

// Build wires the App from configuration read through getenv. Logs go to out.
func Build(ctx context.Context, getenv func(string) string, out io.Writer) (*App, error) {
	cfg, err := config.Load(getenv)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return Wire(ctx, cfg, getenv, NewLogger(cfg, out))
}

// Wire builds the App from an already loaded configuration. getenv backs
// the env secret resolver.
func Wire(ctx context.Context, cfg *config.Config, getenv func(string) string, logger hclog.Logger) (*App, error) {
	var err error

	// AWS is only needed for SSM secrets or the shared token table.
	var clients *awsClients
	if cfg.SecretSource == config.SecretSourceSSM || cfg.TokenTable != "" {
		if clients, err = loadAWS(ctx); err != nil {
			return nil, err
		}
	}

	// ---------- Secret Resolver ----------
	var resolver secret.Resolver
	if cfg.SecretSource == config.SecretSourceSSM {
		resolver = secret.NewSSMResolver(clients.ssm)
		logger.Info("using SSM parameter store for secrets")
	} else {
		resolver = secret.NewEnvResolverFunc(getenv)
	}
	secrets, err := secret.ResolveAll(ctx, resolver, cfg.ClientSecretParam, cfg.APIKeyParam)
	if err != nil {
		logger.Warn("some secrets could not be resolved", "error", err)
	}
	apiKey := secrets[cfg.APIKeyParam]
	if apiKey == "" {
		logger.Warn("no API key configured: every guarded route will answer 403")
	}

	// ---------- Token Cache ----------
	exchanger := auth.NewClientCredentials(cfg.ClientID, secrets[cfg.ClientSecretParam], cfg.TenantID, cfg.AuthorityHost, cfg.GraphScope, nil)
	cacheOpts := []auth.Option{auth.WithLogger(logger.Named("auth"))}
	if cfg.TokenTable != "" {
		var encryptor crypto.Encryptor
		if cfg.DevMode {
			encryptor = crypto.NewMockEncryptor()
		} else {
			encryptor = crypto.NewKMSService(clients.kms, cfg.KMSKeyID)
		}
		store := auth.NewDynamoStore(clients.dynamo, cfg.TokenTable, encryptor)
		cacheOpts = append(cacheOpts, auth.WithStore(store, auth.StoreKey(cfg.TenantID, cfg.ClientID)))
		logger.Info("sharing tokens through DynamoDB", "table", cfg.TokenTable)
	}
	tokens := auth.NewTokenCache(exchanger, cacheOpts...)

	// ---------- Drive ----------
	var drive adapter.Drive
	if cfg.DevMode {
		drive = memory.NewDemoAdapter()
		logger.Info("using in-memory demo drive (DEV_MODE=true)")
	} else {
		client := graph.NewClient(cfg.GraphBaseURL, tokens, graph.WithLogger(logger.Named("graph")))
		drive = onedrive.NewDriveAdapter(client, cfg.OneDriveUser)
	}

	return New(Options{
		Drive:         drive,
		Tokens:        tokens,
		APIKey:        apiKey,
		MaxChars:      cfg.MaxChars,
		Lenient:       cfg.Lenient(),
		GraphScope:    cfg.GraphScope,
		TenantID:      cfg.TenantID,
		AllowedOrigin: cfg.AllowedOrigin,
		Logger:        logger,
	}), nil
}

// NewLogger builds the root logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *config.Config, out io.Writer) hclog.Logger {
	level := hclog.LevelFromString(cfg.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       ServiceName,
		Level:      level,
		Output:     out,
		JSONFormat: cfg.LogFormat == "json",
	})
}

type awsClients struct {
	ssm    *ssm.Client
	kms    *kms.Client
	dynamo *dynamodb.Client
}

func loadAWS(ctx context.Context) (*awsClients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &awsClients{
		ssm:    ssm.NewFromConfig(cfg),
		kms:    kms.NewFromConfig(cfg),
		dynamo: dynamodb.NewFromConfig(cfg),
	}, nil
}
