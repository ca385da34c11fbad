// Package secret retrieves the gateway's secrets (client secret, API key)
// from SSM Parameter Store or from environment variables.
package secret

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/hashicorp/go-multierror"
)

// SSMClient is the subset of *ssm.Client methods used by SSMResolver.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolver retrieves secret values by name.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SSMResolver fetches secrets from AWS Systems Manager Parameter Store.
type SSMResolver struct {
	client SSMClient
}

// NewSSMResolver returns a Resolver backed by SSM Parameter Store.
func NewSSMResolver(client SSMClient) Resolver {
	return &SSMResolver{client: client}
}

// GetSecret retrieves a SecureString parameter from SSM with decryption.
func (r *SSMResolver) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm get parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %q has no value", name)
	}
	return *out.Parameter.Value, nil
}

// EnvResolver fetches secrets from environment variables.
// "/drivegate/client-secret" is read from CLIENT_SECRET, "/drivegate/api-key"
// from API_KEY: last path segment, uppercased, hyphens to underscores.
type EnvResolver struct {
	getenv func(string) string
}

// NewEnvResolver returns a Resolver that reads from the process environment.
func NewEnvResolver() Resolver {
	return &EnvResolver{getenv: os.Getenv}
}

// NewEnvResolverFunc returns a Resolver reading through getenv.
func NewEnvResolverFunc(getenv func(string) string) Resolver {
	return &EnvResolver{getenv: getenv}
}

// GetSecret reads from the environment variable derived from the parameter name.
func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	envName := paramNameToEnvVar(name)
	val := r.getenv(envName)
	if val == "" {
		return "", fmt.Errorf("environment variable %q (from param %q) is not set", envName, name)
	}
	return val, nil
}

// ResolveAll looks up every name and returns the values keyed by name.
// Missing secrets do not stop the lookup; all failures come back together.
func ResolveAll(ctx context.Context, r Resolver, names ...string) (map[string]string, error) {
	values := make(map[string]string, len(names))
	var result *multierror.Error
	for _, name := range names {
		val, err := r.GetSecret(ctx, name)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		values[name] = val
	}
	return values, result.ErrorOrNil()
}

// paramNameToEnvVar converts an SSM parameter name to an environment variable name.
// "/drivegate/client-secret" -> "CLIENT_SECRET"
func paramNameToEnvVar(name string) string {
	parts := strings.Split(name, "/")
	last := parts[len(parts)-1]
	return strings.ToUpper(strings.ReplaceAll(last, "-", "_"))
}
