package secret

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSMClient struct {
	params map[string]string
}

func (f *fakeSSMClient) GetParameter(_ context.Context, input *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	val, ok := f.params[*input.Name]
	if !ok {
		return nil, fmt.Errorf("parameter not found: %s", *input.Name)
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:  input.Name,
			Value: aws.String(val),
		},
	}, nil
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestSSMResolver_GetSecret_Success(t *testing.T) {
	client := &fakeSSMClient{
		params: map[string]string{
			"/drivegate/client-secret": "super-secret-value",
		},
	}
	resolver := NewSSMResolver(client)

	val, err := resolver.GetSecret(context.Background(), "/drivegate/client-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "super-secret-value" {
		t.Fatalf("expected %q, got %q", "super-secret-value", val)
	}
}

func TestSSMResolver_GetSecret_NotFound(t *testing.T) {
	resolver := NewSSMResolver(&fakeSSMClient{params: map[string]string{}})

	_, err := resolver.GetSecret(context.Background(), "/drivegate/nonexistent")
	if err == nil {
		t.Fatal("expected error for missing parameter, got nil")
	}
}

func TestEnvResolver_GetSecret(t *testing.T) {
	resolver := NewEnvResolverFunc(envMap(map[string]string{"API_KEY": "k-123"}))

	val, err := resolver.GetSecret(context.Background(), "/drivegate/api-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "k-123" {
		t.Fatalf("expected %q, got %q", "k-123", val)
	}

	if _, err := resolver.GetSecret(context.Background(), "/drivegate/client-secret"); err == nil {
		t.Fatal("expected error for unset variable, got nil")
	}
}

func TestResolveAll_CollectsEveryFailure(t *testing.T) {
	resolver := NewEnvResolverFunc(envMap(map[string]string{"API_KEY": "k-123"}))

	values, err := ResolveAll(context.Background(), resolver,
		"/drivegate/api-key", "/drivegate/client-secret", "/drivegate/other-secret")
	if err == nil {
		t.Fatal("expected aggregated error, got nil")
	}
	if !strings.Contains(err.Error(), "CLIENT_SECRET") || !strings.Contains(err.Error(), "OTHER_SECRET") {
		t.Errorf("expected both missing names in error, got %v", err)
	}
	if values["/drivegate/api-key"] != "k-123" {
		t.Errorf("expected resolved api key, got %q", values["/drivegate/api-key"])
	}
}

func TestResolveAll_NoError(t *testing.T) {
	resolver := NewEnvResolverFunc(envMap(map[string]string{"API_KEY": "a", "CLIENT_SECRET": "b"}))

	values, err := ResolveAll(context.Background(), resolver, "/drivegate/api-key", "/drivegate/client-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 2 {
		t.Errorf("expected 2 values, got %d", len(values))
	}
}

func TestParamNameToEnvVar(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/drivegate/client-secret", "CLIENT_SECRET"},
		{"/drivegate/api-key", "API_KEY"},
		{"simple-name", "SIMPLE_NAME"},
		{"/a/b/c/deep-nested-param", "DEEP_NESTED_PARAM"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := paramNameToEnvVar(tt.input)
			if got != tt.expected {
				t.Errorf("paramNameToEnvVar(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
