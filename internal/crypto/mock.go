package crypto

import (
	"context"
	"fmt"
	"strings"
)

// MockEncryptor implements Encryptor for local development (no KMS required).
// Values are only tagged with their scope, not encrypted.
type MockEncryptor struct{}

func NewMockEncryptor() *MockEncryptor {
	return &MockEncryptor{}
}

func (m *MockEncryptor) Encrypt(_ context.Context, scope, plaintext string) (string, error) {
	return "mock:" + scope + ":" + plaintext, nil
}

func (m *MockEncryptor) Decrypt(_ context.Context, scope, ciphertext string) (string, error) {
	prefix := "mock:" + scope + ":"
	if !strings.HasPrefix(ciphertext, prefix) {
		return "", fmt.Errorf("ciphertext not sealed for scope %q", scope)
	}
	return strings.TrimPrefix(ciphertext, prefix), nil
}
