package crypto

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// fakeKMSClient "encrypts" by prefixing the scope from the encryption context.
type fakeKMSClient struct {
	lastKeyID string
}

func (f *fakeKMSClient) Encrypt(_ context.Context, in *kms.EncryptInput, _ ...func(*kms.Options)) (*kms.EncryptOutput, error) {
	f.lastKeyID = *in.KeyId
	blob := append([]byte(in.EncryptionContext["drivegate:scope"]+"|"), in.Plaintext...)
	return &kms.EncryptOutput{CiphertextBlob: blob}, nil
}

func (f *fakeKMSClient) Decrypt(_ context.Context, in *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	prefix := in.EncryptionContext["drivegate:scope"] + "|"
	blob := string(in.CiphertextBlob)
	if len(blob) < len(prefix) || blob[:len(prefix)] != prefix {
		return nil, fmt.Errorf("InvalidCiphertextException")
	}
	return &kms.DecryptOutput{Plaintext: []byte(blob[len(prefix):])}, nil
}

func TestKMSService_RoundTrip(t *testing.T) {
	client := &fakeKMSClient{}
	s := NewKMSService(client, "alias/test-key")
	ctx := context.Background()

	sealed, err := s.Encrypt(ctx, "tenant/client", "secret-token")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if client.lastKeyID != "alias/test-key" {
		t.Errorf("Expected key 'alias/test-key', got '%s'", client.lastKeyID)
	}
	if _, err := base64.StdEncoding.DecodeString(sealed); err != nil {
		t.Errorf("Expected base64 ciphertext, got %q", sealed)
	}

	opened, err := s.Decrypt(ctx, "tenant/client", sealed)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if opened != "secret-token" {
		t.Errorf("Expected 'secret-token', got '%s'", opened)
	}
}

func TestKMSService_DecryptWrongScope(t *testing.T) {
	s := NewKMSService(&fakeKMSClient{}, "alias/test-key")
	ctx := context.Background()

	sealed, _ := s.Encrypt(ctx, "tenant-a/client", "secret-token")
	if _, err := s.Decrypt(ctx, "tenant-b/client", sealed); err == nil {
		t.Error("Expected error when decrypting under another scope, got nil")
	}
}

func TestKMSService_DecryptBadBase64(t *testing.T) {
	s := NewKMSService(&fakeKMSClient{}, "alias/test-key")
	if _, err := s.Decrypt(context.Background(), "scope", "%%%not-base64"); err == nil {
		t.Error("Expected decode error, got nil")
	}
}

func TestMockEncryptor(t *testing.T) {
	m := NewMockEncryptor()
	ctx := context.Background()

	sealed, _ := m.Encrypt(ctx, "s1", "value")
	if sealed != "mock:s1:value" {
		t.Errorf("Expected 'mock:s1:value', got '%s'", sealed)
	}
	opened, err := m.Decrypt(ctx, "s1", sealed)
	if err != nil || opened != "value" {
		t.Errorf("Expected 'value', got '%s' (err %v)", opened, err)
	}
	if _, err := m.Decrypt(ctx, "s2", sealed); err == nil {
		t.Error("Expected scope mismatch error, got nil")
	}
}
