package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jun/drivegate/internal/crypto"
	"github.com/jun/drivegate/internal/model"
)

// Store is a second-level token cache shared between service instances.
// Load returns nil, nil when nothing is stored under key.
type Store interface {
	Load(ctx context.Context, key string) (*Token, error)
	Save(ctx context.Context, key string, tok Token) error
}

// DynamoClient is the subset of *dynamodb.Client methods used by DynamoStore.
type DynamoClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore keeps the encrypted bearer token in a DynamoDB table keyed by
// tenant/client. Items carry an expires_at TTL attribute.
// If client is nil, it uses an in-memory map (for tests and dev mode).
type DynamoStore struct {
	client    DynamoClient
	tableName string
	encryptor crypto.Encryptor
	now       func() time.Time

	// In-memory fallback
	items map[string]model.CachedToken
	mu    sync.RWMutex
}

// NewDynamoStore creates a new DynamoStore.
func NewDynamoStore(client DynamoClient, tableName string, encryptor crypto.Encryptor) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		encryptor: encryptor,
		now:       time.Now,
		items:     make(map[string]model.CachedToken),
	}
}

// StoreKey is the record key for a tenant/client pair.
func StoreKey(tenantID, clientID string) string {
	return tenantID + "/" + clientID
}

// Save encrypts the token and writes it under key.
func (s *DynamoStore) Save(ctx context.Context, key string, tok Token) error {
	encrypted, err := s.encryptor.Encrypt(ctx, key, tok.Value)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	item := model.CachedToken{
		Key:            key,
		EncryptedToken: encrypted,
		Expiry:         tok.Expiry,
		ExpiresAt:      tok.Expiry.Unix(),
		UpdatedAt:      s.now(),
	}

	if s.client == nil {
		s.mu.Lock()
		s.items[key] = item
		s.mu.Unlock()
		return nil
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal cached token: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to save token to DynamoDB: %w", err)
	}
	return nil
}

// Load reads and decrypts the token stored under key.
func (s *DynamoStore) Load(ctx context.Context, key string) (*Token, error) {
	var item model.CachedToken

	if s.client == nil {
		s.mu.RLock()
		t, ok := s.items[key]
		s.mu.RUnlock()
		if !ok {
			return nil, nil
		}
		item = t
	} else {
		out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"key": &types.AttributeValueMemberS{Value: key},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get item from DynamoDB: %w", err)
		}
		if out.Item == nil {
			return nil, nil
		}
		if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cached token: %w", err)
		}
	}

	value, err := s.encryptor.Decrypt(ctx, key, item.EncryptedToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt cached token: %w", err)
	}
	return &Token{Value: value, Expiry: item.Expiry}, nil
}
