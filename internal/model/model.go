package model

import "time"

// CachedToken is the shared bearer token record stored in DynamoDB so that
// warm Lambda instances can reuse one token instead of each exchanging its own.
type CachedToken struct {
	Key            string    `json:"key" dynamodbav:"key"`
	EncryptedToken string    `json:"encrypted_token" dynamodbav:"encrypted_token"`
	Expiry         time.Time `json:"expiry" dynamodbav:"expiry"`
	ExpiresAt      int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix timestamp)
	UpdatedAt      time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// ReadRequest is the body of POST /read.
type ReadRequest struct {
	Path string `json:"path"`
}

// ReadByIDRequest is the body of POST /read_by_id.
type ReadByIDRequest struct {
	ID      string `json:"id"`
	DriveID string `json:"driveId,omitempty"`
	Name    string `json:"name,omitempty"`
}

// ExtractedDocument is the text returned by the read endpoints.
// Text never exceeds the configured character cap plus the truncation marker.
type ExtractedDocument struct {
	Source      string `json:"path"`
	Name        string `json:"name,omitempty"`
	Text        string `json:"text"`
	Truncated   bool   `json:"truncated"`
	Unsupported bool   `json:"unsupported,omitempty"`
}
