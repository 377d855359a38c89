package store

import (
	"encoding/json"
	"time"
)

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Document is one stored knowledge-base page. Blocks holds the serialized
// block tree; SearchText is its flattened text, kept for full-text search.
type Document struct {
	ID         string
	Title      string
	Blocks     json.RawMessage
	SearchText string
	Revision   int64
	HeadHash   string
	CreatedBy  string
	UpdatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Asset is the metadata row of an uploaded binary referenced by image blocks.
type Asset struct {
	Key         string
	DocumentID  string
	FileName    string
	ContentType string
	SizeBytes   int64
	UploadedBy  string
	CreatedAt   time.Time
}
