// Package assets stores the binary payloads referenced by image blocks. Bytes
// live in object storage, metadata in PostgreSQL.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"knowledgebase/internal/store"
	"knowledgebase/internal/util"
)

const (
	MaxSize    = 10 << 20
	presignTTL = 15 * time.Minute
)

var (
	ErrUnsupportedType = errors.New("unsupported asset type")
	ErrTooLarge        = errors.New("asset too large")
	ErrUnavailable     = errors.New("asset storage not configured")
)

// ObjectStore holds asset bytes.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// MetaStore holds asset metadata rows.
type MetaStore interface {
	InsertAsset(ctx context.Context, asset store.Asset) error
	GetAsset(ctx context.Context, key string) (store.Asset, error)
}

type Service struct {
	objects ObjectStore
	meta    MetaStore
}

// NewService returns a service; objects may be nil when object storage is not
// configured, in which case uploads fail with ErrUnavailable.
func NewService(objects ObjectStore, meta MetaStore) *Service {
	return &Service{objects: objects, meta: meta}
}

// Upload is one incoming file.
type Upload struct {
	DocumentID  string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	UploadedBy  string
}

func (s *Service) Upload(ctx context.Context, up Upload) (store.Asset, error) {
	if s.objects == nil {
		return store.Asset{}, ErrUnavailable
	}
	contentType := strings.ToLower(strings.TrimSpace(up.ContentType))
	if !strings.HasPrefix(contentType, "image/") {
		return store.Asset{}, fmt.Errorf("%w: %q", ErrUnsupportedType, up.ContentType)
	}
	if up.Size <= 0 || up.Size > MaxSize {
		return store.Asset{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, up.Size)
	}

	asset := store.Asset{
		Key:         "img/" + util.NewID("ast") + strings.ToLower(path.Ext(up.FileName)),
		DocumentID:  up.DocumentID,
		FileName:    path.Base(up.FileName),
		ContentType: contentType,
		SizeBytes:   up.Size,
		UploadedBy:  up.UploadedBy,
	}
	if err := s.objects.Put(ctx, asset.Key, up.Body, up.Size, contentType); err != nil {
		return store.Asset{}, fmt.Errorf("store asset: %w", err)
	}
	if err := s.meta.InsertAsset(ctx, asset); err != nil {
		_ = s.objects.Delete(ctx, asset.Key)
		return store.Asset{}, fmt.Errorf("record asset: %w", err)
	}
	return asset, nil
}

// URL returns a short-lived download link for key.
func (s *Service) URL(ctx context.Context, key string) (string, store.Asset, error) {
	if s.objects == nil {
		return "", store.Asset{}, ErrUnavailable
	}
	asset, err := s.meta.GetAsset(ctx, key)
	if err != nil {
		return "", store.Asset{}, err
	}
	link, err := s.objects.PresignGet(ctx, key, presignTTL)
	if err != nil {
		return "", store.Asset{}, err
	}
	return link, asset, nil
}
