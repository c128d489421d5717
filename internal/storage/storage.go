package storage

import (
	"context"
	"io"
	"time"
)

// Service stores uploaded images (user avatars, book covers) in remote
// object storage and hands out short-lived read URLs.
type Service interface {
	UploadObject(ctx context.Context, key, contentType string, body io.Reader) error
	ObjectURL(ctx context.Context, key string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
}
