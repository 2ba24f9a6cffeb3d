package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes a stored blob.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// SignOptions tune a signed URL. Width asks for a downscaled rendition where
// the backend supports it and is ignored otherwise.
type SignOptions struct {
	Expiry time.Duration
	Width  int
}

// Storage is the object store holding order photos. Keys never carry the
// "orders/" reference prefix.
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, keys ...string) error
	SignedURL(ctx context.Context, key string, opts SignOptions) (string, error)
}
