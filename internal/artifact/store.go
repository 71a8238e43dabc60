// Package artifact abstracts the object store holding satellite frames and
// the per-city rolling animations.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes a stored object. Listings carry no ordering
// guarantee; callers sort by LastModified as needed.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
}

// Store is the object-store contract used by the imagery pipeline: writes
// always overwrite, listings are by key prefix.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Config selects and parameterises a store backend.
type Config struct {
	Backend string // "minio" or "memory"

	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// New builds the configured store backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "minio":
		return NewMinioStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
