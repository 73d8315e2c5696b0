// internal/storage/archive/interface.go
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("archive: object not found")

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Storage defines the interface for the object stores holding price datasets
// and exported series.
type Storage interface {
	// Open streams the object at path. Callers must close the reader.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Write stores data at the given path, replacing any existing object
	Write(ctx context.Context, path string, data []byte) error

	// Stat returns metadata for the object at path
	Stat(ctx context.Context, path string) (ObjectInfo, error)
}

// Config selects and configures a storage backend.
type Config struct {
	Type string // "localfs" or "s3"
	Path string // base directory for localfs
	S3   S3Config
}

// New builds the backend named by cfg.Type.
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
