// Package blob abstracts the object storage that dataset files live in.
// Three drivers are provided: s3 for production, fs for local work, and
// memory for tests.
package blob

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Driver names accepted by Open.
const (
	DriverS3     = "s3"
	DriverFS     = "fs"
	DriverMemory = "memory"
)

var (
	// ErrNotFound is returned when no object exists at a key.
	ErrNotFound = errors.New("blob: not found")
	// ErrPreconditionFailed is returned by a conditional Put when the
	// object changed since it was loaded.
	ErrPreconditionFailed = errors.New("blob: precondition failed")
)

// Info describes a stored object.
type Info struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// PutOptions controls a Put. When ExpectedETag is set the write only
// succeeds if the stored object still carries that ETag; use it to refuse
// overwriting a concurrent writer's save.
type PutOptions struct {
	ContentType  string
	ExpectedETag string
}

// Store is the object storage interface used by every dataset operation.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, Info, error)
	Head(ctx context.Context, key string) (Info, error)
	Put(ctx context.Context, key string, data []byte, opts PutOptions) (Info, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Delete(ctx context.Context, key string) error
}

// Config selects and parameterizes a driver.
type Config struct {
	Driver string

	// s3 driver
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool

	// fs driver
	Root string
}

// Open constructs a store for the configured driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverS3:
		return NewS3(ctx, cfg)
	case DriverFS:
		return NewFS(cfg.Root)
	case DriverMemory, "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
