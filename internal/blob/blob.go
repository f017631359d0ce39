// Package blob stores derivative files (exports, event lists) on the local
// filesystem, in memory, or in an S3-compatible bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/alphalat/alphalat/internal/config"
	"github.com/alphalat/alphalat/internal/epochs"
)

// Driver identifies a blob backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("blob not found")

// Store is a flat key/value object store. Put overwrites.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Driver() Driver
}

// Open selects a Store from the blob section of the config.
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.Root)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			Prefix:    cfg.Prefix,
			PathStyle: cfg.PathStyle,
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// DerivativeKey is where the power table of a subject and task is exported:
// sub-<id>/alpha/sub-<id>-alpha-power-<task>.<ext>
func DerivativeKey(subject string, task epochs.Task, ext string) string {
	sub := "sub-" + subject
	return fmt.Sprintf("%s/alpha/%s-alpha-power-%s.%s", sub, sub, task, strings.TrimPrefix(ext, "."))
}

// EventListKey is where the selected events of a subject and task are kept.
func EventListKey(subject string, task epochs.Task) string {
	sub := "sub-" + subject
	return fmt.Sprintf("%s/preprocessing/step-03-event_lists/%s-elist-%s.csv", sub, sub, task)
}

// sanitizeKey rejects keys that could escape the store root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key %q", key)
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key traversal %q", key)
	}
	return clean, nil
}
