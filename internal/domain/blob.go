package domain

import (
	"context"
	"time"
)

// ObjectInfo is one listed object.
type ObjectInfo struct {
	Key      string
	Size     int64
	Modified time.Time
}

// ObjectStore is the slice of an object store the snapshot layer needs.
// Get returns ErrNotFound for a missing key. List only returns keys directly
// under prefix, not nested ones.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
