package storage

import "context"

// ObjectStore is the minimal object-storage surface the services need.
// Implemented by R2Store; tests use in-memory fakes.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
}
