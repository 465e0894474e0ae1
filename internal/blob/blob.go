// Package blob abstracts the object store holding raw archives, menu
// snapshots, manifests, audit logs, and live menu documents.
package blob

import (
	"context"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned by Get when no object exists under a key.
var ErrNotFound = eris.New("blob: not found")

// Store is a minimal key/value object store. Put overwrites; Get returns
// ErrNotFound for absent keys.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) ([]byte, error)
}
