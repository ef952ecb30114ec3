// Package store persists one conversation per user key as a JSON object in
// a bucket-style backend.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrObjectNotExist is returned by ObjectStore implementations when the
// named object is absent.
var ErrObjectNotExist = errors.New("object does not exist")

// ObjectStore is the narrow view of the blob backend the gateway needs:
// keyed objects with bytes and a last-write timestamp.
type ObjectStore interface {
	Exists(ctx context.Context, name string) (bool, error)
	LastModified(ctx context.Context, name string) (time.Time, error)
	Download(ctx context.Context, name string) ([]byte, error)
	Upload(ctx context.Context, name string, data []byte, contentType string) error
}

// Error wraps a backend I/O or encoding failure on load or save.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return "store " + e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func storeErr(op, key string, err error) error {
	return &Error{Op: op, Key: key, Err: err}
}
