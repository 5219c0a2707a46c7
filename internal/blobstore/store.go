// Package blobstore persists opaque configuration blobs by key. The supervisor
// stores credentials and the local AP override here; the uplink stores its
// settings. Backends: memory, local files, SQLite and NATS JetStream KV.
package blobstore

import (
	"context"
	"regexp"

	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
)

// Well-known keys.
const (
	KeyCredentials = "credentials"
	KeyAccessPoint = "access_point"
	KeyUplink      = "uplink"
)

// Store is an opaque key/value blob store. Load reports absence with ok=false
// and a nil error.
type Store interface {
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return ferrors.ValidationError("invalid blob key").WithContext("key", key).Build()
	}
	return nil
}

func storageError(err error, op, key string) error {
	return ferrors.WrapError(err, ferrors.CategoryStorage, op).
		WithContext("key", key).Retryable().Build()
}
