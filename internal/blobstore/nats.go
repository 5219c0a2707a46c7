package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
)

// NATSStore keeps blobs in a JetStream key/value bucket, letting a fleet
// controller read or seed node configuration.
type NATSStore struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATSStore connects to url and opens (or creates) bucket.
func NewNATSStore(ctx context.Context, url, bucket string) (*NATSStore, error) {
	conn, err := nats.Connect(url, nats.Name("linkkeeper-blobstore"))
	if err != nil {
		return nil, storageError(fmt.Errorf("connect to NATS: %w", err), "open store", "")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, storageError(fmt.Errorf("create JetStream context: %w", err), "open store", "")
	}

	kv, err := openBucket(ctx, js, bucket)
	if err != nil {
		conn.Close()
		return nil, storageError(err, "open store", "")
	}

	slog.Info("NATS blob store ready", logfields.Backend("nats"), slog.String("bucket", bucket))
	return &NATSStore{conn: conn, kv: kv}, nil
}

func openBucket(ctx context.Context, js jetstream.JetStream, bucket string) (jetstream.KeyValue, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(ctx, bucket)
	if err == nil {
		return kv, nil
	}

	kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "linkkeeper node configuration",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create KV bucket: %w", err)
	}
	slog.Info("Created KV bucket", slog.String("bucket", bucket))
	return kv, nil
}

func (s *NATSStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, storageError(err, "get blob", key)
	}
	return entry.Value(), true, nil
}

func (s *NATSStore) Save(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if _, err := s.kv.Put(ctx, key, data); err != nil {
		return storageError(err, "put blob", key)
	}
	return nil
}

func (s *NATSStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
