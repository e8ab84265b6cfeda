// Package store persists reader state: bookmarks, chat history, notebooks,
// mind maps and library files. Small payloads live in a SQLite key-value
// table; payloads over the threshold go to a blob adapter and the table
// keeps a reference.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/yuanying/epubreader/internal/config"
)

const (
	tagInline byte = 'i'
	tagBlob   byte = 'b'

	blobPrefix = "payloads/"
)

// Store is created once per application session and shared by the
// collections built on it.
type Store struct {
	kv        *KV
	blobs     BlobAdapter
	threshold int
	log       *zap.Logger
	now       func() time.Time
}

// Open opens the database and blob adapter described by cfg.
func Open(cfg config.StorageConfig, log *zap.Logger) (*Store, error) {
	kv, err := OpenKV(cfg.Database)
	if err != nil {
		return nil, err
	}
	blobs, err := NewBlobAdapter(cfg.Blob)
	if err != nil {
		return nil, multierr.Append(err, kv.Close())
	}
	return New(kv, blobs, cfg.BlobThreshold, log), nil
}

// New assembles a store from its parts. A threshold of zero or less selects
// the default.
func New(kv *KV, blobs BlobAdapter, threshold int, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = config.DefaultBlobThreshold
	}
	return &Store{
		kv:        kv,
		blobs:     blobs,
		threshold: threshold,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PutPayload stores data under key, inline or as a blob depending on size.
// A blob left over from a previous, larger value is removed.
func (s *Store) PutPayload(ctx context.Context, key string, data []byte) error {
	old, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}

	if len(data) > s.threshold {
		path := blobPath(key)
		if err := s.blobs.Put(ctx, path, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to store payload %s: %w", key, err)
		}
		return s.kv.Put(ctx, key, append([]byte{tagBlob}, path...))
	}

	if err := s.kv.Put(ctx, key, append([]byte{tagInline}, data...)); err != nil {
		return err
	}
	if found && len(old) > 0 && old[0] == tagBlob {
		if err := s.blobs.Delete(ctx, string(old[1:])); err != nil {
			s.log.Warn("Unable to remove stale blob", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// GetPayload returns the data stored under key, or ErrNotFound.
func (s *Store) GetPayload(ctx context.Context, key string) ([]byte, error) {
	value, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found || len(value) == 0 {
		return nil, fmt.Errorf("payload %s: %w", key, ErrNotFound)
	}

	switch value[0] {
	case tagInline:
		return value[1:], nil
	case tagBlob:
		r, err := s.blobs.Get(ctx, string(value[1:]))
		if err != nil {
			return nil, fmt.Errorf("failed to load payload %s: %w", key, err)
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload %s: %w", key, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("payload %s: unknown storage tag %q", key, value[0])
	}
}

// DeletePayload removes key and its blob, reporting whether key existed.
func (s *Store) DeletePayload(ctx context.Context, key string) (bool, error) {
	value, found, err := s.kv.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if len(value) > 0 && value[0] == tagBlob {
		if err := s.blobs.Delete(ctx, string(value[1:])); err != nil {
			return false, fmt.Errorf("failed to delete payload %s: %w", key, err)
		}
	}
	return s.kv.Delete(ctx, key)
}

// Keys lists payload keys with the given prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	return s.kv.Keys(ctx, prefix)
}

// Close releases the database and the blob adapter.
func (s *Store) Close() error {
	return multierr.Combine(s.kv.Close(), s.blobs.Close())
}

// GetJSON decodes the payload under key into v. found is false when the key
// is absent.
func (s *Store) GetJSON(ctx context.Context, key string, v any) (found bool, err error) {
	data, err := s.GetPayload(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// PutJSON stores v encoded as JSON.
func (s *Store) PutJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.PutPayload(ctx, key, data)
}

func blobPath(key string) string {
	return blobPrefix + url.PathEscape(key)
}
