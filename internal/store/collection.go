package store

import (
	"context"
	"strings"
)

// loadAll reads every per-book record list stored under prefix, keyed by
// book id. Books with no records are left out.
func loadAll[T any](ctx context.Context, s *Store, prefix string) (map[string][]T, error) {
	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]T, len(keys))
	for _, key := range keys {
		var recs []T
		found, err := s.GetJSON(ctx, key, &recs)
		if err != nil {
			return nil, err
		}
		if found && len(recs) > 0 {
			out[strings.TrimPrefix(key, prefix)] = recs
		}
	}
	return out, nil
}

func loadList[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	var recs []T
	if _, err := s.GetJSON(ctx, key, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// saveList stores recs under key. An empty list removes the key.
func saveList[T any](ctx context.Context, s *Store, key string, recs []T) error {
	if len(recs) == 0 {
		_, err := s.DeletePayload(ctx, key)
		return err
	}
	return s.PutJSON(ctx, key, recs)
}
