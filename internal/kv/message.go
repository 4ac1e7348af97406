package kv

import (
	"context"
	"encoding/json"
	"time"

	"tubearchivist/internal/domain/keys"
)

// SetMessage stores a UI message under message:<group>:<shortID> with a
// TTL. Messages are the only shape the frontend polls for progress.
func (s *Store) SetMessage(ctx context.Context, group, shortID string, msg any, ttl time.Duration) error {
	return s.SetJSON(ctx, keys.MessagePrefix+":"+group+":"+shortID, msg, ttl)
}

// Messages returns all live messages, optionally filtered by group.
func (s *Store) Messages(ctx context.Context, group string) ([]json.RawMessage, error) {
	prefix := keys.MessagePrefix + ":"
	if group != "" {
		prefix += group + ":"
	}
	ks, err := s.KeysByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	out := make([]json.RawMessage, 0, len(ks))
	for _, k := range ks {
		raw, err := s.Get(ctx, k)
		if err != nil {
			continue // expired between scan and read
		}
		out = append(out, json.RawMessage(raw))
	}
	return out, nil
}

// ClearMessages drops every message key. Used during startup.
func (s *Store) ClearMessages(ctx context.Context) (int, error) {
	return s.DelByPrefix(ctx, keys.MessagePrefix+":")
}
