package kv

import (
	"context"
	"errors"

	"tubearchivist/internal/errs"

	"github.com/redis/go-redis/v9"
)

// Queue is an ordered list of ids backed by a Redis list. Re-adding an
// id with priority first removes any existing occurrence, so an id
// appears at most once.
type Queue struct {
	s   *Store
	key string
}

// Queue returns the named queue.
func (s *Store) Queue(name string) *Queue {
	return &Queue{s: s, key: name}
}

// Add appends ids to the back of the queue.
func (q *Queue) Add(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	vals := make([]any, len(ids))
	for i, id := range ids {
		vals[i] = id
	}
	return q.s.rdb.RPush(ctx, q.s.key(q.key), vals...).Err()
}

// AddPriority moves id to the front of the queue, removing any prior
// occurrence first.
func (q *Queue) AddPriority(ctx context.Context, id string) error {
	full := q.s.key(q.key)
	if err := q.s.rdb.LRem(ctx, full, 0, id).Err(); err != nil {
		return err
	}
	return q.s.rdb.LPush(ctx, full, id).Err()
}

// Next pops the id at the front. Returns ErrNotFound when empty.
func (q *Queue) Next(ctx context.Context) (string, error) {
	id, err := q.s.rdb.LPop(ctx, q.s.key(q.key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", errs.ErrNotFound
	}
	return id, err
}

// Remove drops all occurrences of id.
func (q *Queue) Remove(ctx context.Context, id string) error {
	return q.s.rdb.LRem(ctx, q.s.key(q.key), 0, id).Err()
}

// Contains reports whether id is queued.
func (q *Queue) Contains(ctx context.Context, id string) (bool, error) {
	_, err := q.s.rdb.LPos(ctx, q.s.key(q.key), id, redis.LPosArgs{}).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// All returns the queued ids front to back.
func (q *Queue) All(ctx context.Context) ([]string, error) {
	return q.s.rdb.LRange(ctx, q.s.key(q.key), 0, -1).Result()
}

// Len returns the queue length.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.s.rdb.LLen(ctx, q.s.key(q.key)).Result()
}

// Clear drops the whole queue.
func (q *Queue) Clear(ctx context.Context) error {
	return q.s.rdb.Del(ctx, q.s.key(q.key)).Err()
}

// Trim keeps only the elements between start and stop, inclusive.
func (q *Queue) Trim(ctx context.Context, start, stop int64) error {
	return q.s.rdb.LTrim(ctx, q.s.key(q.key), start, stop).Err()
}
