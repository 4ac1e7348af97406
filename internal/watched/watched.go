// Package watched tracks playback progress and the watched flag.
package watched

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/domain/keys"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/es"
	"tubearchivist/internal/kv"
)

// Tracker persists per-user playback positions in the KV store and the
// watched state on the video documents.
type Tracker struct {
	conn *es.Connection
	kvs  *kv.Store
}

// NewTracker wires a tracker.
func NewTracker(conn *es.Connection, kvs *kv.Store) *Tracker {
	return &Tracker{conn: conn, kvs: kvs}
}

func progressKey(user, youtubeID string) string {
	return user + ":" + keys.ProgressInfix + ":" + youtubeID
}

// SetPosition stores the playback position in seconds for one user.
func (t *Tracker) SetPosition(ctx context.Context, user, youtubeID string, position int64) error {
	if user == "" || youtubeID == "" {
		return fmt.Errorf("%w: user and video id required", errs.ErrValidation)
	}
	return t.kvs.Set(ctx, progressKey(user, youtubeID), strconv.FormatInt(position, 10), 0)
}

// Position loads the stored playback position, zero when unknown.
func (t *Tracker) Position(ctx context.Context, user, youtubeID string) (int64, error) {
	raw, err := t.kvs.Get(ctx, progressKey(user, youtubeID))
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

// ClearPosition drops the stored position, used when a video is marked
// watched or deleted.
func (t *Tracker) ClearPosition(ctx context.Context, user, youtubeID string) error {
	return t.kvs.Del(ctx, progressKey(user, youtubeID))
}

// MarkVideo flips the watched flag on one video. Marking watched also
// stamps the watch date, which the auto-delete pass keys on.
func (t *Tracker) MarkVideo(ctx context.Context, youtubeID string, watched bool) error {
	date := int64(0)
	if watched {
		date = time.Now().Unix()
	}
	return t.conn.UpdateDoc(ctx, consts.IndexVideo, youtubeID, map[string]any{
		"player": map[string]any{
			"watched":      watched,
			"watched_date": date,
		},
	})
}

// MarkChannel marks every video of a channel watched or unwatched.
func (t *Tracker) MarkChannel(ctx context.Context, channelID string, watched bool) error {
	return t.markByQuery(ctx, map[string]any{
		"term": map[string]any{"channel.channel_id": channelID},
	}, watched)
}

// MarkPlaylist marks every video of a playlist watched or unwatched.
func (t *Tracker) MarkPlaylist(ctx context.Context, playlistID string, watched bool) error {
	return t.markByQuery(ctx, map[string]any{
		"term": map[string]any{"playlist": playlistID},
	}, watched)
}

func (t *Tracker) markByQuery(ctx context.Context, query map[string]any, watched bool) error {
	date := int64(0)
	if watched {
		date = time.Now().Unix()
	}
	return t.conn.UpdateByQuery(ctx, consts.IndexVideo, map[string]any{
		"query": query,
		"script": map[string]any{
			"lang": "painless",
			"source": "ctx._source.player.watched = params.watched;" +
				" ctx._source.player.watched_date = params.date",
			"params": map[string]any{"watched": watched, "date": date},
		},
	})
}
