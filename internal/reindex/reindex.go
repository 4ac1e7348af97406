// Package reindex refreshes stale documents from remote metadata on a
// rolling daily budget.
package reindex

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"time"

	"tubearchivist/internal/cfg"
	"tubearchivist/internal/config"
	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/domain/keys"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/es"
	"tubearchivist/internal/extractor"
	"tubearchivist/internal/file"
	"tubearchivist/internal/kv"
	"tubearchivist/internal/models"
	"tubearchivist/internal/utils/logging"
)

// DefaultInterval is the refresh cycle length in days.
const DefaultInterval = 90

// videoBudgetCap bounds a single daily video batch.
const videoBudgetCap = 9999

// Reindexer walks stale docs per index, re-fetches their metadata and
// preserves the locally owned fields.
type Reindexer struct {
	conn   *es.Connection
	kvs    *kv.Store
	ex     *extractor.Extractor
	appCfg *config.AppConfig
	env    *cfg.EnvConfig

	// Interval in days, DefaultInterval when zero.
	Interval int
	Stop     func() bool
}

// New wires a reindexer.
func New(conn *es.Connection, kvs *kv.Store, ex *extractor.Extractor, appCfg *config.AppConfig, env *cfg.EnvConfig) *Reindexer {
	return &Reindexer{conn: conn, kvs: kvs, ex: ex, appCfg: appCfg, env: env}
}

// WithStop returns a shallow copy polling the given per-run stop
// callback, leaving the shared instance's hook nil.
func (r *Reindexer) WithStop(stop func() bool) *Reindexer {
	cp := *r
	cp.Stop = stop
	return &cp
}

func (r *Reindexer) interval() int {
	if r.Interval > 0 {
		return r.Interval
	}
	return DefaultInterval
}

// Budget computes the daily per-index refresh batch size: enough to
// cycle through every active doc over the interval, with 20% headroom
// for growth and misses.
func Budget(totalActive int64, intervalDays int) int {
	if totalActive <= 0 || intervalDays <= 0 {
		return 0
	}
	return int(math.Ceil(float64(totalActive) / float64(intervalDays) * 1.2))
}

// Run refreshes today's batch across all three indexes.
func (r *Reindexer) Run(ctx context.Context) error {
	var errAll error
	for _, index := range []string{consts.IndexVideo, consts.IndexChannel, consts.IndexPlaylist} {
		if r.stopped() {
			break
		}
		if err := r.populate(ctx, index); err != nil {
			errAll = errors.Join(errAll, err)
			continue
		}
		if err := r.process(ctx, index); err != nil {
			errAll = errors.Join(errAll, err)
		}
	}
	return errAll
}

// populate queues today's stale ids for one index. The queue survives
// interruptions, so a restarted run resumes where it stopped.
func (r *Reindexer) populate(ctx context.Context, index string) error {
	rq := r.kvs.Queue(keys.ReindexPrefix + trimIndexPrefix(index))
	if n, err := rq.Len(ctx); err != nil {
		return err
	} else if n > 0 {
		logging.I("reindex: %s queue has %d leftover ids, resuming", index, n)
		return nil
	}

	activeField, refreshField := indexFields(index)
	total, err := r.conn.Count(ctx, index, map[string]any{
		"query": map[string]any{"term": map[string]any{activeField: true}},
	})
	if err != nil {
		return err
	}

	budget := Budget(total, r.interval())
	if index == consts.IndexVideo && budget > videoBudgetCap {
		budget = videoBudgetCap
	}
	if budget == 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -r.interval()).Unix()
	ids, err := r.staleIDs(ctx, index, activeField, refreshField, cutoff, budget)
	if err != nil {
		return err
	}

	// Backfill: the newest publications also get refreshed to catch
	// late view and like counts.
	if index == consts.IndexVideo {
		recent, err := r.recentIDs(ctx, cutoff)
		if err != nil {
			return err
		}
		ids = append(ids, recent...)
	}

	if len(ids) == 0 {
		return nil
	}
	logging.I("reindex: queueing %d ids for %s", len(ids), index)
	return rq.Add(ctx, dedup(ids)...)
}

func (r *Reindexer) staleIDs(ctx context.Context, index, activeField, refreshField string, cutoff int64, budget int) ([]string, error) {
	resp, err := r.conn.Search(ctx, index, map[string]any{
		"size": budget,
		"query": map[string]any{"bool": map[string]any{"filter": []any{
			map[string]any{"term": map[string]any{activeField: true}},
			map[string]any{"range": map[string]any{refreshField: map[string]any{"lte": cutoff}}},
		}}},
		"sort":    []any{map[string]any{refreshField: map[string]any{"order": "asc"}}},
		"_source": false,
	})
	if err != nil {
		return nil, err
	}
	return hitIDs(resp), nil
}

func (r *Reindexer) recentIDs(ctx context.Context, cutoff int64) ([]string, error) {
	resp, err := r.conn.Search(ctx, consts.IndexVideo, map[string]any{
		"size": defaultRecentBatch,
		"query": map[string]any{"bool": map[string]any{"filter": []any{
			map[string]any{"term": map[string]any{"active": true}},
			map[string]any{"range": map[string]any{"published": map[string]any{"gte": cutoff}}},
		}}},
		"sort":    []any{map[string]any{"published": map[string]any{"order": "desc"}}},
		"_source": false,
	})
	if err != nil {
		return nil, err
	}
	return hitIDs(resp), nil
}

const defaultRecentBatch = 100

// process drains the reindex queue for one index.
func (r *Reindexer) process(ctx context.Context, index string) error {
	rq := r.kvs.Queue(keys.ReindexPrefix + trimIndexPrefix(index))

	for {
		if r.stopped() {
			logging.I("reindex: stop requested on %s", index)
			return nil
		}

		id, err := rq.Next(ctx)
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		switch index {
		case consts.IndexVideo:
			err = r.refreshVideo(ctx, id)
		case consts.IndexChannel:
			err = r.refreshChannel(ctx, id)
		case consts.IndexPlaylist:
			err = r.refreshPlaylist(ctx, id)
		}
		if err != nil {
			if errors.Is(err, errs.ErrConnectionLost) || errors.Is(err, context.Canceled) {
				return err
			}
			logging.E("reindex: refreshing %s/%s failed: %v", index, id, err)
		}

		r.sleep(ctx)
	}
}

// refreshVideo re-fetches one video. Missing remote data deactivates
// the doc; a missing local media file goes through the rename handler
// before the doc is rewritten.
func (r *Reindexer) refreshVideo(ctx context.Context, youtubeID string) error {
	var existing models.Video
	if err := r.conn.GetDoc(ctx, consts.IndexVideo, youtubeID, &existing); err != nil {
		return err
	}

	meta, err := r.ex.Extract(ctx, "https://www.youtube.com/watch?v="+youtubeID,
		&extractor.Options{Config: r.appCfg})
	if errors.Is(err, errs.ErrNotFound) {
		return r.deactivate(ctx, consts.IndexVideo, youtubeID, "active")
	}
	if err != nil {
		return err
	}

	if !file.Exists(filepath.Join(r.env.MediaDir, existing.MediaURL)) {
		if err := r.fixMediaURL(ctx, &existing, meta); err != nil {
			return err
		}
	}

	// Remote fields refresh, locally owned fields stay untouched:
	// player, date_downloaded, channel, playlist, subtitles.
	existing.Title = meta.Title
	existing.Description = meta.Description
	existing.Category = meta.Categories
	existing.Tags = meta.Tags
	existing.VidThumbURL = meta.BestThumbnail()
	existing.Stats.ViewCount = meta.ViewCount
	existing.Stats.LikeCount = meta.LikeCount
	existing.CommentCount = meta.CommentCount
	existing.Active = true
	existing.VidLastRefresh = time.Now().Unix()

	return r.conn.IndexDoc(ctx, consts.IndexVideo, youtubeID, existing)
}

// fixMediaURL re-derives the media path from fresh metadata and moves
// the file into place when it is found elsewhere in the media tree.
func (r *Reindexer) fixMediaURL(ctx context.Context, video *models.Video, meta *extractor.VideoJSON) error {
	expected := meta.ChannelID + "/" + video.YoutubeID + ".mp4"
	expectedPath := filepath.Join(r.env.MediaDir, expected)

	if !file.Exists(expectedPath) {
		matches, err := filepath.Glob(filepath.Join(r.env.MediaDir, "*", video.YoutubeID+".mp4"))
		if err != nil || len(matches) == 0 {
			return errs.ErrNotFound
		}
		if err := file.Move(matches[0], expectedPath); err != nil {
			return err
		}
		file.Chown(expectedPath, r.env.HostUID, r.env.HostGID)
	}

	logging.I("reindex: media for %s moved to %s", video.YoutubeID, expected)
	video.MediaURL = expected
	video.Channel.ChannelID = meta.ChannelID
	return nil
}

// refreshChannel refreshes remote channel fields, keeping the
// subscription flag and overwrites.
func (r *Reindexer) refreshChannel(ctx context.Context, channelID string) error {
	var existing models.Channel
	if err := r.conn.GetDoc(ctx, consts.IndexChannel, channelID, &existing); err != nil {
		return err
	}

	meta, err := r.ex.Extract(ctx, "https://www.youtube.com/channel/"+channelID,
		&extractor.Options{Config: r.appCfg, ExtractFlat: true, PlaylistItems: ":0"})
	if errors.Is(err, errs.ErrNotFound) {
		return r.deactivate(ctx, consts.IndexChannel, channelID, "channel_active")
	}
	if err != nil {
		return err
	}

	renamed := existing.ChannelName != "" && meta.Channel != "" && existing.ChannelName != meta.Channel

	if meta.Channel != "" {
		existing.ChannelName = meta.Channel
	}
	existing.ChannelSubs = meta.ChannelFollowerCount
	existing.ChannelDescription = meta.Description
	existing.ChannelTags = meta.Tags
	existing.ChannelThumbURL = meta.BestThumbnail()
	existing.ChannelActive = true
	existing.ChannelLastRefresh = time.Now().Unix()

	if err := r.conn.IndexDoc(ctx, consts.IndexChannel, channelID, existing); err != nil {
		return err
	}

	if renamed {
		return r.syncChannelToVideos(ctx, &existing)
	}
	return nil
}

// syncChannelToVideos pushes the denormalized channel copy onto every
// video of the channel in one update-by-query.
func (r *Reindexer) syncChannelToVideos(ctx context.Context, ch *models.Channel) error {
	return r.conn.UpdateByQuery(ctx, consts.IndexVideo, map[string]any{
		"query": map[string]any{"term": map[string]any{"channel.channel_id": ch.ChannelID}},
		"script": map[string]any{
			"lang":   "painless",
			"source": "ctx._source.channel = params.channel",
			"params": map[string]any{"channel": ch},
		},
	})
}

// refreshPlaylist refreshes the entry list, keeping the subscription
// flag. Custom playlists are skipped, they have no remote counterpart.
func (r *Reindexer) refreshPlaylist(ctx context.Context, playlistID string) error {
	var existing models.Playlist
	if err := r.conn.GetDoc(ctx, consts.IndexPlaylist, playlistID, &existing); err != nil {
		return err
	}
	if existing.IsCustom() {
		return nil
	}

	meta, err := r.ex.Extract(ctx, "https://www.youtube.com/playlist?list="+playlistID,
		&extractor.Options{Config: r.appCfg, ExtractFlat: true})
	if errors.Is(err, errs.ErrNotFound) {
		return r.deactivate(ctx, consts.IndexPlaylist, playlistID, "playlist_active")
	}
	if err != nil {
		return err
	}

	existing.PlaylistName = meta.Title
	existing.PlaylistDescription = meta.Description
	existing.PlaylistChannel = meta.Channel
	existing.PlaylistChannelID = meta.ChannelID
	existing.PlaylistThumbnail = meta.BestThumbnail()
	existing.PlaylistActive = true
	existing.PlaylistLastRefresh = time.Now().Unix()

	entries := make([]models.PlaylistEntry, 0, len(meta.Entries))
	for i, e := range meta.Entries {
		downloaded := false
		for _, old := range existing.PlaylistEntries {
			if old.YoutubeID == e.ID {
				downloaded = old.Downloaded
				break
			}
		}
		entries = append(entries, models.PlaylistEntry{
			YoutubeID:  e.ID,
			Title:      e.Title,
			Uploader:   e.Channel,
			Idx:        i,
			Downloaded: downloaded,
		})
	}
	existing.PlaylistEntries = entries

	return r.conn.IndexDoc(ctx, consts.IndexPlaylist, playlistID, existing)
}

func (r *Reindexer) deactivate(ctx context.Context, index, id, activeField string) error {
	logging.I("reindex: %s/%s gone remote, deactivating", index, id)
	return r.conn.UpdateDoc(ctx, index, id, map[string]any{activeField: false})
}

func (r *Reindexer) sleep(ctx context.Context) {
	if r.appCfg.Downloads.SleepInterval == nil || *r.appCfg.Downloads.SleepInterval <= 0 {
		return
	}
	select {
	case <-time.After(time.Duration(*r.appCfg.Downloads.SleepInterval) * time.Second):
	case <-ctx.Done():
	}
}

func (r *Reindexer) stopped() bool {
	return r.Stop != nil && r.Stop()
}

// indexFields maps an index to its active flag and last-refresh field.
func indexFields(index string) (active, refresh string) {
	switch index {
	case consts.IndexChannel:
		return "channel_active", "channel_last_refresh"
	case consts.IndexPlaylist:
		return "playlist_active", "playlist_last_refresh"
	}
	return "active", "vid_last_refresh"
}

// trimIndexPrefix turns ta_video into video for KV key construction.
func trimIndexPrefix(index string) string {
	const p = "ta_"
	if len(index) > len(p) && index[:len(p)] == p {
		return index[len(p):]
	}
	return index
}

func hitIDs(resp *es.SearchResponse) []string {
	ids := make([]string, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
