// Package downloads runs the serial download worker: popping queued
// ids, invoking the extractor and archiving finished media.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"os"
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
	"tubearchivist/internal/queue"
	"tubearchivist/internal/utils/logging"
)

// Worker processes the download queue strictly one video at a time.
// Stop is polled between items; KILL arrives as context cancellation,
// which also terminates the running subprocess.
type Worker struct {
	conn   *es.Connection
	kvs    *kv.Store
	queue  *queue.PendingQueue
	ex     *extractor.Extractor
	appCfg *config.AppConfig
	env    *cfg.EnvConfig
	Stop   func() bool
	Notify func(message string, progress float64)
}

// NewWorker wires a download worker.
func NewWorker(conn *es.Connection, kvs *kv.Store, q *queue.PendingQueue, ex *extractor.Extractor, appCfg *config.AppConfig, env *cfg.EnvConfig) *Worker {
	return &Worker{conn: conn, kvs: kvs, queue: q, ex: ex, appCfg: appCfg, env: env}
}

// WithHooks returns a shallow copy bound to per-run stop and notify
// callbacks, leaving the shared instance's hooks nil.
func (w *Worker) WithHooks(stop func() bool, notify func(string, float64)) *Worker {
	cp := *w
	cp.Stop = stop
	cp.Notify = notify
	return &cp
}

// Run drains the queue with the configured retry policy: when a pass
// leaves failures behind, it is retried up to the limit with a fixed
// delay between attempts.
func (w *Worker) Run(ctx context.Context, autoOnly bool) error {
	var err error
	for attempt := 0; attempt < consts.DownloadMaxRetries; attempt++ {
		if attempt > 0 {
			logging.W("downloads: retrying failed pass, attempt %d", attempt+1)
			select {
			case <-time.After(consts.DownloadRetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = w.runPass(ctx, autoOnly)
		if err == nil || !errs.Retryable(err) {
			break
		}
	}
	if err != nil {
		return err
	}
	return w.autoDelete(ctx)
}

// runPass loads the current queue snapshot into the KV list and works
// it off. Priority rows added while running jump the line through the
// same list.
func (w *Worker) runPass(ctx context.Context, autoOnly bool) error {
	ids, err := w.queue.NextIDs(ctx, autoOnly)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		logging.I("downloads: queue is empty")
		return nil
	}

	dlq := w.kvs.Queue(keys.DLQueue)
	if err := dlq.Clear(ctx); err != nil {
		return err
	}
	if err := dlq.Add(ctx, ids...); err != nil {
		return err
	}

	var failed []string
	downloaded := 0
	channelIDs := map[string]struct{}{}

	for {
		if w.stopped() {
			logging.I("downloads: stop requested, leaving remaining rows queued")
			return nil
		}

		id, err := dlq.Next(ctx)
		if errors.Is(err, errs.ErrNotFound) {
			break
		}
		if err != nil {
			return err
		}

		row, err := w.queue.Get(ctx, id)
		if errors.Is(err, errs.ErrNotFound) {
			// Row was removed while queued, nothing to do.
			continue
		}
		if err != nil {
			return err
		}

		if err := w.kvs.Set(ctx, keys.Downloading, row.Title, 0); err != nil {
			logging.W("downloads: setting current id failed: %v", err)
		}

		if err := w.downloadSingle(ctx, row); err != nil {
			if errors.Is(err, errs.ErrCookieInvalid) || errors.Is(err, context.Canceled) {
				return err
			}
			logging.E("downloads: %s failed: %v", id, err)
			failed = append(failed, id)
			if msgErr := w.queue.SetMessage(ctx, id, err.Error()); msgErr != nil {
				logging.W("downloads: recording failure on %s: %v", id, msgErr)
			}
			continue
		}

		downloaded++
		channelIDs[row.ChannelID] = struct{}{}
		if err := w.queue.Remove(ctx, id); err != nil {
			return err
		}
	}

	if err := w.kvs.Del(ctx, keys.Downloading); err != nil {
		logging.D(1, "downloads: clearing current id: %v", err)
	}

	logging.I("downloads: pass finished, %d downloaded across %d channels, %d failed",
		downloaded, len(channelIDs), len(failed))

	if len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d", errs.ErrDownloadsFailed, len(failed), len(failed)+downloaded)
	}
	return nil
}

// downloadSingle fetches one video: fresh metadata, media download,
// indexing and the atomic move into the archive.
func (w *Worker) downloadSingle(ctx context.Context, row *models.DownloadRow) error {
	meta, err := w.ex.Extract(ctx, "https://www.youtube.com/watch?v="+row.YoutubeID,
		&extractor.Options{Config: w.appCfg})
	if err != nil {
		return err
	}
	if !meta.HasRequiredFields() {
		return fmt.Errorf("%w: incomplete metadata for %s", errs.ErrValidation, row.YoutubeID)
	}

	channel := w.loadChannel(ctx, meta.ChannelID, meta)
	cacheDir := filepath.Join(w.env.CacheDir, consts.CacheDownload)

	opts := DownloadOptionsFor(w.appCfg, channel)
	opts.Config = w.appCfg
	opts.TargetDir = cacheDir
	opts.ProgressHook = func(line string) {
		if p, ok := ParseProgress(line); ok {
			w.notify(row.Title+": "+p.Message, p.Fraction())
		}
	}

	if err := w.ex.Download(ctx, row.YoutubeID, &opts); err != nil {
		return err
	}

	src := filepath.Join(cacheDir, row.YoutubeID+".mp4")
	video := w.buildVideoDoc(meta, row, channel)
	video.MediaSize = file.Size(src)
	w.fetchSubtitles(ctx, meta, video)

	if err := w.conn.IndexDoc(ctx, consts.IndexVideo, video.YoutubeID, video); err != nil {
		return err
	}
	return w.moveToArchive(src, video)
}

// DownloadOptionsFor merges the global download settings with the
// channel's overwrites.
func DownloadOptionsFor(appCfg *config.AppConfig, channel *models.Channel) extractor.DownloadOptions {
	opts := extractor.DownloadOptions{}

	if appCfg.Downloads.Format != nil {
		opts.Format = *appCfg.Downloads.Format
	}
	if appCfg.Downloads.FormatSort != nil {
		opts.FormatSort = *appCfg.Downloads.FormatSort
	}
	if appCfg.Downloads.LimitSpeed != nil {
		opts.LimitSpeed = *appCfg.Downloads.LimitSpeed
	}

	if channel != nil {
		if format := channel.OverwriteString("download_format"); format != "" {
			opts.Format = format
		}
	}
	return opts
}

// loadChannel returns the indexed channel doc, or a minimal one built
// from fresh metadata for not-yet-indexed channels.
func (w *Worker) loadChannel(ctx context.Context, channelID string, meta *extractor.VideoJSON) *models.Channel {
	var ch models.Channel
	if err := w.conn.GetDoc(ctx, consts.IndexChannel, channelID, &ch); err == nil {
		return &ch
	}

	ch = models.Channel{
		ChannelID:          channelID,
		ChannelName:        meta.Channel,
		ChannelActive:      true,
		ChannelLastRefresh: time.Now().Unix(),
		ChannelSubs:        meta.ChannelFollowerCount,
	}
	if err := w.conn.IndexDoc(ctx, consts.IndexChannel, channelID, ch); err != nil {
		logging.E("downloads: indexing channel %s failed: %v", channelID, err)
	}
	return &ch
}

func (w *Worker) buildVideoDoc(meta *extractor.VideoJSON, row *models.DownloadRow, channel *models.Channel) *models.Video {
	now := time.Now().Unix()
	published := meta.Timestamp
	if published == 0 {
		published = row.Published
	}

	return &models.Video{
		YoutubeID:      meta.ID,
		Title:          meta.Title,
		Description:    meta.Description,
		Category:       meta.Categories,
		Tags:           meta.Tags,
		Published:      published,
		VidLastRefresh: now,
		DateDownloaded: now,
		Active:         true,
		VidType:        row.VidType,
		VidThumbURL:    meta.BestThumbnail(),
		Stats: models.VideoStats{
			ViewCount: meta.ViewCount,
			LikeCount: meta.LikeCount,
		},
		MediaURL: channel.ChannelID + "/" + meta.ID + ".mp4",
		Player: models.VideoPlayer{
			Duration:    int64(meta.Duration),
			DurationStr: meta.DurationString,
		},
		Channel:      *channel,
		CommentCount: meta.CommentCount,
	}
}

// moveToArchive moves the finished file from the cache into the media
// tree and applies host ownership.
func (w *Worker) moveToArchive(src string, video *models.Video) error {
	channelDir := filepath.Join(w.env.MediaDir, video.Channel.ChannelID)
	if err := os.MkdirAll(channelDir, 0o755); err != nil {
		return err
	}
	file.Chown(channelDir, w.env.HostUID, w.env.HostGID)

	dst := filepath.Join(w.env.MediaDir, video.MediaURL)
	if err := file.Move(src, dst); err != nil {
		return err
	}
	file.Chown(dst, w.env.HostUID, w.env.HostGID)
	return nil
}

// autoDelete removes watched videos older than the configured
// retention, honoring per-channel overwrites. Deleted ids are marked
// ignored so rescans do not re-add them.
func (w *Worker) autoDelete(ctx context.Context) error {
	now := time.Now().Unix()

	overwritten, err := w.channelsWithAutodelete(ctx)
	if err != nil {
		return err
	}

	if w.appCfg.Downloads.AutodeleteDays != nil && *w.appCfg.Downloads.AutodeleteDays > 0 {
		cutoff := now - int64(*w.appCfg.Downloads.AutodeleteDays)*86400
		exclude := make([]string, 0, len(overwritten))
		for id := range overwritten {
			exclude = append(exclude, id)
		}
		if err := w.deleteWatchedBefore(ctx, cutoff, "", exclude); err != nil {
			return err
		}
	}

	for channelID, days := range overwritten {
		if days <= 0 {
			continue
		}
		cutoff := now - int64(days)*86400
		if err := w.deleteWatchedBefore(ctx, cutoff, channelID, nil); err != nil {
			return err
		}
	}
	return nil
}

// channelsWithAutodelete maps channel id to its autodelete_days
// overwrite.
func (w *Worker) channelsWithAutodelete(ctx context.Context) (map[string]int, error) {
	hits, err := w.conn.Paginate(ctx, consts.IndexChannel, map[string]any{
		"exists": map[string]any{"field": "channel_overwrites.autodelete_days"},
	}, nil)
	if err != nil {
		return nil, err
	}

	out := map[string]int{}
	for _, hit := range hits {
		var ch models.Channel
		if err := hit.Decode(&ch); err != nil {
			continue
		}
		out[ch.ChannelID] = ch.OverwriteInt("autodelete_days", 0)
	}
	return out, nil
}

func (w *Worker) deleteWatchedBefore(ctx context.Context, cutoff int64, channelID string, excludeChannels []string) error {
	filter := []any{
		map[string]any{"term": map[string]any{"player.watched": true}},
		map[string]any{"range": map[string]any{"player.watched_date": map[string]any{"lte": cutoff}}},
	}
	if channelID != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"channel.channel_id": channelID}})
	}
	query := map[string]any{"bool": map[string]any{"filter": filter}}
	if len(excludeChannels) > 0 {
		query["bool"].(map[string]any)["must_not"] = []any{
			map[string]any{"terms": map[string]any{"channel.channel_id": excludeChannels}},
		}
	}

	hits, err := w.conn.Paginate(ctx, consts.IndexVideo, query, nil)
	if err != nil {
		return err
	}

	for _, hit := range hits {
		var video models.Video
		if err := hit.Decode(&video); err != nil {
			continue
		}
		if err := w.DeleteVideo(ctx, &video); err != nil {
			logging.E("downloads: auto-delete of %s failed: %v", video.YoutubeID, err)
			continue
		}
		if err := w.queue.IgnoreArchived(ctx, video.YoutubeID, video.Title); err != nil {
			logging.E("downloads: marking %s ignored failed: %v", video.YoutubeID, err)
		}
	}
	return nil
}

// DeleteVideo removes the media file, its sidecar subtitles, the cached
// thumbnail and the document.
func (w *Worker) DeleteVideo(ctx context.Context, video *models.Video) error {
	mediaPath := filepath.Join(w.env.MediaDir, video.MediaURL)
	if err := os.Remove(mediaPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, sub := range video.Subtitles {
		if sub.Media != "" {
			os.Remove(filepath.Join(w.env.MediaDir, sub.Media))
		}
	}
	if thumb := w.env.VideoCachePath(video.YoutubeID); thumb != "" {
		os.Remove(thumb)
	}
	if err := w.conn.DeleteByQuery(ctx, consts.IndexSubtitle, map[string]any{
		"query": map[string]any{"term": map[string]any{"youtube_id": video.YoutubeID}},
	}); err != nil {
		logging.W("downloads: deleting subtitle docs for %s: %v", video.YoutubeID, err)
	}
	return w.conn.DeleteDoc(ctx, consts.IndexVideo, video.YoutubeID)
}

func (w *Worker) stopped() bool {
	return w.Stop != nil && w.Stop()
}

func (w *Worker) notify(msg string, progress float64) {
	if w.Notify != nil {
		w.Notify(msg, progress)
	}
}
