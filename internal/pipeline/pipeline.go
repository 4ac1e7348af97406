// Package pipeline turns parsed references into download queue rows:
// metadata extraction, type inference and enqueueing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	"tubearchivist/internal/config"
	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/es"
	"tubearchivist/internal/extractor"
	"tubearchivist/internal/models"
	"tubearchivist/internal/queue"
	"tubearchivist/internal/utils/logging"
)

// Pipeline expands refs into queue rows. Stop is polled between items
// for cooperative cancellation; a KILL is delivered through ctx.
type Pipeline struct {
	conn   *es.Connection
	queue  *queue.PendingQueue
	ex     *extractor.Extractor
	cfg    *config.AppConfig
	loc    *time.Location
	probe  ShortsProbe
	Stop   func() bool
	Notify func(message string)
}

// WithHooks returns a shallow copy bound to per-run stop and notify
// callbacks. The shared instance keeps nil hooks so concurrent runs
// cannot observe another run's callbacks.
func (p *Pipeline) WithHooks(stop func() bool, notify func(string)) *Pipeline {
	cp := *p
	cp.Stop = stop
	cp.Notify = notify
	return &cp
}

// New builds a pipeline. loc positions upload dates at local midnight.
func New(conn *es.Connection, q *queue.PendingQueue, ex *extractor.Extractor, cfg *config.AppConfig, loc *time.Location) *Pipeline {
	if loc == nil {
		loc = time.Local
	}
	return &Pipeline{
		conn:  conn,
		queue: q,
		ex:    ex,
		cfg:   cfg,
		loc:   loc,
		probe: HTTPShortsProbe(nil),
	}
}

// ParseOpts tunes one ingestion run.
type ParseOpts struct {
	// Status new rows get, pending by default.
	Status string
	// AutoStart flags rows for immediate download.
	AutoStart bool
	// Force re-adds ignored and archived ids.
	Force bool
}

// ParseURLList expands every ref, enqueues the resulting rows and
// returns how many were added. A cooperative stop ends the run cleanly
// with whatever was collected so far.
func (p *Pipeline) ParseURLList(ctx context.Context, refs []models.ParsedRef, opts ParseOpts) (int, error) {
	var rows []models.DownloadRow

	for _, ref := range refs {
		if p.stopped() {
			logging.I("pipeline: stop requested, ending ref expansion")
			break
		}

		var (
			got []models.DownloadRow
			err error
		)
		switch ref.Kind {
		case models.RefVideo:
			got, err = p.videoRows(ctx, ref)
		case models.RefChannel:
			got, err = p.channelRows(ctx, ref)
		case models.RefPlaylist:
			got, err = p.playlistRows(ctx, ref)
		default:
			err = fmt.Errorf("%w: unknown ref kind %q", errs.ErrValidation, ref.Kind)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return 0, err
			}
			logging.E("pipeline: expanding %s %q failed: %v", ref.Kind, ref.ID, err)
			p.notify(fmt.Sprintf("processing %s failed", ref.ID))
			continue
		}
		rows = append(rows, got...)
	}

	if len(rows) == 0 {
		return 0, nil
	}

	res, err := p.queue.Add(ctx, rows, queue.AddOptions{
		Status:    opts.Status,
		Force:     opts.Force,
		AutoStart: opts.AutoStart,
	})
	if err != nil {
		return 0, err
	}
	for _, id := range res.FailedID {
		p.notify(fmt.Sprintf("failed to queue %s", id))
	}
	return res.Added + res.Bumped, nil
}

// videoRows extracts one video and builds its row, or skips it with a
// typed log when the metadata is unusable.
func (p *Pipeline) videoRows(ctx context.Context, ref models.ParsedRef) ([]models.DownloadRow, error) {
	meta, err := p.ex.Extract(ctx, "https://www.youtube.com/watch?v="+ref.ID, &extractor.Options{Config: p.cfg})
	if err != nil {
		return nil, err
	}

	row, ok := p.buildRow(ctx, meta, ref.ID, ref.VidType)
	if !ok {
		return nil, nil
	}
	return []models.DownloadRow{*row}, nil
}

// buildRow validates metadata and assembles a queue row. A false return
// means skip.
func (p *Pipeline) buildRow(ctx context.Context, meta *extractor.VideoJSON, wantID string, vidType models.VidType) (*models.DownloadRow, bool) {
	if !meta.HasRequiredFields() {
		logging.W("pipeline: %q missing required metadata keys, skipping", wantID)
		return nil, false
	}
	if wantID != "" && meta.ID != wantID {
		logging.W("pipeline: extractor returned %q for requested %q, skipping", meta.ID, wantID)
		return nil, false
	}
	if meta.LiveStatus == "is_upcoming" || meta.LiveStatus == "is_live" {
		logging.I("pipeline: %q is %s, skipping until finished", meta.ID, meta.LiveStatus)
		return nil, false
	}

	if vidType == "" || vidType == models.VidTypeUnknown {
		vidType = InferVidType(ctx, meta, p.probe)
	}

	return &models.DownloadRow{
		YoutubeID:      meta.ID,
		Title:          meta.Title,
		VidThumbURL:    meta.BestThumbnail(),
		Duration:       meta.DurationString,
		Published:      p.published(meta),
		VidType:        vidType,
		ChannelName:    meta.Channel,
		ChannelID:      meta.ChannelID,
		ChannelIndexed: p.channelIndexed(ctx, meta.ChannelID),
	}, true
}

// published prefers the exact timestamp, falling back to the upload
// date at local midnight.
func (p *Pipeline) published(meta *extractor.VideoJSON) int64 {
	if meta.Timestamp > 0 {
		return meta.Timestamp
	}
	if meta.UploadDate == "" {
		return 0
	}
	t, err := dateparse.ParseIn(meta.UploadDate, p.loc)
	if err != nil {
		logging.W("pipeline: unparseable upload_date %q: %v", meta.UploadDate, err)
		return 0
	}
	return t.Unix()
}

func (p *Pipeline) channelIndexed(ctx context.Context, channelID string) bool {
	if channelID == "" {
		return false
	}
	var ch models.Channel
	err := p.conn.GetDoc(ctx, consts.IndexChannel, channelID, &ch)
	return err == nil
}

// channelRows walks the channel tabs selected by the query builder.
func (p *Pipeline) channelRows(ctx context.Context, ref models.ParsedRef) ([]models.DownloadRow, error) {
	var ch *models.Channel
	var loaded models.Channel
	if err := p.conn.GetDoc(ctx, consts.IndexChannel, ref.ID, &loaded); err == nil {
		ch = &loaded
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	queries := BuildVideoQueries(ch, p.cfg, ref.VidType)
	if ref.Limit != nil {
		for i := range queries {
			queries[i].Limit = *ref.Limit
		}
	}

	var rows []models.DownloadRow
	for _, q := range queries {
		if p.stopped() {
			break
		}

		url := "https://www.youtube.com/channel/" + ref.ID + "/" + string(q.VidType)
		meta, err := p.ex.Extract(ctx, url, &extractor.Options{
			Config:        p.cfg,
			ExtractFlat:   true,
			PlaylistItems: fmt.Sprintf(":%d:1", q.Limit),
		})
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				logging.D(1, "pipeline: channel %s has no %s tab", ref.ID, q.VidType)
				continue
			}
			return nil, err
		}

		got, err := p.entryRows(ctx, meta.Entries, q.VidType)
		if err != nil {
			return nil, err
		}
		rows = append(rows, got...)
	}
	return rows, nil
}

// playlistRows refreshes the playlist doc and expands its entries.
func (p *Pipeline) playlistRows(ctx context.Context, ref models.ParsedRef) ([]models.DownloadRow, error) {
	meta, err := p.ex.Extract(ctx, "https://www.youtube.com/playlist?list="+ref.ID, &extractor.Options{
		Config:      p.cfg,
		ExtractFlat: true,
	})
	if err != nil {
		return nil, err
	}

	entries := meta.Entries
	if ref.Limit != nil && *ref.Limit > 0 && *ref.Limit < len(entries) {
		entries = entries[:*ref.Limit]
	}

	if err := p.refreshPlaylist(ctx, ref.ID, meta, entries); err != nil {
		logging.E("pipeline: refreshing playlist %s failed: %v", ref.ID, err)
	}

	return p.entryRows(ctx, entries, models.VidTypeUnknown)
}

// entryRows builds rows for flat playlist entries. In flat mode the
// entry metadata is used as-is; otherwise each video is re-extracted.
func (p *Pipeline) entryRows(ctx context.Context, entries []extractor.VideoJSON, vidType models.VidType) ([]models.DownloadRow, error) {
	var rows []models.DownloadRow
	for i := range entries {
		if p.stopped() {
			break
		}
		entry := &entries[i]

		if !p.cfg.Subscriptions.ExtractFlat {
			full, err := p.ex.Extract(ctx, "https://www.youtube.com/watch?v="+entry.ID, &extractor.Options{Config: p.cfg})
			if err != nil {
				if errors.Is(err, errs.ErrConnectionLost) {
					return nil, err
				}
				logging.W("pipeline: re-extracting %q failed: %v", entry.ID, err)
				continue
			}
			entry = full
		}

		if row, ok := p.buildRow(ctx, entry, entry.ID, vidType); ok {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

// refreshPlaylist rewrites the playlist doc from fresh metadata. The
// downloaded flag per entry is computed against the video index in one
// ids query.
func (p *Pipeline) refreshPlaylist(ctx context.Context, playlistID string, meta *extractor.VideoJSON, entries []extractor.VideoJSON) error {
	var existing models.Playlist
	err := p.conn.GetDoc(ctx, consts.IndexPlaylist, playlistID, &existing)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if existing.IsCustom() {
		// Custom playlists are curated locally, never from remote.
		return nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	archived, err := p.archivedSubset(ctx, ids)
	if err != nil {
		return err
	}

	doc := models.Playlist{
		PlaylistID:          playlistID,
		PlaylistActive:      true,
		PlaylistSubscribed:  existing.PlaylistSubscribed,
		PlaylistType:        models.PlaylistTypeRegular,
		PlaylistName:        meta.Title,
		PlaylistDescription: meta.Description,
		PlaylistChannel:     meta.Channel,
		PlaylistChannelID:   meta.ChannelID,
		PlaylistLastRefresh: time.Now().Unix(),
		PlaylistThumbnail:   meta.BestThumbnail(),
	}
	for i, e := range entries {
		doc.PlaylistEntries = append(doc.PlaylistEntries, models.PlaylistEntry{
			YoutubeID:  e.ID,
			Title:      e.Title,
			Uploader:   e.Channel,
			Idx:        i,
			Downloaded: archived.Has(e.ID),
		})
	}
	return p.conn.IndexDoc(ctx, consts.IndexPlaylist, playlistID, doc)
}

// archivedSubset returns which of the given ids exist in ta_video.
func (p *Pipeline) archivedSubset(ctx context.Context, ids []string) (queue.IDSet, error) {
	set := queue.IDSet{}
	if len(ids) == 0 {
		return set, nil
	}
	resp, err := p.conn.Search(ctx, consts.IndexVideo, map[string]any{
		"size":    len(ids),
		"query":   map[string]any{"ids": map[string]any{"values": ids}},
		"_source": false,
	})
	if err != nil {
		return nil, err
	}
	for _, hit := range resp.Hits.Hits {
		set.Add(hit.ID)
	}
	return set, nil
}

func (p *Pipeline) stopped() bool {
	return p.Stop != nil && p.Stop()
}

func (p *Pipeline) notify(msg string) {
	if p.Notify != nil {
		p.Notify(msg)
	}
}
