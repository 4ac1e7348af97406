// Package subscriptions manages subscribed channels and playlists and
// turns them into ingestion refs on rescan.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tubearchivist/internal/config"
	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/es"
	"tubearchivist/internal/extractor"
	"tubearchivist/internal/models"
	"tubearchivist/internal/pipeline"
	"tubearchivist/internal/utils/logging"
)

// Scanner walks all subscriptions and feeds the ingestion pipeline.
type Scanner struct {
	conn *es.Connection
	ex   *extractor.Extractor
	cfg  *config.AppConfig
	pipe *pipeline.Pipeline
	Stop func() bool
}

// NewScanner wires a scanner to its collaborators.
func NewScanner(conn *es.Connection, ex *extractor.Extractor, cfg *config.AppConfig, pipe *pipeline.Pipeline) *Scanner {
	return &Scanner{conn: conn, ex: ex, cfg: cfg, pipe: pipe}
}

// WithHooks returns a shallow copy bound to per-run stop and notify
// callbacks, with the inner pipeline hooked the same way. The shared
// instance keeps nil hooks.
func (s *Scanner) WithHooks(stop func() bool, notify func(string)) *Scanner {
	cp := *s
	cp.Stop = stop
	cp.pipe = s.pipe.WithHooks(stop, notify)
	return &cp
}

// ScanChannels lists every subscribed channel and enqueues recent
// uploads from the tabs the channel actually has.
func (s *Scanner) ScanChannels(ctx context.Context) (int, error) {
	hits, err := s.conn.Paginate(ctx, consts.IndexChannel, map[string]any{
		"term": map[string]any{"channel_subscribed": true},
	}, nil)
	if err != nil {
		return 0, err
	}

	var refs []models.ParsedRef
	for _, hit := range hits {
		if s.stopped() {
			break
		}
		var ch models.Channel
		if err := hit.Decode(&ch); err != nil {
			logging.E("subscriptions: bad channel doc %s: %v", hit.ID, err)
			continue
		}
		for _, q := range ChannelQueries(&ch, s.cfg) {
			limit := q.Limit
			refs = append(refs, models.ParsedRef{
				Kind:    models.RefChannel,
				ID:      ch.ChannelID,
				VidType: q.VidType,
				Limit:   &limit,
			})
		}
	}

	logging.I("subscriptions: rescanning %d channel tabs", len(refs))
	return s.pipe.ParseURLList(ctx, refs, pipeline.ParseOpts{
		AutoStart: s.cfg.Subscriptions.AutoStart,
	})
}

// ChannelQueries intersects the channel's advertised tabs with the
// globally enabled types. Channels without tab data are scanned on
// every enabled type.
func ChannelQueries(ch *models.Channel, cfg *config.AppConfig) []pipeline.VideoQuery {
	queries := pipeline.BuildVideoQueries(ch, cfg, "")
	if len(ch.ChannelTabs) == 0 {
		return queries
	}

	var out []pipeline.VideoQuery
	for _, q := range queries {
		if ch.HasTab(string(q.VidType)) {
			out = append(out, q)
		}
	}
	return out
}

// ScanPlaylists refreshes every active subscribed playlist up to the
// configured playlist size.
func (s *Scanner) ScanPlaylists(ctx context.Context) (int, error) {
	hits, err := s.conn.Paginate(ctx, consts.IndexPlaylist, map[string]any{
		"bool": map[string]any{"filter": []any{
			map[string]any{"term": map[string]any{"playlist_active": true}},
			map[string]any{"term": map[string]any{"playlist_subscribed": true}},
		}},
	}, nil)
	if err != nil {
		return 0, err
	}

	var refs []models.ParsedRef
	for _, hit := range hits {
		if s.stopped() {
			break
		}
		limit := s.cfg.Subscriptions.PlaylistSize
		refs = append(refs, models.ParsedRef{
			Kind:  models.RefPlaylist,
			ID:    hit.ID,
			Limit: &limit,
		})
	}

	logging.I("subscriptions: rescanning %d playlists", len(refs))
	return s.pipe.ParseURLList(ctx, refs, pipeline.ParseOpts{
		AutoStart: s.cfg.Subscriptions.AutoStart,
	})
}

func (s *Scanner) stopped() bool {
	return s.Stop != nil && s.Stop()
}

// Manager flips the subscribed flag on channels and playlists,
// indexing them first when they are new.
type Manager struct {
	conn *es.Connection
	ex   *extractor.Extractor
	cfg  *config.AppConfig
}

// NewManager wires a subscription manager.
func NewManager(conn *es.Connection, ex *extractor.Extractor, cfg *config.AppConfig) *Manager {
	return &Manager{conn: conn, ex: ex, cfg: cfg}
}

// Subscribe applies the subscribed flag to every ref. Unknown channels
// and playlists are fetched and indexed first.
func (m *Manager) Subscribe(ctx context.Context, refs []models.ParsedRef, subscribed bool) error {
	var errAll error
	for _, ref := range refs {
		var err error
		switch ref.Kind {
		case models.RefChannel:
			err = m.subscribeChannel(ctx, ref.ID, subscribed)
		case models.RefPlaylist:
			err = m.subscribePlaylist(ctx, ref.ID, subscribed)
		default:
			err = fmt.Errorf("%w: cannot subscribe to a %s", errs.ErrValidation, ref.Kind)
		}
		if err != nil {
			errAll = errors.Join(errAll, fmt.Errorf("subscribe %s %s: %w", ref.Kind, ref.ID, err))
		}
	}
	return errAll
}

func (m *Manager) subscribeChannel(ctx context.Context, channelID string, subscribed bool) error {
	var ch models.Channel
	err := m.conn.GetDoc(ctx, consts.IndexChannel, channelID, &ch)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		if !subscribed {
			return err
		}
		indexed, idxErr := m.indexChannel(ctx, channelID)
		if idxErr != nil {
			return idxErr
		}
		ch = *indexed
	case err != nil:
		return err
	}

	return m.conn.UpdateDoc(ctx, consts.IndexChannel, channelID, map[string]any{
		"channel_subscribed": subscribed,
	})
}

// SetOverwrites merges per-channel overrides into an existing channel
// doc. Keys outside the closed set are rejected before any write, a
// nil value clears the key.
func (m *Manager) SetOverwrites(ctx context.Context, channelID string, overwrites map[string]any) error {
	if err := models.ValidateOverwrites(overwrites); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrValidation, err)
	}

	var ch models.Channel
	if err := m.conn.GetDoc(ctx, consts.IndexChannel, channelID, &ch); err != nil {
		return err
	}

	merged := ch.ChannelOverwrites
	if merged == nil {
		merged = map[string]any{}
	}
	for k, v := range overwrites {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}

	return m.conn.UpdateDoc(ctx, consts.IndexChannel, channelID, map[string]any{
		"channel_overwrites": merged,
	})
}

// indexChannel fetches remote channel metadata and writes a fresh doc.
func (m *Manager) indexChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	meta, err := m.ex.Extract(ctx, "https://www.youtube.com/channel/"+channelID, &extractor.Options{
		Config:        m.cfg,
		ExtractFlat:   true,
		PlaylistItems: ":0",
	})
	if err != nil {
		return nil, err
	}

	ch := models.Channel{
		ChannelID:          channelID,
		ChannelName:        meta.Channel,
		ChannelActive:      true,
		ChannelLastRefresh: time.Now().Unix(),
		ChannelSubs:        meta.ChannelFollowerCount,
		ChannelDescription: meta.Description,
		ChannelTags:        meta.Tags,
		ChannelThumbURL:    meta.BestThumbnail(),
	}
	if ch.ChannelName == "" {
		ch.ChannelName = meta.Title
	}
	if err := m.conn.IndexDoc(ctx, consts.IndexChannel, channelID, ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// IndexChannelPlaylists walks channels that opted in through the
// index_playlists overwrite and indexes every playlist on their
// playlists tab. Existing docs keep their subscription state.
func (m *Manager) IndexChannelPlaylists(ctx context.Context, stop func() bool) (int, error) {
	hits, err := m.conn.Paginate(ctx, consts.IndexChannel, map[string]any{
		"term": map[string]any{"channel_overwrites.index_playlists": true},
	}, nil)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, hit := range hits {
		if stop != nil && stop() {
			break
		}
		var ch models.Channel
		if err := hit.Decode(&ch); err != nil {
			continue
		}
		n, err := m.indexPlaylistsOf(ctx, &ch)
		if err != nil {
			logging.E("subscriptions: playlists of %s: %v", ch.ChannelID, err)
			continue
		}
		indexed += n
	}
	return indexed, nil
}

func (m *Manager) indexPlaylistsOf(ctx context.Context, ch *models.Channel) (int, error) {
	meta, err := m.ex.Extract(ctx, "https://www.youtube.com/channel/"+ch.ChannelID+"/playlists", &extractor.Options{
		Config:      m.cfg,
		ExtractFlat: true,
	})
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, entry := range meta.Entries {
		if entry.ID == "" {
			continue
		}
		var existing models.Playlist
		err := m.conn.GetDoc(ctx, consts.IndexPlaylist, entry.ID, &existing)
		if err == nil {
			continue // keep state of known playlists
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return indexed, err
		}

		pl := models.Playlist{
			PlaylistID:          entry.ID,
			PlaylistActive:      true,
			PlaylistType:        models.PlaylistTypeRegular,
			PlaylistName:        entry.Title,
			PlaylistChannel:     ch.ChannelName,
			PlaylistChannelID:   ch.ChannelID,
			PlaylistLastRefresh: time.Now().Unix(),
		}
		if err := m.conn.IndexDoc(ctx, consts.IndexPlaylist, entry.ID, pl); err != nil {
			return indexed, err
		}
		indexed++
	}
	return indexed, nil
}

func (m *Manager) subscribePlaylist(ctx context.Context, playlistID string, subscribed bool) error {
	var pl models.Playlist
	err := m.conn.GetDoc(ctx, consts.IndexPlaylist, playlistID, &pl)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		if !subscribed {
			return err
		}
		pl = models.Playlist{
			PlaylistID:     playlistID,
			PlaylistActive: true,
			PlaylistType:   models.PlaylistTypeRegular,
		}
		if err := m.conn.IndexDoc(ctx, consts.IndexPlaylist, playlistID, pl); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	if pl.IsCustom() {
		return fmt.Errorf("%w: custom playlists have no remote subscription", errs.ErrValidation)
	}

	return m.conn.UpdateDoc(ctx, consts.IndexPlaylist, playlistID, map[string]any{
		"playlist_subscribed": subscribed,
	})
}
