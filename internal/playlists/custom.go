// Package playlists manages locally curated custom playlists.
package playlists

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/es"
	"tubearchivist/internal/models"
)

// Custom manages TA_playlist_* documents and the playlist membership
// field on videos.
type Custom struct {
	conn *es.Connection
}

// NewCustom wires the manager.
func NewCustom(conn *es.Connection) *Custom {
	return &Custom{conn: conn}
}

// Create makes an empty custom playlist and returns it.
func (c *Custom) Create(ctx context.Context, name string) (*models.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: playlist name required", errs.ErrValidation)
	}

	pl := models.Playlist{
		PlaylistID:          consts.CustomPlaylistPrefix + uuid.New().String()[:8],
		PlaylistActive:      true,
		PlaylistType:        models.PlaylistTypeCustom,
		PlaylistName:        name,
		PlaylistLastRefresh: time.Now().Unix(),
	}
	if err := c.conn.IndexDoc(ctx, consts.IndexPlaylist, pl.PlaylistID, pl); err != nil {
		return nil, err
	}
	return &pl, nil
}

// AddVideo appends an archived video to the playlist and records the
// membership on the video doc.
func (c *Custom) AddVideo(ctx context.Context, playlistID, youtubeID string) error {
	pl, err := c.load(ctx, playlistID)
	if err != nil {
		return err
	}

	for _, e := range pl.PlaylistEntries {
		if e.YoutubeID == youtubeID {
			return nil
		}
	}

	var video models.Video
	if err := c.conn.GetDoc(ctx, consts.IndexVideo, youtubeID, &video); err != nil {
		return err
	}

	pl.PlaylistEntries = append(pl.PlaylistEntries, models.PlaylistEntry{
		YoutubeID:  youtubeID,
		Title:      video.Title,
		Uploader:   video.Channel.ChannelName,
		Idx:        len(pl.PlaylistEntries),
		Downloaded: true,
	})
	if err := c.conn.IndexDoc(ctx, consts.IndexPlaylist, playlistID, pl); err != nil {
		return err
	}

	return c.setMembership(ctx, &video, playlistID, true)
}

// Move reorders or removes an entry. Direction is one of up, down,
// top, bottom, remove.
func (c *Custom) Move(ctx context.Context, playlistID, youtubeID, direction string) error {
	pl, err := c.load(ctx, playlistID)
	if err != nil {
		return err
	}

	if !pl.MoveEntry(youtubeID, direction) {
		return fmt.Errorf("%w: %s not in playlist %s", errs.ErrNotFound, youtubeID, playlistID)
	}
	if err := c.conn.IndexDoc(ctx, consts.IndexPlaylist, playlistID, pl); err != nil {
		return err
	}

	if direction == "remove" {
		var video models.Video
		if err := c.conn.GetDoc(ctx, consts.IndexVideo, youtubeID, &video); err == nil {
			return c.setMembership(ctx, &video, playlistID, false)
		}
	}
	return nil
}

// Delete removes the playlist and strips the membership from all its
// videos.
func (c *Custom) Delete(ctx context.Context, playlistID string) error {
	pl, err := c.load(ctx, playlistID)
	if err != nil {
		return err
	}

	for _, e := range pl.PlaylistEntries {
		var video models.Video
		if err := c.conn.GetDoc(ctx, consts.IndexVideo, e.YoutubeID, &video); err == nil {
			c.setMembership(ctx, &video, playlistID, false)
		}
	}
	return c.conn.DeleteDoc(ctx, consts.IndexPlaylist, playlistID)
}

func (c *Custom) load(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var pl models.Playlist
	if err := c.conn.GetDoc(ctx, consts.IndexPlaylist, playlistID, &pl); err != nil {
		return nil, err
	}
	if !pl.IsCustom() {
		return nil, fmt.Errorf("%w: %s is not a custom playlist", errs.ErrValidation, playlistID)
	}
	return &pl, nil
}

func (c *Custom) setMembership(ctx context.Context, video *models.Video, playlistID string, member bool) error {
	kept := make([]string, 0, len(video.Playlist)+1)
	for _, id := range video.Playlist {
		if id != playlistID {
			kept = append(kept, id)
		}
	}
	if member {
		kept = append(kept, playlistID)
	}
	return c.conn.UpdateDoc(ctx, consts.IndexVideo, video.YoutubeID, map[string]any{
		"playlist": kept,
	})
}
