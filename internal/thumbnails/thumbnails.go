// Package thumbnails downloads and validates the local artwork cache
// for videos, channels and playlists.
package thumbnails

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"tubearchivist/internal/cfg"
	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/es"
	"tubearchivist/internal/file"
	"tubearchivist/internal/models"
	"tubearchivist/internal/utils/logging"
)

// fallbackThumbURL serves when a video carries no thumbnail at all.
const fallbackThumbURL = "https://i.ytimg.com/vi/%s/hqdefault.jpg"

// Validator walks the indexes and fills in missing cached artwork.
type Validator struct {
	conn   *es.Connection
	env    *cfg.EnvConfig
	client *http.Client
	Stop   func() bool
}

// WithStop returns a shallow copy polling the given per-run stop
// callback, leaving the shared instance's hook nil.
func (v *Validator) WithStop(stop func() bool) *Validator {
	cp := *v
	cp.Stop = stop
	return &cp
}

// NewValidator builds a validator with the artwork download timeout.
func NewValidator(conn *es.Connection, env *cfg.EnvConfig) *Validator {
	return &Validator{
		conn:   conn,
		env:    env,
		client: &http.Client{Timeout: consts.ArtDownloadTimeout},
	}
}

// Run checks every video, channel and playlist for cached artwork and
// downloads what is missing. Progress lands in the callback when set.
func (v *Validator) Run(ctx context.Context, progress func(float64)) error {
	if err := v.validateVideos(ctx, progress); err != nil {
		return err
	}
	if err := v.validateChannels(ctx); err != nil {
		return err
	}
	return v.validatePlaylists(ctx)
}

func (v *Validator) validateVideos(ctx context.Context, progress func(float64)) error {
	missing := 0
	_, err := v.conn.Paginate(ctx, consts.IndexVideo, nil, &es.PaginateOpts{
		Callback: func(hits []es.SearchHit, p float64) error {
			if v.stopped() {
				return nil
			}
			for _, hit := range hits {
				var video models.Video
				if err := hit.Decode(&video); err != nil {
					continue
				}
				path := v.env.VideoCachePath(video.YoutubeID)
				if file.Exists(path) {
					continue
				}
				missing++
				if err := v.DownloadVideoThumb(ctx, &video); err != nil {
					logging.W("thumbnails: %s: %v", video.YoutubeID, err)
				}
			}
			if progress != nil {
				progress(p)
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	logging.I("thumbnails: video pass done, %d were missing", missing)
	return nil
}

// DownloadVideoThumb fetches the thumbnail for one video into the
// cache, falling back to the default remote artwork URL.
func (v *Validator) DownloadVideoThumb(ctx context.Context, video *models.Video) error {
	url := video.VidThumbURL
	if url == "" {
		url = fmt.Sprintf(fallbackThumbURL, video.YoutubeID)
	}
	return v.fetch(ctx, url, v.env.VideoCachePath(video.YoutubeID))
}

func (v *Validator) validateChannels(ctx context.Context) error {
	hits, err := v.conn.Paginate(ctx, consts.IndexChannel, nil, nil)
	if err != nil {
		return err
	}
	for _, hit := range hits {
		if v.stopped() {
			return nil
		}
		var ch models.Channel
		if err := hit.Decode(&ch); err != nil {
			continue
		}
		for suffix, url := range map[string]string{
			"_thumb.jpg":  ch.ChannelThumbURL,
			"_banner.jpg": ch.ChannelBannerURL,
			"_tvart.jpg":  ch.ChannelTvartURL,
		} {
			if url == "" {
				continue
			}
			path := filepath.Join(v.env.CacheDir, consts.CacheChannels, ch.ChannelID+suffix)
			if file.Exists(path) {
				continue
			}
			if err := v.fetch(ctx, url, path); err != nil {
				logging.W("thumbnails: channel %s%s: %v", ch.ChannelID, suffix, err)
			}
		}
	}
	return nil
}

func (v *Validator) validatePlaylists(ctx context.Context) error {
	hits, err := v.conn.Paginate(ctx, consts.IndexPlaylist, nil, nil)
	if err != nil {
		return err
	}
	for _, hit := range hits {
		if v.stopped() {
			return nil
		}
		var pl models.Playlist
		if err := hit.Decode(&pl); err != nil || pl.PlaylistThumbnail == "" {
			continue
		}
		path := filepath.Join(v.env.CacheDir, consts.CachePlaylists, pl.PlaylistID+".jpg")
		if file.Exists(path) {
			continue
		}
		if err := v.fetch(ctx, pl.PlaylistThumbnail, path); err != nil {
			logging.W("thumbnails: playlist %s: %v", pl.PlaylistID, err)
		}
	}
	return nil
}

// fetch downloads one artwork URL to path atomically.
func (v *Validator) fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (v *Validator) stopped() bool {
	return v.Stop != nil && v.Stop()
}
