// Package importer ingests manually placed media files from the import
// cache directory into the archive.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"tubearchivist/internal/cfg"
	"tubearchivist/internal/config"
	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/es"
	"tubearchivist/internal/extractor"
	"tubearchivist/internal/file"
	"tubearchivist/internal/models"
	"tubearchivist/internal/utils/logging"
)

// idFromNameRe matches the yt-dlp "[<id>]" filename convention.
var idFromNameRe = regexp.MustCompile(`\[([\w-]{11})\]`)

// mediaExts are the container formats accepted without conversion.
var mediaExts = map[string]struct{}{
	".mp4": {},
}

// Importer scans the import directory and indexes what it finds.
type Importer struct {
	conn   *es.Connection
	ex     *extractor.Extractor
	appCfg *config.AppConfig
	env    *cfg.EnvConfig
	Stop   func() bool
}

// New wires an importer.
func New(conn *es.Connection, ex *extractor.Extractor, appCfg *config.AppConfig, env *cfg.EnvConfig) *Importer {
	return &Importer{conn: conn, ex: ex, appCfg: appCfg, env: env}
}

// WithStop returns a shallow copy polling the given per-run stop
// callback, leaving the shared instance's hook nil.
func (i *Importer) WithStop(stop func() bool) *Importer {
	cp := *i
	cp.Stop = stop
	return &cp
}

// candidate is one discovered media file with its optional sidecar.
type candidate struct {
	MediaPath string
	InfoPath  string
	YoutubeID string
}

// Run imports every recognizable file in the import directory and
// returns how many videos were indexed.
func (i *Importer) Run(ctx context.Context) (int, error) {
	importDir := filepath.Join(i.env.CacheDir, consts.CacheImport)
	candidates, err := Scan(importDir)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		logging.I("import: nothing to import")
		return 0, nil
	}

	imported := 0
	for _, c := range candidates {
		if i.stopped() {
			break
		}
		if err := i.importOne(ctx, c); err != nil {
			logging.E("import: %s failed: %v", c.MediaPath, err)
			continue
		}
		imported++
	}
	logging.I("import: indexed %d of %d candidates", imported, len(candidates))
	return imported, nil
}

// Scan discovers importable media files. The id comes from the
// "[<id>]" filename convention or the sidecar info json.
func Scan(dir string) ([]candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := mediaExts[ext]; !ok {
			continue
		}

		c := candidate{MediaPath: filepath.Join(dir, name)}
		base := strings.TrimSuffix(name, ext)

		if info := filepath.Join(dir, base+".info.json"); file.Exists(info) {
			c.InfoPath = info
			c.YoutubeID = idFromInfoJSON(info)
		}
		if c.YoutubeID == "" {
			c.YoutubeID = IDFromFilename(name)
		}
		if c.YoutubeID == "" {
			logging.W("import: no video id derivable from %q, skipping", name)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// IDFromFilename extracts the 11-character id from the yt-dlp bracket
// convention.
func IDFromFilename(name string) string {
	m := idFromNameRe.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

func idFromInfoJSON(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var info struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return ""
	}
	return info.ID
}

// importOne indexes a single candidate and moves its media into the
// archive. Metadata comes from remote extraction, falling back to the
// sidecar when the video is gone upstream.
func (i *Importer) importOne(ctx context.Context, c candidate) error {
	meta, err := i.ex.Extract(ctx, "https://www.youtube.com/watch?v="+c.YoutubeID,
		&extractor.Options{Config: i.appCfg})
	if errors.Is(err, errs.ErrNotFound) && c.InfoPath != "" {
		meta, err = metaFromSidecar(c.InfoPath)
	}
	if err != nil {
		return err
	}
	if !meta.HasRequiredFields() {
		return errs.ErrValidation
	}

	now := time.Now().Unix()
	video := models.Video{
		YoutubeID:      meta.ID,
		Title:          meta.Title,
		Description:    meta.Description,
		Category:       meta.Categories,
		Tags:           meta.Tags,
		Published:      meta.Timestamp,
		VidLastRefresh: now,
		DateDownloaded: now,
		Active:         true,
		VidType:        models.VidTypeVideos,
		VidThumbURL:    meta.BestThumbnail(),
		MediaURL:       meta.ChannelID + "/" + meta.ID + ".mp4",
		MediaSize:      file.Size(c.MediaPath),
		Player: models.VideoPlayer{
			Duration:    int64(meta.Duration),
			DurationStr: meta.DurationString,
		},
		Channel: models.Channel{
			ChannelID:   meta.ChannelID,
			ChannelName: meta.Channel,
		},
	}

	if err := i.conn.IndexDoc(ctx, consts.IndexVideo, video.YoutubeID, video); err != nil {
		return err
	}

	dst := filepath.Join(i.env.MediaDir, video.MediaURL)
	if err := file.Move(c.MediaPath, dst); err != nil {
		return err
	}
	file.Chown(dst, i.env.HostUID, i.env.HostGID)

	if c.InfoPath != "" {
		os.Remove(c.InfoPath)
	}
	return nil
}

func metaFromSidecar(path string) (*extractor.VideoJSON, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta extractor.VideoJSON
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	meta.Raw = raw
	return &meta, nil
}

func (i *Importer) stopped() bool {
	return i.Stop != nil && i.Stop()
}
