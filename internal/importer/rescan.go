package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/es"
	"tubearchivist/internal/file"
	"tubearchivist/internal/utils/logging"
)

// RescanResult summarizes one filesystem reconciliation pass.
type RescanResult struct {
	OnDisk      int
	Indexed     int
	Added       int
	Deactivated int
}

// Rescan reconciles the media directory with the video index. Files
// without a document get indexed in place, active documents without a
// file are deactivated.
func (i *Importer) Rescan(ctx context.Context) (*RescanResult, error) {
	onDisk, err := scanMediaDir(i.env.MediaDir)
	if err != nil {
		return nil, err
	}

	type indexedVideo struct {
		YoutubeID string `json:"youtube_id"`
		MediaURL  string `json:"media_url"`
		Active    bool   `json:"active"`
	}
	indexed := map[string]indexedVideo{}
	_, err = i.conn.Paginate(ctx, consts.IndexVideo, map[string]any{
		"match_all": map[string]any{},
	}, &es.PaginateOpts{Callback: func(hits []es.SearchHit, _ float64) error {
		for _, hit := range hits {
			var v indexedVideo
			if err := hit.Decode(&v); err != nil {
				continue
			}
			indexed[v.YoutubeID] = v
		}
		return nil
	}})
	if err != nil {
		return nil, err
	}

	res := &RescanResult{OnDisk: len(onDisk), Indexed: len(indexed)}

	for id, mediaPath := range onDisk {
		if i.stopped() {
			break
		}
		if _, ok := indexed[id]; ok {
			continue
		}
		c := candidate{MediaPath: mediaPath, YoutubeID: id}
		if info := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + ".info.json"; file.Exists(info) {
			c.InfoPath = info
		}
		if err := i.importOne(ctx, c); err != nil {
			logging.E("rescan: indexing %s failed: %v", id, err)
			continue
		}
		res.Added++
	}

	for id, v := range indexed {
		if i.stopped() {
			break
		}
		if !v.Active {
			continue
		}
		if _, ok := onDisk[id]; ok {
			continue
		}
		if err := i.conn.UpdateDoc(ctx, consts.IndexVideo, id, map[string]any{
			"active": false,
		}); err != nil {
			logging.E("rescan: deactivating %s failed: %v", id, err)
			continue
		}
		res.Deactivated++
	}

	logging.I("rescan: %d files, %d docs, %d added, %d deactivated",
		res.OnDisk, res.Indexed, res.Added, res.Deactivated)
	return res, nil
}

// scanMediaDir maps youtube id to media path for every archive file.
// The layout is <media>/<channel_id>/<video_id>.mp4.
func scanMediaDir(mediaDir string) (map[string]string, error) {
	channels, err := os.ReadDir(mediaDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	out := map[string]string{}
	for _, ch := range channels {
		if !ch.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(mediaDir, ch.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			name := f.Name()
			ext := strings.ToLower(filepath.Ext(name))
			if _, ok := mediaExts[ext]; !ok {
				continue
			}
			id := strings.TrimSuffix(name, ext)
			out[id] = filepath.Join(mediaDir, ch.Name(), name)
		}
	}
	return out, nil
}
