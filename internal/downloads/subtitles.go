package downloads

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/extractor"
	"tubearchivist/internal/models"
	"tubearchivist/internal/subtitles"
	"tubearchivist/internal/utils/logging"
)

// cuesPerFragment groups cues into searchable subtitle documents.
const cuesPerFragment = 5

// subtitleFragment is one indexed chunk of a subtitle track.
type subtitleFragment struct {
	YoutubeID     string `json:"youtube_id"`
	Title         string `json:"title"`
	FragmentID    string `json:"subtitle_fragment_id"`
	Channel       string `json:"subtitle_channel"`
	ChannelID     string `json:"subtitle_channel_id"`
	Start         string `json:"subtitle_start"`
	End           string `json:"subtitle_end"`
	Lang          string `json:"subtitle_lang"`
	Source        string `json:"subtitle_source"`
	FragmentIndex int    `json:"subtitle_index"`
	Line          string `json:"subtitle_line"`
}

// fetchSubtitles downloads, converts and stores the configured
// subtitle languages for one video. Sidecars land next to the media
// file; failures per language are logged, never fatal.
func (w *Worker) fetchSubtitles(ctx context.Context, meta *extractor.VideoJSON, video *models.Video) {
	if w.appCfg.Downloads.Subtitle == nil || *w.appCfg.Downloads.Subtitle == "" {
		return
	}

	source := subtitles.SourceUser
	if w.appCfg.Downloads.SubtitleSource != nil {
		source = *w.appCfg.Downloads.SubtitleSource
	}

	for _, lang := range strings.Split(*w.appCfg.Downloads.Subtitle, ",") {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			continue
		}
		track, trackSource := pickTrack(meta, lang, source)
		if track == nil {
			logging.D(1, "downloads: no %s subtitles for %s", lang, video.YoutubeID)
			continue
		}
		if err := w.storeSubtitle(ctx, video, track, lang, trackSource); err != nil {
			logging.E("downloads: subtitles %s for %s: %v", lang, video.YoutubeID, err)
		}
	}
}

// pickTrack selects the json3 rendition for a language, preferring the
// requested source and falling back to auto captions.
func pickTrack(meta *extractor.VideoJSON, lang, source string) (*extractor.SubtitleTrack, string) {
	if source != subtitles.SourceAuto {
		if t := json3Track(meta.Subtitles[lang]); t != nil {
			return t, subtitles.SourceUser
		}
	}
	if t := json3Track(meta.AutomaticCaptions[lang]); t != nil {
		return t, subtitles.SourceAuto
	}
	return nil, ""
}

func json3Track(tracks []extractor.SubtitleTrack) *extractor.SubtitleTrack {
	for i := range tracks {
		if tracks[i].Ext == "json3" {
			return &tracks[i]
		}
	}
	return nil
}

// storeSubtitle fetches the timedtext document, writes the VTT sidecar
// into the archive and indexes the fragments.
func (w *Worker) storeSubtitle(ctx context.Context, video *models.Video, track *extractor.SubtitleTrack, lang, source string) error {
	raw, err := w.fetchTimedtext(ctx, track.URL)
	if err != nil {
		return err
	}
	cues, err := subtitles.Parse(raw)
	if err != nil {
		return err
	}
	if len(cues) == 0 {
		return nil
	}

	mediaURL := video.Channel.ChannelID + "/" + video.YoutubeID + "." + lang + ".vtt"
	dst := filepath.Join(w.env.MediaDir, mediaURL)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, []byte(subtitles.FormatVTT(cues)), 0o644); err != nil {
		return err
	}

	video.Subtitles = append(video.Subtitles, models.Subtitle{
		Ext:    "vtt",
		URL:    track.URL,
		Name:   track.Name,
		Lang:   lang,
		Source: source,
		Media:  mediaURL,
	})

	if !w.appCfg.Downloads.SubtitleIndex {
		return nil
	}
	return w.indexFragments(ctx, video, cues, lang, source)
}

func (w *Worker) fetchTimedtext(ctx context.Context, url string) ([]byte, error) {
	client := &http.Client{Timeout: consts.MetadataProbeTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext fetch returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// indexFragments bulk-writes cue groups as ta_subtitle documents.
func (w *Worker) indexFragments(ctx context.Context, video *models.Video, cues []subtitles.Cue, lang, source string) error {
	bw := w.conn.NewBulkWriter()

	for i := 0; i < len(cues); i += cuesPerFragment {
		end := i + cuesPerFragment
		if end > len(cues) {
			end = len(cues)
		}
		group := cues[i:end]

		fragIndex := i / cuesPerFragment
		fragID := fmt.Sprintf("%s-%s-%d", video.YoutubeID, lang, fragIndex)
		frag := subtitleFragment{
			YoutubeID:     video.YoutubeID,
			Title:         video.Title,
			FragmentID:    fragID,
			Channel:       video.Channel.ChannelName,
			ChannelID:     video.Channel.ChannelID,
			Start:         subtitles.Stamp(group[0].Start),
			End:           subtitles.Stamp(group[len(group)-1].End),
			Lang:          lang,
			Source:        source,
			FragmentIndex: fragIndex,
			Line:          subtitles.PlainText(group),
		}
		if err := bw.Index(consts.IndexSubtitle, fragID, frag); err != nil {
			return err
		}
	}

	failed, err := bw.Flush(ctx)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		logging.W("downloads: %d subtitle fragments failed to index", len(failed))
	}
	return nil
}
