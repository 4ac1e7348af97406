package extractor

import "encoding/json"

// VideoJSON is the subset of the yt-dlp info dict the pipeline and
// reindexer consume. Channel and playlist extractions reuse the same
// shape with Entries populated.
type VideoJSON struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	Tags        []string `json:"tags"`

	Channel              string `json:"channel"`
	ChannelID            string `json:"channel_id"`
	ChannelFollowerCount int64  `json:"channel_follower_count"`
	Uploader             string `json:"uploader"`
	UploaderID           string `json:"uploader_id"`

	Timestamp  int64  `json:"timestamp"`
	UploadDate string `json:"upload_date"`

	Duration       float64 `json:"duration"`
	DurationString string  `json:"duration_string"`
	LiveStatus     string  `json:"live_status"`
	WasLive        bool    `json:"was_live"`
	Availability   string  `json:"availability"`

	Width  int `json:"width"`
	Height int `json:"height"`

	Thumbnail  string      `json:"thumbnail"`
	Thumbnails []Thumbnail `json:"thumbnails"`

	ViewCount    int64 `json:"view_count"`
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`

	Subtitles         map[string][]SubtitleTrack `json:"subtitles"`
	AutomaticCaptions map[string][]SubtitleTrack `json:"automatic_captions"`

	// Playlist/channel level fields.
	Entries       []VideoJSON `json:"entries"`
	PlaylistCount int         `json:"playlist_count"`
	ModifiedDate  string      `json:"modified_date"`

	// Raw keeps the full decoded document for fields we pass through
	// without modelling.
	Raw json.RawMessage `json:"-"`
}

// Thumbnail is one thumbnail variant.
type Thumbnail struct {
	URL        string `json:"url"`
	ID         string `json:"id"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Preference int    `json:"preference"`
}

// SubtitleTrack points at one downloadable subtitle rendition.
type SubtitleTrack struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// BestThumbnail picks the highest-preference thumbnail URL, falling
// back to the top-level field.
func (v *VideoJSON) BestThumbnail() string {
	best := ""
	bestPref := -1 << 30
	for _, t := range v.Thumbnails {
		if t.URL != "" && t.Preference > bestPref {
			best = t.URL
			bestPref = t.Preference
		}
	}
	if best != "" {
		return best
	}
	return v.Thumbnail
}

// HasRequiredFields reports whether the minimum metadata for indexing
// is present.
func (v *VideoJSON) HasRequiredFields() bool {
	return v.ID != "" && v.Title != "" && v.Channel != "" && v.ChannelID != ""
}
