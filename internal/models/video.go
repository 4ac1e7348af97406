package models

// VidType classifies a video by its channel tab of origin.
type VidType string

const (
	VidTypeVideos  VidType = "videos"
	VidTypeStreams VidType = "streams"
	VidTypeShorts  VidType = "shorts"
	VidTypeUnknown VidType = "unknown"
)

// ParseVidType maps a URL path segment onto a VidType.
func ParseVidType(s string) VidType {
	switch s {
	case "videos":
		return VidTypeVideos
	case "streams":
		return VidTypeStreams
	case "shorts":
		return VidTypeShorts
	}
	return VidTypeUnknown
}

// VideoStats holds remote engagement counters.
type VideoStats struct {
	ViewCount     int64    `json:"view_count"`
	LikeCount     int64    `json:"like_count"`
	DislikeCount  int64    `json:"dislike_count"`
	AverageRating *float64 `json:"average_rating"`
}

// VideoPlayer holds local playback state.
type VideoPlayer struct {
	Watched     bool   `json:"watched"`
	WatchedDate int64  `json:"watched_date,omitempty"`
	Duration    int64  `json:"duration"`
	DurationStr string `json:"duration_str"`
	Position    int64  `json:"position,omitempty"`
}

// VideoStream describes one media stream inside the downloaded file.
type VideoStream struct {
	Type   string `json:"type"`
	Index  int    `json:"index"`
	Codec  string `json:"codec"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	BR     int64  `json:"bitrate"`
}

// Subtitle is one sidecar subtitle track attached to a video.
type Subtitle struct {
	Ext    string `json:"ext"`
	URL    string `json:"url"`
	Name   string `json:"name"`
	Lang   string `json:"lang"`
	Source string `json:"source"`
	Media  string `json:"media_url"`
}

// Video is the indexed video document. Channel is denormalized for read
// efficiency; the sync-to-videos operation keeps copies current.
type Video struct {
	YoutubeID      string         `json:"youtube_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Category       []string       `json:"category,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	Published      int64          `json:"published"`
	VidLastRefresh int64          `json:"vid_last_refresh"`
	DateDownloaded int64          `json:"date_downloaded"`
	Active         bool           `json:"active"`
	VidType        VidType        `json:"vid_type"`
	VidThumbURL    string         `json:"vid_thumb_url"`
	Stats          VideoStats     `json:"stats"`
	MediaURL       string         `json:"media_url"`
	MediaSize      int64          `json:"media_size"`
	Streams        []VideoStream  `json:"streams"`
	Player         VideoPlayer    `json:"player"`
	Channel        Channel        `json:"channel"`
	Playlist       []string       `json:"playlist,omitempty"`
	Subtitles      []Subtitle     `json:"subtitles,omitempty"`
	CommentCount   int64          `json:"comment_count,omitempty"`
	SponsorBlock   map[string]any `json:"sponsorblock,omitempty"`
}

// ExpectedMediaURL derives the canonical archive-relative media path.
func (v *Video) ExpectedMediaURL() string {
	return v.Channel.ChannelID + "/" + v.YoutubeID + ".mp4"
}
