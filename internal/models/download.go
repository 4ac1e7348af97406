package models

// Download queue statuses. Pending rows are waiting, ignored rows are
// excluded from future adds, priority rows jump the line.
const (
	StatusPending  = "pending"
	StatusIgnore   = "ignore"
	StatusPriority = "priority"
)

// DownloadRow is one entry in the ta_download queue.
type DownloadRow struct {
	YoutubeID      string  `json:"youtube_id"`
	Title          string  `json:"title"`
	VidThumbURL    string  `json:"vid_thumb_url"`
	Duration       string  `json:"duration"`
	Published      int64   `json:"published"`
	Timestamp      int64   `json:"timestamp"`
	VidType        VidType `json:"vid_type"`
	ChannelName    string  `json:"channel_name"`
	ChannelID      string  `json:"channel_id"`
	ChannelIndexed bool    `json:"channel_indexed"`
	Status         string  `json:"status"`
	AutoStart      bool    `json:"auto_start"`
	Message        string  `json:"message,omitempty"`
}
