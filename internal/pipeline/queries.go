package pipeline

import (
	"tubearchivist/internal/config"
	"tubearchivist/internal/models"
)

// VideoQuery is one channel tab scan: which type of videos to list and
// how many.
type VideoQuery struct {
	VidType models.VidType
	Limit   int
}

// overwriteKeys maps a vid type to its per-channel size overwrite key.
var overwriteKeys = map[models.VidType]string{
	models.VidTypeVideos:  "subscriptions_channel_size",
	models.VidTypeStreams: "subscriptions_live_channel_size",
	models.VidTypeShorts:  "subscriptions_shorts_channel_size",
}

// BuildVideoQueries computes the scan list for one channel. Limits come
// from channel overwrites when set, app config otherwise. Queries with
// a limit of zero are dropped. When only is a concrete type, just that
// query is built. A nil channel falls back to config limits alone.
func BuildVideoQueries(ch *models.Channel, cfg *config.AppConfig, only models.VidType) []VideoQuery {
	types := []models.VidType{models.VidTypeVideos, models.VidTypeStreams, models.VidTypeShorts}
	if only != "" && only != models.VidTypeUnknown {
		types = []models.VidType{only}
	}

	var queries []VideoQuery
	for _, vt := range types {
		limit := configLimit(cfg, vt)
		if ch != nil {
			limit = ch.OverwriteInt(overwriteKeys[vt], limit)
		}
		if limit == 0 {
			continue
		}
		queries = append(queries, VideoQuery{VidType: vt, Limit: limit})
	}
	return queries
}

func configLimit(cfg *config.AppConfig, vt models.VidType) int {
	if cfg == nil {
		return 0
	}
	switch vt {
	case models.VidTypeVideos:
		return cfg.Subscriptions.ChannelSize
	case models.VidTypeStreams:
		return cfg.Subscriptions.LiveChannelSize
	case models.VidTypeShorts:
		return cfg.Subscriptions.ShortsChannelSize
	}
	return 0
}
