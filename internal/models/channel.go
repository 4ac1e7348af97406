// Package models holds the document and queue row types shared across
// the program.
package models

// ChannelOverwriteKeys is the closed set of per-channel override keys.
// Anything else is rejected at the boundary.
var ChannelOverwriteKeys = map[string]struct{}{
	"download_format":                   {},
	"autodelete_days":                   {},
	"index_playlists":                   {},
	"integrate_sponsorblock":            {},
	"subscriptions_channel_size":        {},
	"subscriptions_live_channel_size":   {},
	"subscriptions_shorts_channel_size": {},
}

// Channel is the indexed channel document.
type Channel struct {
	ChannelID          string         `json:"channel_id"`
	ChannelName        string         `json:"channel_name"`
	ChannelSubscribed  bool           `json:"channel_subscribed"`
	ChannelActive      bool           `json:"channel_active"`
	ChannelLastRefresh int64          `json:"channel_last_refresh"`
	ChannelSubs        int64          `json:"channel_subs"`
	ChannelViews       int64          `json:"channel_views"`
	ChannelDescription string         `json:"channel_description,omitempty"`
	ChannelTags        []string       `json:"channel_tags,omitempty"`
	ChannelTabs        []string       `json:"channel_tabs"`
	ChannelThumbURL    string         `json:"channel_thumb_url"`
	ChannelBannerURL   string         `json:"channel_banner_url"`
	ChannelTvartURL    string         `json:"channel_tvart_url"`
	ChannelOverwrites  map[string]any `json:"channel_overwrites,omitempty"`
}

// HasTab reports whether the channel exposes the given tab
// (videos, streams, shorts).
func (c *Channel) HasTab(tab string) bool {
	for _, t := range c.ChannelTabs {
		if t == tab {
			return true
		}
	}
	return false
}

// OverwriteInt returns an integer overwrite value, or def when unset.
// Stored JSON numbers decode as float64.
func (c *Channel) OverwriteInt(key string, def int) int {
	v, ok := c.ChannelOverwrites[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}

// OverwriteBool returns a boolean overwrite value, or false when unset.
func (c *Channel) OverwriteBool(key string) bool {
	b, _ := c.ChannelOverwrites[key].(bool)
	return b
}

// OverwriteString returns a string overwrite value, or "" when unset.
func (c *Channel) OverwriteString(key string) string {
	if s, ok := c.ChannelOverwrites[key].(string); ok {
		return s
	}
	return ""
}

// ValidateOverwrites rejects any overwrite key outside the closed set.
func ValidateOverwrites(overwrites map[string]any) error {
	for k := range overwrites {
		if _, ok := ChannelOverwriteKeys[k]; !ok {
			return &OverwriteKeyError{Key: k}
		}
	}
	return nil
}

// OverwriteKeyError reports an overwrite key outside the allowed set.
type OverwriteKeyError struct {
	Key string
}

func (e *OverwriteKeyError) Error() string {
	return "invalid channel overwrite key: " + e.Key
}
