// Package config holds the application configuration document and its
// dotted-path accessors.
package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"tubearchivist/internal/errs"
)

// SubscriptionsConfig controls how many new items subscription scans
// pick up per source.
type SubscriptionsConfig struct {
	ChannelSize       int  `json:"channel_size"`
	LiveChannelSize   int  `json:"live_channel_size"`
	ShortsChannelSize int  `json:"shorts_channel_size"`
	PlaylistSize      int  `json:"playlist_size"`
	AutoStart         bool `json:"auto_start"`
	ExtractFlat       bool `json:"extract_flat"`
}

// DownloadsConfig controls the download worker and its postprocessors.
// Pointer fields mean "unset" rather than zero.
type DownloadsConfig struct {
	LimitSpeed         *int    `json:"limit_speed"`
	SleepInterval      *int    `json:"sleep_interval"`
	AutodeleteDays     *int    `json:"autodelete_days"`
	Format             *string `json:"format"`
	FormatSort         *string `json:"format_sort"`
	AddMetadata        bool    `json:"add_metadata"`
	AddThumbnail       bool    `json:"add_thumbnail"`
	Subtitle           *string `json:"subtitle"`
	SubtitleSource     *string `json:"subtitle_source"`
	SubtitleIndex      bool    `json:"subtitle_index"`
	CommentMax         *string `json:"comment_max"`
	CommentSort        *string `json:"comment_sort"`
	CookieImport       bool    `json:"cookie_import"`
	POToken            bool    `json:"potoken"`
	ThrottledRateLimit *int    `json:"throttledratelimit"`
	ExtractorLang      *string `json:"extractor_lang"`
	IntegrateRYD       bool    `json:"integrate_ryd"`
	IntegrateSB        bool    `json:"integrate_sponsorblock"`
}

// ApplicationConfig holds process-wide feature switches.
type ApplicationConfig struct {
	EnableSnapshot bool `json:"enable_snapshot"`
	EnableCast     bool `json:"enable_cast"`
}

// AppConfig is the single appsettings document.
type AppConfig struct {
	Subscriptions SubscriptionsConfig `json:"subscriptions"`
	Downloads     DownloadsConfig     `json:"downloads"`
	Application   ApplicationConfig   `json:"application"`
}

// Defaults returns the configuration applied to a fresh install.
func Defaults() *AppConfig {
	return &AppConfig{
		Subscriptions: SubscriptionsConfig{
			ChannelSize:       50,
			LiveChannelSize:   50,
			ShortsChannelSize: 50,
			PlaylistSize:      50,
			AutoStart:         false,
			ExtractFlat:       false,
		},
		Downloads: DownloadsConfig{
			AddMetadata:   false,
			AddThumbnail:  false,
			SubtitleIndex: false,
			CookieImport:  false,
			POToken:       false,
			IntegrateRYD:  false,
			IntegrateSB:   false,
		},
		Application: ApplicationConfig{
			EnableSnapshot: true,
			EnableCast:     false,
		},
	}
}

// enumPaths restricts selected paths to closed value sets.
var enumPaths = map[string][]string{
	"downloads.subtitle_source": {"user", "auto"},
	"downloads.comment_sort":    {"top", "new"},
}

// Get reads a value by dotted path. Unknown paths are rejected.
func (c *AppConfig) Get(path string) (any, error) {
	tree, err := c.asTree()
	if err != nil {
		return nil, err
	}

	cur := any(tree)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: unknown config path %q", errs.ErrValidation, path)
		}
		cur, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("%w: unknown config path %q", errs.ErrValidation, path)
		}
	}
	return cur, nil
}

// Update applies dotted-path updates and returns the new config.
// A path must exist in the defaults tree to be accepted; a nil value
// resets an optional field.
func (c *AppConfig) Update(updates map[string]any) (*AppConfig, error) {
	defaults, err := Defaults().asTree()
	if err != nil {
		return nil, err
	}
	tree, err := c.asTree()
	if err != nil {
		return nil, err
	}

	for path, value := range updates {
		if !pathInTree(defaults, path) {
			return nil, fmt.Errorf("%w: unknown config path %q", errs.ErrValidation, path)
		}
		if err := checkEnum(path, value); err != nil {
			return nil, err
		}
		setPath(tree, path, value)
	}

	raw, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	var updated AppConfig
	if err := json.Unmarshal(raw, &updated); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return &updated, nil
}

func (c *AppConfig) asTree() (map[string]any, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// pathInTree checks the path against the defaults tree, the authority
// on which keys exist.
func pathInTree(tree map[string]any, path string) bool {
	cur := any(tree)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return false
		}
		cur, ok = m[part]
		if !ok {
			return false
		}
	}
	return true
}

func setPath(tree map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := tree
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func checkEnum(path string, value any) error {
	allowed, ok := enumPaths[path]
	if !ok || value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: %s expects a string", errs.ErrValidation, path)
	}
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be one of %v", errs.ErrValidation, path, allowed)
}
