// Package cfg provides environment configuration and the command-line
// interface setup.
package cfg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tubearchivist/internal/domain/keys"

	"github.com/spf13/viper"
)

// EnvConfig is the typed process environment. Loaded once at startup,
// carried explicitly through call sites.
type EnvConfig struct {
	Host           string
	ESURL          string
	ESUser         string
	ESPassword     string
	RedisCon       string
	RedisNamespace string
	Port           int
	BackendPort    int
	Username       string
	Password       string
	MediaDir       string
	CacheDir       string
	AppDir         string
	SnapshotDir    string
	PotProviderURL string
	EnableCast     bool
	EnableSnapshot bool
	HostUID        int
	HostGID        int
	LogLevel       string
	Location       *time.Location
	TZName         string
}

// LoadEnv reads the environment through viper and validates the minimum
// required variables.
func LoadEnv() (*EnvConfig, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(keys.EnvESURL, "http://localhost:9200")
	v.SetDefault(keys.EnvElasticUser, "elastic")
	v.SetDefault(keys.EnvRedisCon, "redis://localhost:6379")
	v.SetDefault(keys.EnvRedisNamespace, "ta:")
	v.SetDefault(keys.EnvTZ, "UTC")
	v.SetDefault(keys.EnvPort, 8000)
	v.SetDefault(keys.EnvBackendPort, 8080)
	v.SetDefault(keys.EnvMediaDir, "/youtube")
	v.SetDefault(keys.EnvCacheDir, "/cache")
	v.SetDefault(keys.EnvAppDir, "/app")
	v.SetDefault(keys.EnvLogLevel, "info")

	c := &EnvConfig{
		Host:           v.GetString(keys.EnvHost),
		ESURL:          strings.TrimSuffix(v.GetString(keys.EnvESURL), "/"),
		ESUser:         v.GetString(keys.EnvElasticUser),
		ESPassword:     v.GetString(keys.EnvElasticPassword),
		RedisCon:       v.GetString(keys.EnvRedisCon),
		RedisNamespace: v.GetString(keys.EnvRedisNamespace),
		Port:           v.GetInt(keys.EnvPort),
		BackendPort:    v.GetInt(keys.EnvBackendPort),
		Username:       v.GetString(keys.EnvUsername),
		Password:       v.GetString(keys.EnvPassword),
		MediaDir:       v.GetString(keys.EnvMediaDir),
		CacheDir:       v.GetString(keys.EnvCacheDir),
		AppDir:         v.GetString(keys.EnvAppDir),
		SnapshotDir:    v.GetString(keys.EnvSnapshotDir),
		PotProviderURL: v.GetString(keys.EnvPotProviderURL),
		EnableCast:     v.GetBool(keys.EnvEnableCast),
		EnableSnapshot: !v.GetBool(keys.EnvDisableSnapshot),
		LogLevel:       v.GetString(keys.EnvLogLevel),
		TZName:         v.GetString(keys.EnvTZ),
	}

	if v.IsSet(keys.EnvHostUID) {
		c.HostUID = parseIntDefault(v.GetString(keys.EnvHostUID), 0)
	}
	if v.IsSet(keys.EnvHostGID) {
		c.HostGID = parseIntDefault(v.GetString(keys.EnvHostGID), 0)
	}

	loc, err := time.LoadLocation(c.TZName)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", c.TZName, err)
	}
	c.Location = loc

	if c.ESPassword == "" {
		return nil, fmt.Errorf("ELASTIC_PASSWORD is not set")
	}
	if c.Host == "" {
		return nil, fmt.Errorf("TA_HOST is not set")
	}

	return c, nil
}

func parseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// VideoCachePath returns the thumbnail cache path for a video id:
// videos/<first-char-lowercased>/<id>.jpg under the cache dir.
func (c *EnvConfig) VideoCachePath(youtubeID string) string {
	if youtubeID == "" {
		return ""
	}
	sub := strings.ToLower(youtubeID[:1])
	return c.CacheDir + "/videos/" + sub + "/" + youtubeID + ".jpg"
}
