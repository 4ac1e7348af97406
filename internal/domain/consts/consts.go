// Package consts holds global, unchanging values.
package consts

// Index names. Each is an alias pointing at the current versioned index.
const (
	IndexChannel   = "ta_channel"
	IndexVideo     = "ta_video"
	IndexPlaylist  = "ta_playlist"
	IndexDownload  = "ta_download"
	IndexConfig    = "ta_config"
	IndexSubtitle  = "ta_subtitle"
	IndexComment   = "ta_comment"
	IndexUser      = "ta_user"
	IndexCustomDir = "ta_custom_playlist"
)

// AllIndexes lists every managed index alias.
var AllIndexes = [...]string{
	IndexChannel,
	IndexVideo,
	IndexPlaylist,
	IndexDownload,
	IndexConfig,
	IndexSubtitle,
	IndexComment,
	IndexUser,
}

// Cache directory layout, relative to the cache dir.
const (
	CacheBackup    = "backup"
	CacheChannels  = "channels"
	CacheDownload  = "download"
	CacheImport    = "import"
	CachePlaylists = "playlists"
	CacheVideos    = "videos"
)

// CacheDirs lists all cache subdirectories created at startup.
var CacheDirs = [...]string{
	CacheBackup,
	CacheChannels,
	CacheDownload,
	CacheImport,
	CachePlaylists,
	CacheVideos,
}

// CustomPlaylistPrefix marks locally created playlists with no remote
// counterpart.
const CustomPlaylistPrefix = "TA_playlist_"

// ReleaseAPIURL serves the latest published release descriptor.
const ReleaseAPIURL = "https://www.tubearchivist.com/api/release/latest/"
