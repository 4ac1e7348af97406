package consts

import "time"

// Network timeouts
const (
	MetadataProbeTimeout = 10 * time.Second
	ReleaseCheckTimeout  = 20 * time.Second
	ArtDownloadTimeout   = 30 * time.Second
	StoreRequestTimeout  = 60 * time.Second
)

// Retry configuration
const (
	DownloadMaxRetries = 3
	DownloadRetryDelay = 10 * time.Second
	BulkRetryBackoff   = 100 * time.Millisecond
)

// Misc intervals
const (
	SnapshotPollInterval = 5 * time.Second
	FatalStartupDelay    = 60 * time.Second
	HandleCacheTTL       = 7 * 24 * time.Hour
	MessageErrorTTL      = 4 * time.Minute
)
