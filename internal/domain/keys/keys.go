// Package keys holds the well-known key names used in the KV store and
// the environment.
package keys

// KV keys. The closed set every component is allowed to touch.
const (
	Cookie         string = "cookie"
	CookieValid    string = "cookie:valid"
	POToken        string = "potoken"
	DLAutoOnly     string = "dl_auto_only"
	DLQueue        string = "dl_queue"
	DLQueueID      string = "dl_queue_id"
	Downloading    string = "downloading"
	ManualImport   string = "manual_import"
	Reindex        string = "reindex"
	Rescan         string = "rescan"
	RunBackup      string = "run_backup"
	StartupCheck   string = "startup_check"
	SubscribeQueue string = "subscribe_queue"
	VersionCheck   string = "versioncheck:new"
	StartTimestamp string = "STARTTIMESTAMP"
)

// Key prefixes for parameterized entries.
const (
	MessagePrefix      string = "message"
	ReindexPrefix      string = "reindex:ta_"
	HandleSearchPrefix string = "channel:handlesearch"
	ProgressInfix      string = "progress"
)

// Locks cleared on startup.
var StartupClearLocks = [...]string{
	Downloading,
	ManualImport,
	Reindex,
	Rescan,
	RunBackup,
	StartupCheck,
	"reindex:ta_video",
	"reindex:ta_channel",
	"reindex:ta_playlist",
}

// Environment variable names read through viper.
const (
	EnvHost            string = "TA_HOST"
	EnvESURL           string = "ES_URL"
	EnvElasticUser     string = "ELASTIC_USER"
	EnvElasticPassword string = "ELASTIC_PASSWORD"
	EnvRedisCon        string = "REDIS_CON"
	EnvRedisNamespace  string = "REDIS_NAME_SPACE"
	EnvTZ              string = "TZ"
	EnvPort            string = "TA_PORT"
	EnvBackendPort     string = "TA_BACKEND_PORT"
	EnvUsername        string = "TA_USERNAME"
	EnvPassword        string = "TA_PASSWORD"
	EnvMediaDir        string = "TA_MEDIA_DIR"
	EnvCacheDir        string = "TA_CACHE_DIR"
	EnvAppDir          string = "TA_APP_DIR"
	EnvEnableCast      string = "ENABLE_CAST"
	EnvHostUID         string = "HOST_UID"
	EnvHostGID         string = "HOST_GID"
	EnvPotProviderURL  string = "POT_PROVIDER_URL"
	EnvSnapshotDir     string = "ES_SNAPSHOT_DIR"
	EnvDisableSnapshot string = "ELASTIC_SNAPSHOT_DISABLE"
	EnvLogLevel        string = "TA_LOG_LEVEL"
)
