// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Download Pipeline - these keys govern batch destinations and retrieval engine hints.
const (
	DownloadPath                = "download.path"
	DownloadFormat              = "download.format"
	DownloadConcurrentFragments = "download.concurrent_fragments"
	DownloadThrottle            = "download.throttle"
)

// Session Persistence - these keys configure where reusable credentials and cookie jars live.
const (
	SessionPath = "session.path"
)

// History Tracking - these keys configure the persistence of completed download records.
const (
	HistorySaveOnDownload = "history.save_on_download"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these settings govern presentation and update discovery.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
