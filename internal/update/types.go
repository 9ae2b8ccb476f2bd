// Package update tracks service-worker update availability for a Progressive
// Web App: prompt/banner notification state, prompt attempt counting,
// periodic update checks, and a best-effort rollback record persisted to
// key-value storage.
package update

import "time"

// Event names emitted on the hub.
const (
	EventPrompt          = "updateprompt"
	EventPromptDismissed = "updatepromptdismissed"
	EventPostponed       = "updatepostponed"
	EventBanner          = "updatebanner"
)

// UnknownVersion is the fallback when no version can be determined.
const UnknownVersion = "unknown"

// PromptEvent is the payload for EventPrompt.
type PromptEvent struct {
	Title   string `json:"title"`
	Version string `json:"version"`
	Attempt int    `json:"attempt"`
}

// PostponedEvent is the payload for EventPostponed.
type PostponedEvent struct {
	Duration time.Duration `json:"duration"`
}

// BannerEvent is the payload for EventBanner. Banners are non-modal and
// always persistent.
type BannerEvent struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	Version    string `json:"version"`
	Persistent bool   `json:"persistent"`
}

// WorkerInfo describes a service worker script, as reported by the
// service-worker manager collaborator.
type WorkerInfo struct {
	ScriptURL string `json:"scriptUrl"`
	State     string `json:"state,omitempty"`
}

// WorkerSource is the service-worker manager collaborator. The manager
// consumes it for update checks; implementations live with the caller
// (the dev server provides a file-backed one).
type WorkerSource interface {
	// CheckForUpdates returns the waiting worker if a new one is available,
	// or nil when the active worker is current.
	CheckForUpdates() (*WorkerInfo, error)
	// WorkerInfo returns the currently known worker, or nil.
	WorkerInfo() (*WorkerInfo, error)
	// SkipWaiting activates the waiting worker.
	SkipWaiting() error
	// ClearCaches drops the worker's caches, used before a rollback.
	ClearCaches() error
}

// VersionSource supplies the application's current version, typically read
// from a version or build-time meta tag.
type VersionSource interface {
	CurrentVersion() string
}

// RollbackRecord is the last-known-good version record, retained to react to
// failed updates. Persisted as JSON under a fixed storage key.
type RollbackRecord struct {
	Timestamp      int64  `json:"timestamp"`
	CurrentVersion string `json:"currentVersion"`
	UserAgent      string `json:"userAgent"`
}

// Status is a point-in-time snapshot of the manager's state.
type Status struct {
	UpdateAvailable   bool      `json:"updateAvailable"`
	UpdatePromptShown bool      `json:"updatePromptShown"`
	PromptAttempts    int       `json:"promptAttempts"`
	IsUpdating        bool      `json:"isUpdating"`
	Version           string    `json:"version,omitempty"`
	LastUpdateCheck   time.Time `json:"lastUpdateCheck"`
	HasRollbackData   bool      `json:"hasRollbackData"`
}
