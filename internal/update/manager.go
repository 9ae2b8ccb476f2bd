package update

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pwakit/pwakit/internal/events"
	"github.com/pwakit/pwakit/internal/storage"
)

// rollbackKey is the fixed storage key for the serialized rollback record.
const rollbackKey = "pwakit.update.rollback"

// DefaultCheckFrequency is used when Options.CheckFrequency is zero.
const DefaultCheckFrequency = time.Hour

// ErrNoRollbackData is returned by Rollback when no record is held.
var ErrNoRollbackData = errors.New("update: no rollback data")

// Options configures a Manager. The zero value is usable: notifications use
// default wording, rollback persistence is disabled without a store, and the
// version falls back to UnknownVersion without a version source.
type Options struct {
	// Title is the notification title for prompts and banners.
	Title string
	// BannerMessage is the banner body text.
	BannerMessage string
	// UseBanner selects a non-modal banner instead of a prompt when a
	// waiting worker is reported.
	UseBanner bool
	// CheckFrequency is the periodic check interval.
	CheckFrequency time.Duration
	// UserAgent is recorded in rollback records.
	UserAgent string
	// Versions supplies the current application version.
	Versions VersionSource
	// Store persists the rollback record. May be nil.
	Store storage.Store
}

// Manager holds update-notification state. It is notified of waiting workers
// (directly or via periodic checks against a WorkerSource), mutates its state
// on user actions, and emits events on the hub for UI collaborators.
type Manager struct {
	hub    *events.Hub
	source WorkerSource
	opts   Options

	mu                sync.Mutex
	updateAvailable   bool
	updatePromptShown bool
	promptAttempts    int
	isUpdating        bool
	metadataVersion   string
	lastUpdateCheck   time.Time
	rollback          *RollbackRecord

	checker *PeriodicChecker
}

// NewManager creates a manager emitting on hub and checking source for
// waiting workers. Any persisted rollback record is loaded best-effort.
func NewManager(hub *events.Hub, source WorkerSource, opts Options) *Manager {
	if opts.Title == "" {
		opts.Title = "Update available"
	}
	if opts.BannerMessage == "" {
		opts.BannerMessage = "A new version is ready to install."
	}
	if opts.CheckFrequency <= 0 {
		opts.CheckFrequency = DefaultCheckFrequency
	}

	m := &Manager{
		hub:    hub,
		source: source,
		opts:   opts,
	}
	m.checker = NewPeriodicChecker(opts.CheckFrequency, m.CheckForUpdates)
	m.loadRollbackData()
	return m
}

// Hub returns the hub the manager emits on.
func (m *Manager) Hub() *events.Hub {
	return m.hub
}

// WorkerWaiting records that a new service worker is waiting and notifies
// via prompt or banner per Options.UseBanner.
func (m *Manager) WorkerWaiting(worker *WorkerInfo) {
	version := VersionFromWorker(worker)

	m.mu.Lock()
	m.updateAvailable = true
	m.metadataVersion = version
	useBanner := m.opts.UseBanner
	m.mu.Unlock()

	if useBanner {
		m.ShowUpdateBanner()
	} else {
		m.ShowUpdatePrompt()
	}
}

// CheckForUpdates asks the worker source whether a new worker is waiting and
// records the check time. Check failures are logged and otherwise ignored.
func (m *Manager) CheckForUpdates() {
	m.mu.Lock()
	m.lastUpdateCheck = time.Now()
	m.mu.Unlock()

	if m.source == nil {
		return
	}
	worker, err := m.source.CheckForUpdates()
	if err != nil {
		log.WithError(err).Debug("update check failed")
		return
	}
	if worker != nil {
		m.WorkerWaiting(worker)
	}
}

// ShowUpdatePrompt surfaces the update prompt. It returns true and emits
// EventPrompt only while an update is available; otherwise it returns false
// without mutating state or emitting.
func (m *Manager) ShowUpdatePrompt() bool {
	m.mu.Lock()
	if !m.updateAvailable {
		m.mu.Unlock()
		return false
	}
	m.updatePromptShown = true
	m.promptAttempts++
	ev := PromptEvent{
		Title:   m.opts.Title,
		Version: m.versionLocked(),
		Attempt: m.promptAttempts,
	}
	m.mu.Unlock()

	m.hub.Emit(EventPrompt, ev)
	return true
}

// DismissUpdatePrompt records that the user dismissed the prompt.
func (m *Manager) DismissUpdatePrompt() {
	m.mu.Lock()
	m.updatePromptShown = false
	m.mu.Unlock()

	m.hub.Emit(EventPromptDismissed, struct{}{})
}

// PostponeUpdate hides the prompt for now. Scheduling the re-prompt after d
// is the caller's concern.
func (m *Manager) PostponeUpdate(d time.Duration) {
	m.mu.Lock()
	m.updatePromptShown = false
	m.mu.Unlock()

	m.hub.Emit(EventPostponed, PostponedEvent{Duration: d})
}

// ShowUpdateBanner emits a persistent, non-modal banner. Banner display does
// not count as a prompt attempt.
func (m *Manager) ShowUpdateBanner() {
	m.mu.Lock()
	ev := BannerEvent{
		Title:      m.opts.Title,
		Message:    m.opts.BannerMessage,
		Version:    m.versionLocked(),
		Persistent: true,
	}
	m.mu.Unlock()

	m.hub.Emit(EventBanner, ev)
}

// versionLocked returns the waiting worker's version. Caller must hold m.mu.
func (m *Manager) versionLocked() string {
	if m.metadataVersion == "" {
		return UnknownVersion
	}
	return m.metadataVersion
}

// Status returns a snapshot of the manager state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Status{
		UpdateAvailable:   m.updateAvailable,
		UpdatePromptShown: m.updatePromptShown,
		PromptAttempts:    m.promptAttempts,
		IsUpdating:        m.isUpdating,
		LastUpdateCheck:   m.lastUpdateCheck,
		HasRollbackData:   m.rollback != nil,
	}
	if m.updateAvailable {
		s.Version = m.versionLocked()
	}
	return s
}

// CurrentVersion returns the application's version from the version source,
// or UnknownVersion when no source is configured or it has no answer.
func (m *Manager) CurrentVersion() string {
	if m.opts.Versions == nil {
		return UnknownVersion
	}
	if v := m.opts.Versions.CurrentVersion(); v != "" {
		return v
	}
	return UnknownVersion
}

// ApplyUpdate saves a rollback record, activates the waiting worker, and
// clears the availability state.
func (m *Manager) ApplyUpdate() error {
	m.mu.Lock()
	if !m.updateAvailable {
		m.mu.Unlock()
		return errors.New("update: no update available")
	}
	m.isUpdating = true
	m.mu.Unlock()

	m.SaveRollbackData()

	if m.source != nil {
		if err := m.source.SkipWaiting(); err != nil {
			m.mu.Lock()
			m.isUpdating = false
			m.mu.Unlock()
			return fmt.Errorf("failed to activate waiting worker: %w", err)
		}
	}

	m.mu.Lock()
	m.updateAvailable = false
	m.updatePromptShown = false
	m.isUpdating = false
	m.mu.Unlock()
	return nil
}

// Rollback reacts to a failed update: it clears the worker's caches so the
// previous version can take over again, then drops the rollback record.
func (m *Manager) Rollback() error {
	m.mu.Lock()
	rec := m.rollback
	m.mu.Unlock()
	if rec == nil {
		return ErrNoRollbackData
	}

	if m.source != nil {
		if err := m.source.ClearCaches(); err != nil {
			return fmt.Errorf("failed to clear worker caches: %w", err)
		}
	}
	m.ClearRollbackData()
	return nil
}

// StartPeriodicChecks begins periodic update checks. Idempotent.
func (m *Manager) StartPeriodicChecks() {
	m.checker.Start()
}

// StopPeriodicChecks halts periodic update checks. Idempotent.
func (m *Manager) StopPeriodicChecks() {
	m.checker.Stop()
}

// SetCheckFrequency updates the periodic check interval, restarting a
// running checker.
func (m *Manager) SetCheckFrequency(d time.Duration) {
	m.mu.Lock()
	m.opts.CheckFrequency = d
	m.mu.Unlock()
	m.checker.SetInterval(d)
}

// CheckFrequency returns the periodic check interval.
func (m *Manager) CheckFrequency() time.Duration {
	return m.checker.Interval()
}

// SaveRollbackData persists a rollback record for the current version.
// Storage failures are swallowed and leave the manager with no rollback
// data, per the best-effort policy.
func (m *Manager) SaveRollbackData() {
	rec := &RollbackRecord{
		Timestamp:      time.Now().Unix(),
		CurrentVersion: m.CurrentVersion(),
		UserAgent:      m.opts.UserAgent,
	}

	if m.opts.Store == nil {
		m.setRollback(rec)
		return
	}

	content, err := json.Marshal(rec)
	if err != nil {
		log.WithError(err).Debug("failed to encode rollback record")
		m.setRollback(nil)
		return
	}
	if err := m.opts.Store.Set(rollbackKey, string(content)); err != nil {
		log.WithError(err).Debug("failed to save rollback record")
		m.setRollback(nil)
		return
	}
	m.setRollback(rec)
}

// loadRollbackData reads the persisted rollback record. Missing, unreadable,
// or malformed data all degrade to "no data".
func (m *Manager) loadRollbackData() {
	if m.opts.Store == nil {
		return
	}
	content, err := m.opts.Store.Get(rollbackKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.WithError(err).Debug("failed to load rollback record")
		}
		m.setRollback(nil)
		return
	}
	var rec RollbackRecord
	if err := json.Unmarshal([]byte(content), &rec); err != nil {
		log.WithError(err).Debug("malformed rollback record")
		m.setRollback(nil)
		return
	}
	m.setRollback(&rec)
}

// ClearRollbackData drops the rollback record from memory and storage.
func (m *Manager) ClearRollbackData() {
	m.setRollback(nil)
	if m.opts.Store != nil {
		if err := m.opts.Store.Remove(rollbackKey); err != nil {
			log.WithError(err).Debug("failed to clear rollback record")
		}
	}
}

// RollbackData returns a copy of the held rollback record, or nil.
func (m *Manager) RollbackData() *RollbackRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rollback == nil {
		return nil
	}
	rec := *m.rollback
	return &rec
}

func (m *Manager) setRollback(rec *RollbackRecord) {
	m.mu.Lock()
	m.rollback = rec
	m.mu.Unlock()
}

// RollbackFromStore reads the persisted rollback record directly, without
// constructing a manager. Used by the status command.
func RollbackFromStore(store storage.Store) (*RollbackRecord, error) {
	content, err := store.Get(rollbackKey)
	if err != nil {
		return nil, err
	}
	var rec RollbackRecord
	if err := json.Unmarshal([]byte(content), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close stops periodic checks, clears all event registrations on the hub,
// and resets the state to construction defaults. The persisted rollback
// record is left in storage.
func (m *Manager) Close() {
	m.checker.Stop()
	m.hub.Clear()

	m.mu.Lock()
	m.updateAvailable = false
	m.updatePromptShown = false
	m.promptAttempts = 0
	m.isUpdating = false
	m.metadataVersion = ""
	m.lastUpdateCheck = time.Time{}
	m.rollback = nil
	m.mu.Unlock()
}
