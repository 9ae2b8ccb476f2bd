package update

import (
	"errors"
	"testing"
	"time"

	"github.com/pwakit/pwakit/internal/events"
	"github.com/pwakit/pwakit/internal/storage"
)

// failStore is a Store whose operations can be made to fail.
type failStore struct {
	data    map[string]string
	failGet bool
	failSet bool
}

func newFailStore() *failStore {
	return &failStore{data: make(map[string]string)}
}

func (s *failStore) Get(key string) (string, error) {
	if s.failGet {
		return "", errors.New("store unavailable")
	}
	v, ok := s.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (s *failStore) Set(key, value string) error {
	if s.failSet {
		return errors.New("store unavailable")
	}
	s.data[key] = value
	return nil
}

func (s *failStore) Remove(key string) error {
	delete(s.data, key)
	return nil
}

// fakeWorkerSource is a scripted WorkerSource.
type fakeWorkerSource struct {
	waiting     *WorkerInfo
	checkErr    error
	skipCalls   int
	clearCalls  int
	clearCaches error
}

func (f *fakeWorkerSource) CheckForUpdates() (*WorkerInfo, error) {
	return f.waiting, f.checkErr
}

func (f *fakeWorkerSource) WorkerInfo() (*WorkerInfo, error) {
	return f.waiting, nil
}

func (f *fakeWorkerSource) SkipWaiting() error {
	f.skipCalls++
	return nil
}

func (f *fakeWorkerSource) ClearCaches() error {
	f.clearCalls++
	return f.clearCaches
}

// staticVersion is a fixed VersionSource.
type staticVersion string

func (s staticVersion) CurrentVersion() string { return string(s) }

func newTestManager(opts Options) *Manager {
	return NewManager(events.NewHub(), nil, opts)
}

func TestShowUpdatePromptWhileUnavailable(t *testing.T) {
	m := newTestManager(Options{})
	emitted := 0
	m.Hub().On(EventPrompt, func(any) { emitted++ })

	if m.ShowUpdatePrompt() {
		t.Error("ShowUpdatePrompt() = true with no update available")
	}

	status := m.Status()
	if status.UpdatePromptShown || status.PromptAttempts != 0 {
		t.Errorf("state mutated: %+v", status)
	}
	if emitted != 0 {
		t.Errorf("emitted %d prompt events, want 0", emitted)
	}
}

func TestShowUpdatePromptCountsAttempts(t *testing.T) {
	m := newTestManager(Options{Title: "New version"})
	var gotEvents []PromptEvent
	m.Hub().On(EventPrompt, func(p any) { gotEvents = append(gotEvents, p.(PromptEvent)) })

	// WorkerWaiting surfaces the first prompt itself.
	m.WorkerWaiting(&WorkerInfo{ScriptURL: "https://x/sw.js?v=1.2.3"})

	for i := 0; i < 2; i++ {
		if !m.ShowUpdatePrompt() {
			t.Fatal("ShowUpdatePrompt() = false while update available")
		}
	}

	status := m.Status()
	if status.PromptAttempts != 3 {
		t.Errorf("PromptAttempts = %d, want 3", status.PromptAttempts)
	}
	if !status.UpdatePromptShown {
		t.Error("UpdatePromptShown = false")
	}
	if len(gotEvents) != 3 {
		t.Fatalf("emitted %d prompt events, want 3", len(gotEvents))
	}
	last := gotEvents[2]
	if last.Title != "New version" || last.Version != "1.2.3" || last.Attempt != 3 {
		t.Errorf("last event = %+v", last)
	}
}

func TestDismissUpdatePrompt(t *testing.T) {
	m := newTestManager(Options{})
	dismissed := 0
	m.Hub().On(EventPromptDismissed, func(any) { dismissed++ })

	m.WorkerWaiting(&WorkerInfo{ScriptURL: "/sw.js?v=2.0.0"})
	m.DismissUpdatePrompt()

	status := m.Status()
	if status.UpdatePromptShown {
		t.Error("UpdatePromptShown = true after dismiss")
	}
	if !status.UpdateAvailable {
		t.Error("UpdateAvailable cleared by dismiss")
	}
	if dismissed != 1 {
		t.Errorf("dismissed events = %d, want 1", dismissed)
	}
}

func TestPostponeUpdate(t *testing.T) {
	m := newTestManager(Options{})
	var got PostponedEvent
	m.Hub().On(EventPostponed, func(p any) { got = p.(PostponedEvent) })

	m.WorkerWaiting(&WorkerInfo{ScriptURL: "/sw.js?v=2.0.0"})
	m.PostponeUpdate(30 * time.Minute)

	if m.Status().UpdatePromptShown {
		t.Error("UpdatePromptShown = true after postpone")
	}
	if got.Duration != 30*time.Minute {
		t.Errorf("postponed duration = %v, want 30m", got.Duration)
	}
}

func TestShowUpdateBanner(t *testing.T) {
	m := newTestManager(Options{Title: "Update", BannerMessage: "Reload to update"})
	var got BannerEvent
	m.Hub().On(EventBanner, func(p any) { got = p.(BannerEvent) })

	m.WorkerWaiting(&WorkerInfo{ScriptURL: "/sw.js?v=3.0.0"})
	before := m.Status()
	m.ShowUpdateBanner()

	if !got.Persistent {
		t.Error("banner not persistent")
	}
	if got.Version != "3.0.0" || got.Title != "Update" || got.Message != "Reload to update" {
		t.Errorf("banner event = %+v", got)
	}
	after := m.Status()
	if after.UpdatePromptShown != before.UpdatePromptShown || after.PromptAttempts != before.PromptAttempts {
		t.Error("banner mutated prompt state")
	}
}

func TestWorkerWaitingUsesBanner(t *testing.T) {
	m := newTestManager(Options{UseBanner: true})
	banners, prompts := 0, 0
	m.Hub().On(EventBanner, func(any) { banners++ })
	m.Hub().On(EventPrompt, func(any) { prompts++ })

	m.WorkerWaiting(&WorkerInfo{ScriptURL: "/sw.js?v=1.0.1"})

	if banners != 1 || prompts != 0 {
		t.Errorf("banners = %d, prompts = %d; want 1, 0", banners, prompts)
	}
	if m.Status().PromptAttempts != 0 {
		t.Error("banner counted as prompt attempt")
	}
}

func TestCheckForUpdates(t *testing.T) {
	source := &fakeWorkerSource{waiting: &WorkerInfo{ScriptURL: "/sw.js?v=4.0.0", State: "waiting"}}
	m := NewManager(events.NewHub(), source, Options{})

	m.CheckForUpdates()

	status := m.Status()
	if !status.UpdateAvailable {
		t.Error("UpdateAvailable = false after check found a waiting worker")
	}
	if status.Version != "4.0.0" {
		t.Errorf("Version = %q, want 4.0.0", status.Version)
	}
	if status.LastUpdateCheck.IsZero() {
		t.Error("LastUpdateCheck not recorded")
	}
}

func TestCheckForUpdatesSourceError(t *testing.T) {
	source := &fakeWorkerSource{checkErr: errors.New("boom")}
	m := NewManager(events.NewHub(), source, Options{})

	m.CheckForUpdates() // must not panic or mark an update

	status := m.Status()
	if status.UpdateAvailable {
		t.Error("UpdateAvailable = true after failed check")
	}
	if status.LastUpdateCheck.IsZero() {
		t.Error("LastUpdateCheck not recorded on failure")
	}
}

func TestRollbackRoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	m := NewManager(events.NewHub(), nil, Options{
		Store:     store,
		Versions:  staticVersion("1.4.0"),
		UserAgent: "pwakit/test",
	})

	m.SaveRollbackData()
	if !m.Status().HasRollbackData {
		t.Fatal("HasRollbackData = false after save")
	}

	// A fresh manager over the same store loads the record.
	loaded := NewManager(events.NewHub(), nil, Options{Store: store})
	rec := loaded.RollbackData()
	if rec == nil {
		t.Fatal("RollbackData() = nil after reload")
	}
	if rec.CurrentVersion != "1.4.0" || rec.UserAgent != "pwakit/test" {
		t.Errorf("loaded record = %+v", rec)
	}
	if rec.Timestamp == 0 {
		t.Error("timestamp not recorded")
	}
}

func TestLoadRollbackStoreFailure(t *testing.T) {
	store := newFailStore()
	store.failGet = true

	m := NewManager(events.NewHub(), nil, Options{Store: store})

	if m.RollbackData() != nil {
		t.Error("RollbackData() != nil when store read fails")
	}
	if m.Status().HasRollbackData {
		t.Error("HasRollbackData = true when store read fails")
	}
}

func TestLoadRollbackMalformedData(t *testing.T) {
	store := storage.NewMemoryStore()
	_ = store.Set("pwakit.update.rollback", "{not json")

	m := NewManager(events.NewHub(), nil, Options{Store: store})

	if m.RollbackData() != nil {
		t.Error("RollbackData() != nil for malformed record")
	}
}

func TestSaveRollbackStoreFailure(t *testing.T) {
	store := newFailStore()
	store.failSet = true

	m := NewManager(events.NewHub(), nil, Options{Store: store})
	m.SaveRollbackData()

	if m.Status().HasRollbackData {
		t.Error("HasRollbackData = true when store write fails")
	}
}

func TestClearRollbackData(t *testing.T) {
	store := storage.NewMemoryStore()
	m := NewManager(events.NewHub(), nil, Options{Store: store})

	m.SaveRollbackData()
	m.ClearRollbackData()

	if m.Status().HasRollbackData {
		t.Error("HasRollbackData = true after clear")
	}
	if _, err := store.Get("pwakit.update.rollback"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("record still in store after clear")
	}
}

func TestApplyUpdate(t *testing.T) {
	source := &fakeWorkerSource{}
	store := storage.NewMemoryStore()
	m := NewManager(events.NewHub(), source, Options{Store: store, Versions: staticVersion("1.0.0")})

	if err := m.ApplyUpdate(); err == nil {
		t.Error("ApplyUpdate() = nil with no update available")
	}

	m.WorkerWaiting(&WorkerInfo{ScriptURL: "/sw.js?v=1.1.0"})
	if err := m.ApplyUpdate(); err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}

	if source.skipCalls != 1 {
		t.Errorf("SkipWaiting calls = %d, want 1", source.skipCalls)
	}
	status := m.Status()
	if status.UpdateAvailable || status.IsUpdating {
		t.Errorf("state after apply = %+v", status)
	}
	if !status.HasRollbackData {
		t.Error("no rollback record saved before applying")
	}
}

func TestRollback(t *testing.T) {
	source := &fakeWorkerSource{}
	store := storage.NewMemoryStore()
	m := NewManager(events.NewHub(), source, Options{Store: store})

	if err := m.Rollback(); !errors.Is(err, ErrNoRollbackData) {
		t.Errorf("Rollback() error = %v, want ErrNoRollbackData", err)
	}

	m.SaveRollbackData()
	if err := m.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if source.clearCalls != 1 {
		t.Errorf("ClearCaches calls = %d, want 1", source.clearCalls)
	}
	if m.Status().HasRollbackData {
		t.Error("rollback record kept after rollback")
	}
}

func TestCurrentVersionFallback(t *testing.T) {
	m := newTestManager(Options{})
	if got := m.CurrentVersion(); got != UnknownVersion {
		t.Errorf("CurrentVersion() = %q, want %q", got, UnknownVersion)
	}

	m = newTestManager(Options{Versions: staticVersion("")})
	if got := m.CurrentVersion(); got != UnknownVersion {
		t.Errorf("CurrentVersion() with empty source = %q, want %q", got, UnknownVersion)
	}

	m = newTestManager(Options{Versions: staticVersion("2.3.4")})
	if got := m.CurrentVersion(); got != "2.3.4" {
		t.Errorf("CurrentVersion() = %q, want 2.3.4", got)
	}
}

func TestSetCheckFrequency(t *testing.T) {
	m := newTestManager(Options{CheckFrequency: time.Hour})
	m.StartPeriodicChecks()
	defer m.StopPeriodicChecks()

	m.SetCheckFrequency(10 * time.Minute)

	if got := m.CheckFrequency(); got != 10*time.Minute {
		t.Errorf("CheckFrequency() = %v, want 10m", got)
	}
}

func TestCloseResetsState(t *testing.T) {
	store := storage.NewMemoryStore()
	m := NewManager(events.NewHub(), nil, Options{Store: store})

	m.Hub().On(EventPrompt, func(any) {})
	m.WorkerWaiting(&WorkerInfo{ScriptURL: "/sw.js?v=9.9.9"})
	m.SaveRollbackData()
	m.StartPeriodicChecks()

	m.Close()

	status := m.Status()
	want := Status{}
	if status != want {
		t.Errorf("Status() after Close = %+v, want zero", status)
	}
	if m.Hub().Len(EventPrompt) != 0 {
		t.Error("listeners remain after Close")
	}

	// The persisted record survives; only in-memory state resets.
	if _, err := store.Get("pwakit.update.rollback"); err != nil {
		t.Error("persisted rollback record removed by Close")
	}
}
