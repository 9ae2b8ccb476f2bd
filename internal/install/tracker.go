// Package install tracks install-prompt analytics: how often the install UI
// was surfaced and what the user decided. The browser's deferred-prompt
// object stays on the client; this side only receives the outcomes.
package install

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/pwakit/pwakit/internal/events"
	"github.com/pwakit/pwakit/internal/storage"
)

// statsKey is the fixed storage key for persisted analytics.
const statsKey = "pwakit.install.stats"

// Event names emitted on the hub.
const (
	EventPrompt    = "installprompt"
	EventAccepted  = "installaccepted"
	EventDismissed = "installdismissed"
)

// Outcome is the user's last decision on the install prompt.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeAccepted  Outcome = "accepted"
	OutcomeDismissed Outcome = "dismissed"
)

// Stats is the persisted analytics record.
type Stats struct {
	SessionID       string    `json:"sessionId"`
	PromptAvailable bool      `json:"promptAvailable"`
	PromptsShown    int       `json:"promptsShown"`
	Accepted        int       `json:"accepted"`
	Dismissed       int       `json:"dismissed"`
	LastOutcome     Outcome   `json:"lastOutcome,omitempty"`
	LastPromptAt    time.Time `json:"lastPromptAt"`
}

// PromptEvent is the payload for EventPrompt.
type PromptEvent struct {
	SessionID string `json:"sessionId"`
	Attempt   int    `json:"attempt"`
}

// Tracker accumulates install-prompt analytics and emits events for UI
// collaborators. Counters persist across sessions; the session id and the
// deferred-prompt flag do not.
type Tracker struct {
	hub   *events.Hub
	store storage.Store

	mu    sync.Mutex
	stats Stats
}

// NewTracker creates a tracker with a fresh session id, loading persisted
// counters best-effort.
func NewTracker(hub *events.Hub, store storage.Store) *Tracker {
	t := &Tracker{hub: hub, store: store}
	t.load()
	t.stats.SessionID = uuid.NewString()
	t.stats.PromptAvailable = false
	return t
}

// Hub returns the hub the tracker emits on.
func (t *Tracker) Hub() *events.Hub {
	return t.hub
}

// PromptAvailable records that the browser supplied a deferred install
// prompt this session.
func (t *Tracker) PromptAvailable() {
	t.mu.Lock()
	t.stats.PromptAvailable = true
	t.mu.Unlock()
}

// RecordPromptShown counts one surfacing of the install UI and emits
// EventPrompt. It returns false without mutation when no deferred prompt is
// available.
func (t *Tracker) RecordPromptShown() bool {
	t.mu.Lock()
	if !t.stats.PromptAvailable {
		t.mu.Unlock()
		return false
	}
	t.stats.PromptsShown++
	t.stats.LastPromptAt = time.Now()
	ev := PromptEvent{SessionID: t.stats.SessionID, Attempt: t.stats.PromptsShown}
	t.mu.Unlock()

	t.save()
	t.hub.Emit(EventPrompt, ev)
	return true
}

// RecordOutcome records the user's decision on a surfaced prompt and emits
// the matching event. An accepted prompt consumes the deferred prompt.
func (t *Tracker) RecordOutcome(accepted bool) {
	t.mu.Lock()
	if accepted {
		t.stats.Accepted++
		t.stats.LastOutcome = OutcomeAccepted
		t.stats.PromptAvailable = false
	} else {
		t.stats.Dismissed++
		t.stats.LastOutcome = OutcomeDismissed
	}
	event := EventDismissed
	if accepted {
		event = EventAccepted
	}
	ev := PromptEvent{SessionID: t.stats.SessionID, Attempt: t.stats.PromptsShown}
	t.mu.Unlock()

	t.save()
	t.hub.Emit(event, ev)
}

// Stats returns a snapshot of the analytics record.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Reset clears counters and drops the persisted record. The session id is
// kept.
func (t *Tracker) Reset() {
	t.mu.Lock()
	session := t.stats.SessionID
	t.stats = Stats{SessionID: session}
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.Remove(statsKey); err != nil {
			log.WithError(err).Debug("failed to clear install stats")
		}
	}
}

// load restores persisted counters. Missing or malformed data degrades to a
// zero record.
func (t *Tracker) load() {
	if t.store == nil {
		return
	}
	content, err := t.store.Get(statsKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.WithError(err).Debug("failed to load install stats")
		}
		return
	}
	var stats Stats
	if err := json.Unmarshal([]byte(content), &stats); err != nil {
		log.WithError(err).Debug("malformed install stats")
		return
	}
	t.stats = stats
}

// save persists the analytics record best-effort.
func (t *Tracker) save() {
	if t.store == nil {
		return
	}
	t.mu.Lock()
	content, err := json.Marshal(t.stats)
	t.mu.Unlock()
	if err != nil {
		log.WithError(err).Debug("failed to encode install stats")
		return
	}
	if err := t.store.Set(statsKey, string(content)); err != nil {
		log.WithError(err).Debug("failed to save install stats")
	}
}

// StatsFromStore reads the persisted analytics record directly, without
// constructing a tracker. Used by the status command.
func StatsFromStore(store storage.Store) (*Stats, error) {
	content, err := store.Get(statsKey)
	if err != nil {
		return nil, err
	}
	var stats Stats
	if err := json.Unmarshal([]byte(content), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
