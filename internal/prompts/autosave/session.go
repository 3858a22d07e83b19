package autosave

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

// Listener observes AutoSaveState changes. It runs synchronously on the
// goroutine that changed the state and must not call back into the Scheduler
// for the same document.
type Listener func(docID string, state domain.AutoSaveState)

// session owns everything the scheduler knows about one document.
type session struct {
	docID string

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	closed  bool
	ownerID string
	draft   domain.Draft
	// generation increments on every markDirty so a save can tell whether
	// edits arrived while it was in flight.
	generation uint64
	revision   int
	state      domain.AutoSaveState

	listeners    map[uint64]Listener
	nextListener uint64
}

func newSession(docID, ownerID string, draft domain.Draft) *session {
	return &session{
		docID:     docID,
		ownerID:   ownerID,
		draft:     draft,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		listeners: make(map[uint64]Listener),
	}
}

// stopTicks ends the ticker goroutine without discarding state.
func (s *session) stopTicks() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// close stops future ticks and drops listeners. Safe to call more than once.
func (s *session) close() {
	s.stopTicks()
	s.mu.Lock()
	s.closed = true
	s.listeners = nil
	s.mu.Unlock()
}

func (s *session) subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.listeners != nil {
			delete(s.listeners, id)
		}
	}
}

// snapshotLocked copies state and listeners for notification outside the lock.
func (s *session) snapshotLocked() (domain.AutoSaveState, []Listener) {
	state := s.state
	if state.LastSaved != nil {
		t := *state.LastSaved
		state.LastSaved = &t
	}

	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return state, out
}

func (s *session) notify(state domain.AutoSaveState, listeners []Listener) {
	for _, l := range listeners {
		l(s.docID, state)
	}
}

// recordLocked builds the AutoSave for the current draft.
func (s *session) recordLocked(now time.Time, ttl time.Duration) *domain.AutoSave {
	d := s.draft
	var promptID, category *string
	if d.PromptID != nil {
		v := *d.PromptID
		promptID = &v
	}
	if d.Category != nil {
		v := *d.Category
		category = &v
	}
	return &domain.AutoSave{
		ID:       uuid.New().String(),
		PromptID: promptID,
		OwnerID:  s.ownerID,
		Title:    d.Title,
		Content:  d.Content.Content,
		Category: category,
		Tags:     append([]string(nil), d.Tags...),
		Metadata: map[string]interface{}{
			domain.MetaRevision:   s.revision + 1,
			domain.MetaDocumentID: s.docID,
		},
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}
