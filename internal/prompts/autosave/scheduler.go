// Package autosave persists in-progress drafts in the background.
//
// Each started document gets a session with its own ticker goroutine. A tick
// saves the latest draft when it is dirty. A session never runs two saves at
// once: ticks are serialized by the goroutine and ForceSave is refused
// while a save is in flight. Save failures are recorded in the session state
// and logged; they never stop the ticker.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultTTL      = 24 * time.Hour
)

// Store receives auto-save records.
type Store interface {
	CreateAutoSave(ctx context.Context, a *domain.AutoSave) error
}

type Config struct {
	Enabled  bool
	Interval time.Duration
	// TTL sets each record's expiry relative to its save time.
	TTL time.Duration
}

type Scheduler struct {
	store  Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewScheduler(store Store, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    store,
		cfg:      cfg,
		logger:   logger.With("component", "autosave"),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Enabled reports whether Start does anything.
func (s *Scheduler) Enabled() bool {
	return s.cfg.Enabled
}

// Start begins auto-saving docID with a clean state. It returns false when
// auto-save is disabled or the document already has a session, which is
// left untouched.
func (s *Scheduler) Start(docID, ownerID string, initial domain.Draft) bool {
	if !s.cfg.Enabled {
		return false
	}

	s.mu.Lock()
	if _, ok := s.sessions[docID]; ok {
		s.mu.Unlock()
		return false
	}
	sess := newSession(docID, ownerID, initial)
	s.sessions[docID] = sess
	s.mu.Unlock()

	go s.run(sess)

	s.logger.Debug("auto-save started", "document_id", docID, "owner_id", ownerID, "interval", s.cfg.Interval)
	return true
}

// MarkDirty stores draft as the content for the next save and flags the
// document dirty. It does not save. Returns false for unknown documents.
func (s *Scheduler) MarkDirty(docID string, draft domain.Draft) bool {
	sess := s.session(docID)
	if sess == nil {
		return false
	}

	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return false
	}
	sess.draft = draft
	sess.generation++
	sess.state.IsDirty = true
	state, listeners := sess.snapshotLocked()
	sess.mu.Unlock()

	sess.notify(state, listeners)
	return true
}

// ForceSave saves the current draft now, even if it is clean, and reports
// whether the save succeeded. It returns false without saving when another
// save for the document is still in flight. A non-empty ownerID replaces the
// session owner used for attribution.
func (s *Scheduler) ForceSave(ctx context.Context, docID, ownerID string) bool {
	sess := s.session(docID)
	if sess == nil {
		return false
	}
	if ownerID != "" {
		sess.mu.Lock()
		sess.ownerID = ownerID
		sess.mu.Unlock()
	}
	return s.save(ctx, sess, true)
}

// Stop cancels future ticks for docID and forgets its state and listeners.
// A save already in flight runs to completion. Stopping an unknown or
// already stopped document is a no-op.
func (s *Scheduler) Stop(docID string) {
	s.mu.Lock()
	sess, ok := s.sessions[docID]
	delete(s.sessions, docID)
	s.mu.Unlock()

	if ok {
		sess.close()
		s.logger.Debug("auto-save stopped", "document_id", docID)
	}
}

// Subscribe registers l for state changes of docID. The returned func
// removes it. Subscribing to an unknown document returns a no-op func.
func (s *Scheduler) Subscribe(docID string, l Listener) func() {
	sess := s.session(docID)
	if sess == nil {
		return func() {}
	}
	return sess.subscribe(l)
}

// State returns a copy of the document's current state.
func (s *Scheduler) State(docID string) (domain.AutoSaveState, bool) {
	sess := s.session(docID)
	if sess == nil {
		return domain.AutoSaveState{}, false
	}
	sess.mu.Lock()
	state, _ := sess.snapshotLocked()
	sess.mu.Unlock()
	return state, true
}

// Close stops every session and waits for in-flight tick saves. Each dirty
// draft then gets one last save before its session is discarded. ctx bounds
// the whole shutdown; drafts that could not be saved are reported in the
// returned error.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		sessions = append(sessions, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.stopTicks()
	}
	for _, sess := range sessions {
		select {
		case <-sess.done:
		case <-ctx.Done():
			closeAll(sessions)
			return ctx.Err()
		}
	}

	var errs []error
	for i, sess := range sessions {
		if err := ctx.Err(); err != nil {
			closeAll(sessions[i:])
			return errors.Join(append(errs, err)...)
		}
		if err := s.flush(ctx, sess); err != nil {
			errs = append(errs, err)
		}
		sess.close()
	}
	return errors.Join(errs...)
}

// flush saves a dirty session once more. A clean session is left alone.
func (s *Scheduler) flush(ctx context.Context, sess *session) error {
	if s.save(ctx, sess, false) {
		return nil
	}
	sess.mu.Lock()
	dirty, msg := sess.state.IsDirty, sess.state.Error
	sess.mu.Unlock()
	if !dirty {
		return nil
	}
	return fmt.Errorf("final auto-save of %s failed: %s", sess.docID, msg)
}

func closeAll(sessions []*session) {
	for _, sess := range sessions {
		sess.close()
	}
}

func (s *Scheduler) session(docID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[docID]
}

func (s *Scheduler) run(sess *session) {
	defer close(sess.done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.stop:
			return
		case <-ticker.C:
			s.save(context.Background(), sess, false)
		}
	}
}

// save writes one auto-save record. Without force a clean document is skipped.
func (s *Scheduler) save(ctx context.Context, sess *session, force bool) bool {
	sess.mu.Lock()
	if sess.closed || sess.state.IsSaving || (!force && !sess.state.IsDirty) {
		sess.mu.Unlock()
		return false
	}
	sess.state.IsSaving = true
	generation := sess.generation
	now := s.now()
	rec := sess.recordLocked(now, s.cfg.TTL)
	state, listeners := sess.snapshotLocked()
	sess.mu.Unlock()

	sess.notify(state, listeners)

	err := s.persist(ctx, rec)

	sess.mu.Lock()
	sess.state.IsSaving = false
	if err != nil {
		// A forced save of a clean draft still leaves that content unsaved.
		sess.state.IsDirty = true
		sess.state.Error = err.Error()
	} else {
		sess.revision++
		saved := now
		sess.state.LastSaved = &saved
		sess.state.Error = ""
		sess.state.IsDirty = sess.generation != generation
	}
	state, listeners = sess.snapshotLocked()
	sess.mu.Unlock()

	if err != nil {
		s.logger.Warn("auto-save failed", "document_id", sess.docID, "owner_id", rec.OwnerID, "error", err)
	} else {
		s.logger.Debug("auto-save stored", "document_id", sess.docID, "autosave_id", rec.ID, "revision", rec.Metadata[domain.MetaRevision])
	}

	sess.notify(state, listeners)
	return err == nil
}

// persist calls the store and turns a panic into an error so a faulty
// backend cannot take down the ticker goroutine.
func (s *Scheduler) persist(ctx context.Context, rec *domain.AutoSave) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("auto-save store panicked: %v", r)
		}
	}()
	return s.store.CreateAutoSave(ctx, rec)
}
