// Package memstore is an in-process persistence backend for prompts,
// versions and auto-saves. It backs STORAGE_DRIVER=memory and tests.
// Nothing survives a restart.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

// Store keeps every record in maps guarded by a single RWMutex.
// Records are copied in and out so callers never share memory with the store.
type Store struct {
	mu        sync.RWMutex
	prompts   map[string]*domain.Prompt
	versions  map[string]*domain.PromptVersion
	autosaves map[string]*domain.AutoSave
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now, used by tests that need deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		prompts:   make(map[string]*domain.Prompt),
		versions:  make(map[string]*domain.PromptVersion),
		autosaves: make(map[string]*domain.AutoSave),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) CreatePrompt(ctx context.Context, req domain.CreatePromptRequest) (*domain.Prompt, error) {
	if req.OwnerID == "" {
		return nil, domain.ErrInvalidInput
	}
	now := s.now()
	p := &domain.Prompt{
		ID:        uuid.New().String(),
		Title:     req.Title,
		Content:   req.Content,
		Category:  cloneStringPtr(req.Category),
		Tags:      cloneTags(req.Tags),
		OwnerID:   req.OwnerID,
		Version:   1,
		IsLatest:  true,
		Metadata:  cloneMeta(req.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.prompts[p.ID] = p
	s.mu.Unlock()

	return clonePrompt(p), nil
}

func (s *Store) GetPrompt(ctx context.Context, id string) (*domain.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prompts[id]
	if !ok {
		return nil, domain.ErrPromptNotFound
	}
	return clonePrompt(p), nil
}

// ListPrompts returns the owner's prompts, most recently updated first.
func (s *Store) ListPrompts(ctx context.Context, ownerID string) ([]domain.Prompt, error) {
	s.mu.RLock()
	out := make([]domain.Prompt, 0, 16)
	for _, p := range s.prompts {
		if p.OwnerID == ownerID {
			out = append(out, *clonePrompt(p))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) UpdatePrompt(ctx context.Context, id string, upd domain.PromptUpdate) (*domain.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prompts[id]
	if !ok {
		return nil, domain.ErrPromptNotFound
	}
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Content != nil {
		p.Content = *upd.Content
	}
	if upd.Category != nil {
		p.Category = cloneStringPtr(upd.Category)
	}
	if upd.Tags != nil {
		p.Tags = cloneTags(upd.Tags)
	}
	if upd.Version != nil {
		p.Version = *upd.Version
	}
	if upd.Metadata != nil {
		if p.Metadata == nil {
			p.Metadata = make(map[string]interface{})
		}
		for k, v := range upd.Metadata {
			p.Metadata[k] = v
		}
	}
	p.UpdatedAt = s.now()

	return clonePrompt(p), nil
}

// DeletePrompt removes a prompt and all of its versions.
func (s *Store) DeletePrompt(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prompts[id]; !ok {
		return false, nil
	}
	delete(s.prompts, id)
	for vid, v := range s.versions {
		if v.PromptID == id {
			delete(s.versions, vid)
		}
	}
	return true, nil
}

func (s *Store) CreateVersion(ctx context.Context, v *domain.PromptVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prompts[v.PromptID]; !ok {
		return domain.ErrPromptNotFound
	}
	for _, existing := range s.versions {
		if existing.PromptID == v.PromptID && existing.VersionNumber == v.VersionNumber {
			return domain.ErrVersionConflict
		}
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}
	s.versions[v.ID] = cloneVersion(v)
	return nil
}

func (s *Store) GetVersion(ctx context.Context, id string) (*domain.PromptVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.versions[id]
	if !ok {
		return nil, domain.ErrVersionNotFound
	}
	return cloneVersion(v), nil
}

// ListVersions returns a prompt's versions, newest (highest number) first.
func (s *Store) ListVersions(ctx context.Context, promptID string) ([]domain.PromptVersion, error) {
	s.mu.RLock()
	out := make([]domain.PromptVersion, 0, 16)
	for _, v := range s.versions {
		if v.PromptID == promptID {
			out = append(out, *cloneVersion(v))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (s *Store) DeleteVersion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.versions[id]; !ok {
		return domain.ErrVersionNotFound
	}
	delete(s.versions, id)
	return nil
}

// DeleteVersionsBeyond keeps the newest keep versions of a prompt and deletes the rest.
func (s *Store) DeleteVersionsBeyond(ctx context.Context, promptID string, keep int) (int, error) {
	versions, err := s.ListVersions(ctx, promptID)
	if err != nil {
		return 0, err
	}
	if len(versions) <= keep {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for _, v := range versions[keep:] {
		if _, ok := s.versions[v.ID]; ok {
			delete(s.versions, v.ID)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) CreateAutoSave(ctx context.Context, a *domain.AutoSave) error {
	if a.OwnerID == "" {
		return domain.ErrInvalidInput
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}

	s.mu.Lock()
	s.autosaves[a.ID] = cloneAutoSave(a)
	s.mu.Unlock()
	return nil
}

func (s *Store) GetAutoSave(ctx context.Context, id string) (*domain.AutoSave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.autosaves[id]
	if !ok {
		return nil, domain.ErrAutoSaveNotFound
	}
	return cloneAutoSave(a), nil
}

// ListAutoSaves returns the owner's drafts, newest first. Expired drafts are
// still returned until purged, matching a backend without native TTLs.
func (s *Store) ListAutoSaves(ctx context.Context, ownerID string) ([]domain.AutoSave, error) {
	s.mu.RLock()
	out := make([]domain.AutoSave, 0, 8)
	for _, a := range s.autosaves {
		if a.OwnerID == ownerID {
			out = append(out, *cloneAutoSave(a))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteAutoSave(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.autosaves[id]; !ok {
		return domain.ErrAutoSaveNotFound
	}
	delete(s.autosaves, id)
	return nil
}

// ListOwners returns every owner with at least one stored draft.
func (s *Store) ListOwners(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]string, 0, 4)
	for _, a := range s.autosaves {
		if _, ok := seen[a.OwnerID]; ok {
			continue
		}
		seen[a.OwnerID] = struct{}{}
		out = append(out, a.OwnerID)
	}
	sort.Strings(out)
	return out, nil
}
