// Package versioning decides when an edit becomes a durable prompt version
// and navigates version history: revert, branch, compare and stats.
//
// Version creation on one prompt is serialized by an in-process lock. Two
// processes writing the same prompt can still race on the version number;
// the storage layer's unique (prompt_id, version_number) index turns that
// race into domain.ErrVersionConflict instead of a silent duplicate.
package versioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/changes"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/diff"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

// DefaultMaxVersions is how many versions a prompt keeps when Config leaves it unset.
const DefaultMaxVersions = 50

// PromptStore is the prompt half of the persistence backend.
type PromptStore interface {
	GetPrompt(ctx context.Context, id string) (*domain.Prompt, error)
	CreatePrompt(ctx context.Context, req domain.CreatePromptRequest) (*domain.Prompt, error)
	UpdatePrompt(ctx context.Context, id string, upd domain.PromptUpdate) (*domain.Prompt, error)
}

// VersionStore is the version-record half of the persistence backend.
type VersionStore interface {
	CreateVersion(ctx context.Context, v *domain.PromptVersion) error
	GetVersion(ctx context.Context, id string) (*domain.PromptVersion, error)
	ListVersions(ctx context.Context, promptID string) ([]domain.PromptVersion, error)
	DeleteVersion(ctx context.Context, id string) error
	DeleteVersionsBeyond(ctx context.Context, promptID string, keep int) (int, error)
}

type Config struct {
	Policy      changes.Policy
	MaxVersions int
}

// CreateOptions tunes a single CreateVersion call.
type CreateOptions struct {
	Notes *string
	// Force skips the change policy and always writes a version.
	Force bool
	// ParentVersionID defaults to the prompt's newest version.
	ParentVersionID *string
}

// RevertResult is the prompt after a revert and, when one was written, the new version.
type RevertResult struct {
	Prompt  *domain.Prompt        `json:"prompt"`
	Version *domain.PromptVersion `json:"version,omitempty"`
}

// FieldDiff describes how one field differs between two versions.
type FieldDiff struct {
	Changed bool   `json:"changed"`
	Diff    string `json:"diff"`
	Unified string `json:"unified,omitempty"`
}

// Comparison is the result of comparing two versions.
type Comparison struct {
	From    *domain.PromptVersion  `json:"from"`
	To      *domain.PromptVersion  `json:"to"`
	Changes []domain.VersionChange `json:"changes"`
	Title   FieldDiff              `json:"title"`
	Content FieldDiff              `json:"content"`
}

type Manager struct {
	prompts  PromptStore
	versions VersionStore
	cfg      Config
	logger   *slog.Logger
	locks    *keyedMutex
	now      func() time.Time
}

func NewManager(prompts PromptStore, versions VersionStore, cfg Config, logger *slog.Logger) *Manager {
	if cfg.MaxVersions <= 0 {
		cfg.MaxVersions = DefaultMaxVersions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		prompts:  prompts,
		versions: versions,
		cfg:      cfg,
		logger:   logger.With("component", "versioning"),
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// CreateVersion snapshots data as the prompt's next version and applies it to
// the prompt. Unless opts.Force is set, an edit that the change policy does
// not consider significant returns (nil, nil) and leaves the prompt alone.
func (m *Manager) CreateVersion(ctx context.Context, promptID string, data domain.Content, userID string, opts CreateOptions) (*domain.PromptVersion, error) {
	unlock := m.locks.Lock(promptID)
	defer unlock()

	return m.createLocked(ctx, promptID, data, userID, opts)
}

func (m *Manager) createLocked(ctx context.Context, promptID string, data domain.Content, userID string, opts CreateOptions) (*domain.PromptVersion, error) {
	current, err := m.prompts.GetPrompt(ctx, promptID)
	if err != nil {
		return nil, fmt.Errorf("load prompt %s: %w", promptID, err)
	}

	old := current.ContentOf()
	if !opts.Force && !changes.ShouldCreateVersion(m.cfg.Policy, old, data) {
		return nil, nil
	}

	parentID := opts.ParentVersionID
	if parentID == nil {
		latest, err := m.latestVersion(ctx, promptID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			parentID = &latest.ID
		}
	}

	number := current.Version + 1
	v := &domain.PromptVersion{
		ID:              uuid.New().String(),
		PromptID:        promptID,
		VersionNumber:   number,
		Title:           data.Title,
		Content:         data.Content,
		Changes:         changes.Calculate(old, data),
		CreatedBy:       userID,
		Notes:           opts.Notes,
		ParentVersionID: parentID,
		CreatedAt:       m.now(),
	}
	if err := m.versions.CreateVersion(ctx, v); err != nil {
		return nil, fmt.Errorf("create version %d of prompt %s: %w", number, promptID, err)
	}

	upd := domain.PromptUpdate{
		Title:    &data.Title,
		Content:  &data.Content,
		Category: data.Category,
		Tags:     data.Tags,
		Version:  &number,
	}
	if _, err := m.prompts.UpdatePrompt(ctx, promptID, upd); err != nil {
		err = fmt.Errorf("update prompt %s to version %d: %w", promptID, number, err)
		if derr := m.versions.DeleteVersion(ctx, v.ID); derr != nil && !errors.Is(derr, domain.ErrVersionNotFound) {
			err = errors.Join(err, fmt.Errorf("roll back version %s: %w", v.ID, derr))
		}
		return nil, err
	}

	if deleted, err := m.versions.DeleteVersionsBeyond(ctx, promptID, m.cfg.MaxVersions); err != nil {
		m.logger.Warn("version retention failed", "prompt_id", promptID, "error", err)
	} else if deleted > 0 {
		m.logger.Debug("pruned old versions", "prompt_id", promptID, "deleted", deleted)
	}

	m.logger.Info("version created", "prompt_id", promptID, "version", number, "user_id", userID, "forced", opts.Force)
	return v, nil
}

// History returns every stored version of a prompt, newest first.
func (m *Manager) History(ctx context.Context, promptID string) ([]domain.PromptVersion, error) {
	versions, err := m.versions.ListVersions(ctx, promptID)
	if err != nil {
		return nil, fmt.Errorf("list versions of prompt %s: %w", promptID, err)
	}
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].VersionNumber > versions[j].VersionNumber
	})
	return versions, nil
}

// RevertToVersion restores the prompt's title and content from versionID.
// With createNewVersion the revert is recorded as a new version and history
// is untouched; without it the live prompt is overwritten and no version is written.
func (m *Manager) RevertToVersion(ctx context.Context, promptID, versionID, userID string, createNewVersion bool) (*RevertResult, error) {
	target, err := m.versions.GetVersion(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("load version %s: %w", versionID, err)
	}
	if target.PromptID != promptID {
		return nil, fmt.Errorf("version %s: %w", versionID, domain.ErrVersionMismatch)
	}

	unlock := m.locks.Lock(promptID)
	defer unlock()

	if !createNewVersion {
		p, err := m.prompts.UpdatePrompt(ctx, promptID, domain.PromptUpdate{
			Title:   &target.Title,
			Content: &target.Content,
		})
		if err != nil {
			return nil, fmt.Errorf("revert prompt %s: %w", promptID, err)
		}
		return &RevertResult{Prompt: p}, nil
	}

	notes := fmt.Sprintf("Reverted to version %d", target.VersionNumber)
	v, err := m.createLocked(ctx, promptID, domain.Content{Title: target.Title, Content: target.Content}, userID, CreateOptions{
		Notes:           &notes,
		Force:           true,
		ParentVersionID: &target.ID,
	})
	if err != nil {
		return nil, err
	}

	p, err := m.prompts.GetPrompt(ctx, promptID)
	if err != nil {
		return nil, fmt.Errorf("reload prompt %s: %w", promptID, err)
	}
	return &RevertResult{Prompt: p, Version: v}, nil
}

// Compare lists the changes from fromID to toID and renders title and content diffs.
func (m *Manager) Compare(ctx context.Context, fromID, toID string) (*Comparison, error) {
	from, err := m.versions.GetVersion(ctx, fromID)
	if err != nil {
		return nil, fmt.Errorf("load version %s: %w", fromID, err)
	}
	to, err := m.versions.GetVersion(ctx, toID)
	if err != nil {
		return nil, fmt.Errorf("load version %s: %w", toID, err)
	}

	fromName := fmt.Sprintf("v%d", from.VersionNumber)
	toName := fmt.Sprintf("v%d", to.VersionNumber)
	return &Comparison{
		From: from,
		To:   to,
		Changes: changes.Calculate(
			domain.Content{Title: from.Title, Content: from.Content},
			domain.Content{Title: to.Title, Content: to.Content},
		),
		Title: FieldDiff{
			Changed: from.Title != to.Title,
			Diff:    diff.Lines(from.Title, to.Title),
		},
		Content: FieldDiff{
			Changed: from.Content != to.Content,
			Diff:    diff.Lines(from.Content, to.Content),
			Unified: diff.Unified(fromName, toName, from.Content, to.Content, 0),
		},
	}, nil
}

// BranchFromVersion creates a new prompt owned by userID seeded from
// versionID. The source prompt and its history are not modified.
func (m *Manager) BranchFromVersion(ctx context.Context, versionID, userID string, newTitle *string) (*domain.Prompt, error) {
	v, err := m.versions.GetVersion(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("load version %s: %w", versionID, err)
	}
	source, err := m.prompts.GetPrompt(ctx, v.PromptID)
	if err != nil {
		return nil, fmt.Errorf("load source prompt %s: %w", v.PromptID, err)
	}

	title := fmt.Sprintf("%s (Branch)", v.Title)
	if newTitle != nil && *newTitle != "" {
		title = *newTitle
	}

	tags := make([]string, 0, len(source.Tags)+1)
	for _, t := range source.Tags {
		if t != domain.TagBranched {
			tags = append(tags, t)
		}
	}
	tags = append(tags, domain.TagBranched)

	p, err := m.prompts.CreatePrompt(ctx, domain.CreatePromptRequest{
		OwnerID:  userID,
		Title:    title,
		Content:  v.Content,
		Category: source.Category,
		Tags:     tags,
		Metadata: map[string]interface{}{
			domain.MetaBranchedFromVer:    v.ID,
			domain.MetaBranchedFromPrompt: v.PromptID,
			domain.MetaBranchedFromNum:    v.VersionNumber,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create branch of version %s: %w", versionID, err)
	}

	m.logger.Info("prompt branched", "source_prompt_id", v.PromptID, "version_id", v.ID, "prompt_id", p.ID, "user_id", userID)
	return p, nil
}

// Stats summarises a prompt's history. A prompt without versions yields (nil, nil).
func (m *Manager) Stats(ctx context.Context, promptID string) (*domain.VersionStats, error) {
	versions, err := m.versions.ListVersions(ctx, promptID)
	if err != nil {
		return nil, fmt.Errorf("list versions of prompt %s: %w", promptID, err)
	}
	if len(versions) == 0 {
		return nil, nil
	}

	stats := &domain.VersionStats{
		TotalVersions: len(versions),
		OldestVersion: versions[0].CreatedAt,
		NewestVersion: versions[0].CreatedAt,
	}
	totalChanges := 0
	for _, v := range versions {
		if v.CreatedAt.Before(stats.OldestVersion) {
			stats.OldestVersion = v.CreatedAt
		}
		if v.CreatedAt.After(stats.NewestVersion) {
			stats.NewestVersion = v.CreatedAt
		}
		totalChanges += len(v.Changes)
	}
	stats.AverageChanges = float64(totalChanges) / float64(len(versions))
	return stats, nil
}

func (m *Manager) latestVersion(ctx context.Context, promptID string) (*domain.PromptVersion, error) {
	versions, err := m.History(ctx, promptID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}
	return &versions[0], nil
}
