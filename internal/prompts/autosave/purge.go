package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

// DefaultMaxDrafts is how many drafts a user keeps when the Purger is not told otherwise.
const DefaultMaxDrafts = 20

// PurgeStore lists and deletes stored drafts.
type PurgeStore interface {
	ListOwners(ctx context.Context) ([]string, error)
	ListAutoSaves(ctx context.Context, ownerID string) ([]domain.AutoSave, error)
	DeleteAutoSave(ctx context.Context, id string) error
}

// Purger enforces draft retention: expired drafts are deleted, and of the
// rest only the newest maxDrafts per user are kept.
type Purger struct {
	store     PurgeStore
	maxDrafts int
	logger    *slog.Logger
	now       func() time.Time
}

func NewPurger(store PurgeStore, maxDrafts int, logger *slog.Logger) *Purger {
	if maxDrafts <= 0 {
		maxDrafts = DefaultMaxDrafts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Purger{
		store:     store,
		maxDrafts: maxDrafts,
		logger:    logger.With("component", "autosave_purger"),
		now:       time.Now,
	}
}

// PurgeOwner applies retention to one user's drafts and returns how many were deleted.
func (p *Purger) PurgeOwner(ctx context.Context, ownerID string) (int, error) {
	drafts, err := p.store.ListAutoSaves(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("list drafts of %s: %w", ownerID, err)
	}

	now := p.now()
	kept, deleted := 0, 0
	for _, d := range drafts {
		if now.Before(d.ExpiresAt) && kept < p.maxDrafts {
			kept++
			continue
		}
		if err := p.store.DeleteAutoSave(ctx, d.ID); err != nil && !errors.Is(err, domain.ErrAutoSaveNotFound) {
			return deleted, fmt.Errorf("delete draft %s: %w", d.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

// PurgeAll applies retention to every user with stored drafts. A failure for
// one user is logged and does not stop the others.
func (p *Purger) PurgeAll(ctx context.Context) (int, error) {
	owners, err := p.store.ListOwners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list draft owners: %w", err)
	}

	total := 0
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := p.PurgeOwner(ctx, owner)
		total += n
		if err != nil {
			p.logger.Warn("draft purge failed", "owner_id", owner, "error", err)
		}
	}

	p.logger.Info("draft purge finished", "owners", len(owners), "deleted", total)
	return total, nil
}
