package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/autosave"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/conflict"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/service"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/versioning"
)

// DraftStore reads and removes persisted auto-saves
type DraftStore interface {
	GetAutoSave(ctx context.Context, id string) (*domain.AutoSave, error)
	ListAutoSaves(ctx context.Context, ownerID string) ([]domain.AutoSave, error)
	DeleteAutoSave(ctx context.Context, id string) error
}

// Deps are the collaborators the Handler serves
type Deps struct {
	Prompts  *service.PromptService
	Versions *versioning.Manager
	Resolver *conflict.Resolver
	AutoSave *autosave.Scheduler
	Drafts   DraftStore
	// DraftRate and DraftBurst limit draft writes per user; zero disables limiting.
	DraftRate  float64
	DraftBurst int
	Logger     *slog.Logger
}

// Handler serves the prompt, version, conflict and draft routes
type Handler struct {
	prompts  *service.PromptService
	versions *versioning.Manager
	resolver *conflict.Resolver
	autosave *autosave.Scheduler
	drafts   DraftStore
	limiter  *userLimiter
	logger   *slog.Logger

	keepAlive time.Duration
}

// New creates a new Handler
func New(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		prompts:   d.Prompts,
		versions:  d.Versions,
		resolver:  d.Resolver,
		autosave:  d.AutoSave,
		drafts:    d.Drafts,
		limiter:   newUserLimiter(d.DraftRate, d.DraftBurst),
		logger:    logger.With("component", "prompts_http"),
		keepAlive: 15 * time.Second,
	}
}
