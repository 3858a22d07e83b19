package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/versioning"
)

// PromptStore is the prompt persistence the service needs
type PromptStore interface {
	CreatePrompt(ctx context.Context, req domain.CreatePromptRequest) (*domain.Prompt, error)
	GetPrompt(ctx context.Context, id string) (*domain.Prompt, error)
	ListPrompts(ctx context.Context, ownerID string) ([]domain.Prompt, error)
	UpdatePrompt(ctx context.Context, id string, upd domain.PromptUpdate) (*domain.Prompt, error)
	DeletePrompt(ctx context.Context, id string) (bool, error)
}

// SaveRequest carries an explicit save. Nil fields keep the stored value.
type SaveRequest struct {
	Title    *string
	Content  *string
	Category *string
	Tags     []string
	Notes    *string
	// ForceVersion snapshots the save even when the edit is minor.
	ForceVersion bool
}

// SaveResult is the prompt after a save and the version it produced, if any.
type SaveResult struct {
	Prompt  *domain.Prompt         `json:"prompt"`
	Version *domain.PromptVersion `json:"version,omitempty"`
}

// PromptService handles prompt CRUD and routes explicit saves through the
// version manager
type PromptService struct {
	prompts  PromptStore
	versions *versioning.Manager
}

// NewPromptService creates a new PromptService
func NewPromptService(prompts PromptStore, versions *versioning.Manager) *PromptService {
	return &PromptService{
		prompts:  prompts,
		versions: versions,
	}
}

// Create creates a new prompt at version 1
func (s *PromptService) Create(ctx context.Context, req domain.CreatePromptRequest) (*domain.Prompt, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, fmt.Errorf("owner is required: %w", domain.ErrInvalidInput)
	}
	if req.Metadata == nil {
		req.Metadata = make(map[string]interface{})
	}
	return s.prompts.CreatePrompt(ctx, req)
}

// Get retrieves a prompt by its ID
func (s *PromptService) Get(ctx context.Context, id string) (*domain.Prompt, error) {
	return s.prompts.GetPrompt(ctx, id)
}

// List retrieves the owner's prompts, most recently updated first
func (s *PromptService) List(ctx context.Context, ownerID string) ([]domain.Prompt, error) {
	return s.prompts.ListPrompts(ctx, ownerID)
}

// Save applies an explicit edit. A significant edit (or a forced one) becomes
// the prompt's next version; anything else updates the prompt in place and
// leaves its version number alone.
func (s *PromptService) Save(ctx context.Context, id, userID string, req SaveRequest) (*SaveResult, error) {
	current, err := s.prompts.GetPrompt(ctx, id)
	if err != nil {
		return nil, err
	}

	data := current.ContentOf()
	if req.Title != nil {
		data.Title = *req.Title
	}
	if req.Content != nil {
		data.Content = *req.Content
	}
	if req.Category != nil {
		data.Category = req.Category
	}
	if req.Tags != nil {
		data.Tags = req.Tags
	}

	v, err := s.versions.CreateVersion(ctx, id, data, userID, versioning.CreateOptions{
		Notes: req.Notes,
		Force: req.ForceVersion,
	})
	if err != nil {
		return nil, err
	}

	if v != nil {
		p, err := s.prompts.GetPrompt(ctx, id)
		if err != nil {
			return nil, err
		}
		return &SaveResult{Prompt: p, Version: v}, nil
	}

	p, err := s.prompts.UpdatePrompt(ctx, id, domain.PromptUpdate{
		Title:    &data.Title,
		Content:  &data.Content,
		Category: data.Category,
		Tags:     data.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("update prompt %s: %w", id, err)
	}
	return &SaveResult{Prompt: p}, nil
}

// Delete deletes a prompt and its versions. Deleting a missing prompt
// returns domain.ErrPromptNotFound.
func (s *PromptService) Delete(ctx context.Context, id string) error {
	ok, err := s.prompts.DeletePrompt(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPromptNotFound
	}
	return nil
}
