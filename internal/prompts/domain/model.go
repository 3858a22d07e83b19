package domain

import "time"

// Prompt is the durable user-facing document. It is storage-agnostic and
// shared by the repository, engine and HTTP layers.
type Prompt struct {
	ID        string                 `json:"id"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Category  *string                `json:"category,omitempty"`
	Tags      []string               `json:"tags"`
	OwnerID   string                 `json:"owner_id"`
	Version   int                    `json:"version"`
	IsLatest  bool                   `json:"is_latest"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// PromptVersion is an immutable snapshot of a prompt. Version numbers are
// unique per prompt and increase by one on each snapshot.
type PromptVersion struct {
	ID              string          `json:"id"`
	PromptID        string          `json:"prompt_id"`
	VersionNumber   int             `json:"version_number"`
	Title           string          `json:"title"`
	Content         string          `json:"content"`
	Changes         []VersionChange `json:"changes"`
	CreatedBy       string          `json:"created_by"`
	Notes           *string         `json:"notes,omitempty"`
	ParentVersionID *string         `json:"parent_version_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ChangeType constants
const (
	ChangeAdd    = "add"
	ChangeModify = "modify"
	ChangeRemove = "remove"
)

// VersionChange is one field-level delta embedded in a PromptVersion.
type VersionChange struct {
	Type     string `json:"type"`
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// Field names recorded in VersionChange.Field
const (
	FieldTitle   = "title"
	FieldContent = "content"
)

// AutoSave is a transient, non-versioned draft snapshot.
type AutoSave struct {
	ID        string                 `json:"id"`
	PromptID  *string                `json:"prompt_id,omitempty"`
	OwnerID   string                 `json:"owner_id"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Category  *string                `json:"category,omitempty"`
	Tags      []string               `json:"tags"`
	Metadata  map[string]interface{} `json:"metadata"`
	ExpiresAt time.Time              `json:"expires_at"`
	CreatedAt time.Time              `json:"created_at"`
}

// Metadata keys written on auto-saves and branched prompts
const (
	MetaRevision           = "revision"
	MetaDocumentID         = "document_id"
	MetaBranchedFromVer    = "branched_from_version"
	MetaBranchedFromPrompt = "branched_from_prompt"
	MetaBranchedFromNum    = "branched_from_version_number"
)

// TagBranched marks prompts created by branching from a version.
const TagBranched = "branched"

// AutoSaveState is the in-memory status of one auto-saving document.
type AutoSaveState struct {
	IsDirty   bool       `json:"is_dirty"`
	LastSaved *time.Time `json:"last_saved,omitempty"`
	IsSaving  bool       `json:"is_saving"`
	Error     string     `json:"error,omitempty"`
}

// Content is the editable part of a prompt: what a draft captures and what a
// version decision compares.
type Content struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category *string  `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Draft is the latest in-memory edit of a document awaiting auto-save.
type Draft struct {
	PromptID *string `json:"prompt_id,omitempty"`
	Content
}

// PromptUpdate carries the fields to change on a prompt; nil fields are left alone.
type PromptUpdate struct {
	Title    *string
	Content  *string
	Category *string
	Tags     []string
	Version  *int
	Metadata map[string]interface{}
}

// CreatePromptRequest holds the data needed to create a new prompt.
type CreatePromptRequest struct {
	OwnerID  string
	Title    string
	Content  string
	Category *string
	Tags     []string
	Metadata map[string]interface{}
}

// VersionStats summarises a prompt's version history.
type VersionStats struct {
	TotalVersions  int       `json:"total_versions"`
	OldestVersion  time.Time `json:"oldest_version"`
	NewestVersion  time.Time `json:"newest_version"`
	AverageChanges float64   `json:"average_changes"`
}

// ContentOf returns the editable content of a prompt.
func (p *Prompt) ContentOf() Content {
	return Content{
		Title:    p.Title,
		Content:  p.Content,
		Category: p.Category,
		Tags:     p.Tags,
	}
}
