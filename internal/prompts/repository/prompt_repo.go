package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const promptColumns = `id, title, content, category, tags, owner_id, version, is_latest, metadata, created_at, updated_at`

const versionColumns = `id, prompt_id, version_number, title, content, changes, created_by, notes, parent_version_id, created_at`

// PromptRepository handles PostgreSQL operations for prompts and their versions
type PromptRepository struct {
	db *sql.DB
}

// NewPromptRepository creates a new PromptRepository
func NewPromptRepository(db *sql.DB) *PromptRepository {
	return &PromptRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PromptRepository) CreatePrompt(ctx context.Context, req domain.CreatePromptRequest) (*domain.Prompt, error) {
	if req.OwnerID == "" {
		return nil, domain.ErrInvalidInput
	}

	p := &domain.Prompt{
		ID:       uuid.New().String(),
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tags:     normalizeTags(req.Tags),
		OwnerID:  req.OwnerID,
		Version:  1,
		IsLatest: true,
		Metadata: req.Metadata,
	}

	tagsJSON, err := json.Marshal(p.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	metaJSON, err := marshalMetadata(p.Metadata)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO prompts (id, title, content, category, tags, owner_id, version, is_latest, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		p.ID, p.Title, p.Content, nullString(p.Category), string(tagsJSON),
		p.OwnerID, p.Version, p.IsLatest, metaJSON,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt: %w", err)
	}

	return p, nil
}

func (r *PromptRepository) GetPrompt(ctx context.Context, id string) (*domain.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE id = $1`

	p, err := scanPrompt(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPromptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return p, nil
}

// ListPrompts returns the owner's prompts, most recently updated first.
func (r *PromptRepository) ListPrompts(ctx context.Context, ownerID string) ([]domain.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE owner_id = $1 ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Prompt, 0, 16)
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	return out, nil
}

// UpdatePrompt applies the non-nil fields of upd. Metadata keys are merged
// into the stored object.
func (r *PromptRepository) UpdatePrompt(ctx context.Context, id string, upd domain.PromptUpdate) (*domain.Prompt, error) {
	var tagsArg, metaArg any
	if upd.Tags != nil {
		b, err := json.Marshal(upd.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tags: %w", err)
		}
		tagsArg = string(b)
	}
	if upd.Metadata != nil {
		b, err := json.Marshal(upd.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metaArg = string(b)
	}

	query := `
		UPDATE prompts SET
			title = COALESCE($2, title),
			content = COALESCE($3, content),
			category = COALESCE($4, category),
			tags = COALESCE($5::jsonb, tags),
			version = COALESCE($6, version),
			metadata = CASE WHEN $7::jsonb IS NULL THEN metadata
			                ELSE COALESCE(metadata, '{}'::jsonb) || $7::jsonb END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + promptColumns

	p, err := scanPrompt(r.db.QueryRowContext(ctx, query,
		id, nullString(upd.Title), nullString(upd.Content), nullString(upd.Category),
		tagsArg, nullInt(upd.Version), metaArg,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPromptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update prompt: %w", err)
	}
	return p, nil
}

// DeletePrompt removes a prompt; its versions go with it through ON DELETE CASCADE.
func (r *PromptRepository) DeletePrompt(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM prompts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete prompt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete prompt: %w", err)
	}
	return n > 0, nil
}

// CreateVersion inserts v. A duplicate (prompt_id, version_number) maps to
// domain.ErrVersionConflict and a missing prompt to domain.ErrPromptNotFound.
func (r *PromptRepository) CreateVersion(ctx context.Context, v *domain.PromptVersion) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	if v.Changes == nil {
		v.Changes = []domain.VersionChange{}
	}

	changesJSON, err := json.Marshal(v.Changes)
	if err != nil {
		return fmt.Errorf("failed to marshal changes: %w", err)
	}

	query := `
		INSERT INTO prompt_versions (` + versionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.ExecContext(ctx, query,
		v.ID, v.PromptID, v.VersionNumber, v.Title, v.Content, string(changesJSON),
		v.CreatedBy, nullString(v.Notes), nullString(v.ParentVersionID), v.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return domain.ErrVersionConflict
			case pgForeignKeyViolation:
				return domain.ErrPromptNotFound
			}
		}
		return fmt.Errorf("failed to create version: %w", err)
	}
	return nil
}

func (r *PromptRepository) GetVersion(ctx context.Context, id string) (*domain.PromptVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM prompt_versions WHERE id = $1`

	v, err := scanVersion(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// ListVersions returns a prompt's versions, newest (highest number) first.
func (r *PromptRepository) ListVersions(ctx context.Context, promptID string) ([]domain.PromptVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM prompt_versions WHERE prompt_id = $1 ORDER BY version_number DESC`

	rows, err := r.db.QueryContext(ctx, query, promptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PromptVersion, 0, 16)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return out, nil
}

func (r *PromptRepository) DeleteVersion(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM prompt_versions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}
	if n == 0 {
		return domain.ErrVersionNotFound
	}
	return nil
}

// DeleteVersionsBeyond keeps the newest keep versions of a prompt and deletes the rest.
func (r *PromptRepository) DeleteVersionsBeyond(ctx context.Context, promptID string, keep int) (int, error) {
	query := `
		DELETE FROM prompt_versions
		WHERE prompt_id = $1
		  AND id NOT IN (
			SELECT id FROM prompt_versions
			WHERE prompt_id = $1
			ORDER BY version_number DESC
			LIMIT $2
		  )
	`
	res, err := r.db.ExecContext(ctx, query, promptID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune versions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to prune versions: %w", err)
	}
	return int(n), nil
}

func scanPrompt(row rowScanner) (*domain.Prompt, error) {
	var p domain.Prompt
	var category sql.NullString
	var tagsJSON, metaJSON []byte

	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Content,
		&category,
		&tagsJSON,
		&p.OwnerID,
		&p.Version,
		&p.IsLatest,
		&metaJSON,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if category.Valid {
		p.Category = &category.String
	}
	p.Tags = []string{}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &p.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &p.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &p, nil
}

func scanVersion(row rowScanner) (*domain.PromptVersion, error) {
	var v domain.PromptVersion
	var notes, parent sql.NullString
	var changesJSON []byte

	err := row.Scan(
		&v.ID,
		&v.PromptID,
		&v.VersionNumber,
		&v.Title,
		&v.Content,
		&changesJSON,
		&v.CreatedBy,
		&notes,
		&parent,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if notes.Valid {
		v.Notes = &notes.String
	}
	if parent.Valid {
		v.ParentVersionID = &parent.String
	}
	v.Changes = []domain.VersionChange{}
	if len(changesJSON) > 0 {
		if err := json.Unmarshal(changesJSON, &v.Changes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changes: %w", err)
		}
	}
	return &v, nil
}

func marshalMetadata(m map[string]interface{}) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(b), nil
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return append([]string(nil), tags...)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
