// Package conflict detects when the stored prompt moved on since a client
// last saw it, and merges a local edit with the stored state.
package conflict

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

// Resolution kinds
const (
	ResolutionLocal  = "local"
	ResolutionMerged = "merged"
)

// ServerSeparator sits between the local and server content when both are
// kept for manual review.
const ServerSeparator = "\n\n--- Server Version ---\n\n"

// PromptGetter loads the stored state of a prompt.
type PromptGetter interface {
	GetPrompt(ctx context.Context, id string) (*domain.Prompt, error)
}

// Check is the outcome of a conflict probe. Server is always the stored snapshot.
type Check struct {
	HasConflict bool           `json:"has_conflict"`
	Server      *domain.Prompt `json:"server"`
}

// Result is a merged prompt state ready to be saved.
type Result struct {
	domain.Content
	Resolution  string `json:"resolution"`
	NeedsReview bool   `json:"needs_review"`
}

type Resolver struct {
	prompts PromptGetter
}

func NewResolver(prompts PromptGetter) *Resolver {
	return &Resolver{prompts: prompts}
}

// Check reports a conflict when the stored prompt was updated strictly after lastKnown.
func (r *Resolver) Check(ctx context.Context, promptID string, lastKnown time.Time) (*Check, error) {
	server, err := r.prompts.GetPrompt(ctx, promptID)
	if err != nil {
		return nil, fmt.Errorf("load prompt %s: %w", promptID, err)
	}
	return &Check{
		HasConflict: server.UpdatedAt.After(lastKnown),
		Server:      server,
	}, nil
}

// Resolve merges local over server. The title and category come from local
// unless local leaves them unchanged or empty, tags are unioned, and content
// follows the length heuristic in mergeContent.
func Resolve(local, server domain.Content) Result {
	content, merged := mergeContent(local.Content, server.Content)

	res := Result{
		Content: domain.Content{
			Title:    server.Title,
			Content:  content,
			Category: local.Category,
			Tags:     unionTags(local.Tags, server.Tags),
		},
		Resolution:  ResolutionLocal,
		NeedsReview: merged,
	}
	if local.Title != server.Title {
		res.Title = local.Title
	}
	if res.Category == nil || *res.Category == "" {
		res.Category = server.Category
	}
	if merged {
		res.Resolution = ResolutionMerged
	}
	return res
}

// mergeContent keeps local when it is at least 20% longer than server (the
// user added text), concatenates both when server is at least 20% longer
// (someone else added text), and otherwise keeps local.
func mergeContent(local, server string) (string, bool) {
	if local == server {
		return local, false
	}

	l := utf8.RuneCountInString(local)
	s := utf8.RuneCountInString(server)

	if 5*l >= 6*s {
		return local, false
	}
	if 5*s >= 6*l {
		return local + ServerSeparator + server, true
	}
	return local, false
}

// unionTags returns local tags followed by server-only tags, without duplicates.
func unionTags(local, server []string) []string {
	seen := make(map[string]struct{}, len(local)+len(server))
	out := make([]string, 0, len(local)+len(server))
	for _, list := range [][]string{local, server} {
		for _, t := range list {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
