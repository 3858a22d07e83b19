package conflict

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/memstore"
)

func strPtr(s string) *string { return &s }

func TestResolver_Check(t *testing.T) {
	ctx := context.Background()
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memstore.New(memstore.WithClock(func() time.Time { return updated }))
	p, err := store.CreatePrompt(ctx, domain.CreatePromptRequest{OwnerID: "u1", Title: "T", Content: "C"})
	require.NoError(t, err)

	r := NewResolver(store)

	tests := []struct {
		name      string
		lastKnown time.Time
		want      bool
	}{
		{"client is behind", updated.Add(-time.Millisecond), true},
		{"client is current", updated, false},
		{"client clock ahead", updated.Add(time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Check(ctx, p.ID, tt.lastKnown)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.HasConflict)
			assert.Equal(t, p.ID, res.Server.ID)
		})
	}

	t.Run("missing prompt", func(t *testing.T) {
		_, err := r.Check(ctx, "missing", updated)
		assert.ErrorIs(t, err, domain.ErrPromptNotFound)
	})
}

func TestResolve_Content(t *testing.T) {
	tests := []struct {
		name       string
		local      string
		server     string
		want       string
		resolution string
	}{
		{"identical", "same text", "same text", "same text", ResolutionLocal},
		{"local much longer", strings.Repeat("a", 12), strings.Repeat("b", 10), strings.Repeat("a", 12), ResolutionLocal},
		{"server much longer", strings.Repeat("a", 10), strings.Repeat("b", 12), strings.Repeat("a", 10) + ServerSeparator + strings.Repeat("b", 12), ResolutionMerged},
		{"similar length prefers local", strings.Repeat("a", 10), strings.Repeat("b", 11), strings.Repeat("a", 10), ResolutionLocal},
		{"local emptied", "", "server", ServerSeparator + "server", ResolutionMerged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(domain.Content{Title: "T", Content: tt.local}, domain.Content{Title: "T", Content: tt.server})
			assert.Equal(t, tt.want, res.Content.Content)
			assert.Equal(t, tt.resolution, res.Resolution)
			assert.Equal(t, tt.resolution == ResolutionMerged, res.NeedsReview)
		})
	}
}

func TestResolve_Fields(t *testing.T) {
	t.Run("local title wins when different", func(t *testing.T) {
		res := Resolve(domain.Content{Title: "Local"}, domain.Content{Title: "Server"})
		assert.Equal(t, "Local", res.Title)
	})

	t.Run("category falls back to server", func(t *testing.T) {
		res := Resolve(domain.Content{}, domain.Content{Category: strPtr("coding")})
		require.NotNil(t, res.Category)
		assert.Equal(t, "coding", *res.Category)

		res = Resolve(domain.Content{Category: strPtr("writing")}, domain.Content{Category: strPtr("coding")})
		assert.Equal(t, "writing", *res.Category)
	})

	t.Run("tags are unioned without duplicates", func(t *testing.T) {
		res := Resolve(domain.Content{Tags: []string{"a", "b"}}, domain.Content{Tags: []string{"b", "c"}})
		assert.ElementsMatch(t, []string{"a", "b", "c"}, res.Tags)

		res = Resolve(domain.Content{Tags: []string{"c", "b", "b"}}, domain.Content{Tags: []string{"a", "c"}})
		assert.ElementsMatch(t, []string{"a", "b", "c"}, res.Tags)
	})

	t.Run("server resolution never chosen", func(t *testing.T) {
		res := Resolve(domain.Content{Title: "x", Content: "short"}, domain.Content{Title: "y", Content: "much much longer"})
		assert.NotEqual(t, "server", res.Resolution)
	})
}
