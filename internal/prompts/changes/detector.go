// Package changes decides whether an edit is large enough to snapshot and
// lists the field-level changes between two prompt states.
package changes

import (
	"strings"

	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/domain"
)

// Policy controls when an edit qualifies for a version snapshot.
type Policy struct {
	AutoVersion bool
	// MajorOnly gates content edits on Threshold; when false any content
	// difference qualifies.
	MajorOnly bool
	// Threshold is a percentage in [0, 100]. Equal to threshold qualifies.
	Threshold float64
}

// DefaultPolicy returns auto-versioning on major changes at 30%.
func DefaultPolicy() Policy {
	return Policy{AutoVersion: true, MajorOnly: true, Threshold: 30}
}

// ShouldCreateVersion reports whether moving from old to new deserves a snapshot.
func ShouldCreateVersion(p Policy, old, new domain.Content) bool {
	if !p.AutoVersion {
		return false
	}
	if old.Title != new.Title {
		return true
	}
	if !p.MajorOnly {
		return old.Content != new.Content
	}
	return Percentage(old.Content, new.Content) >= p.Threshold
}

// Percentage estimates how much of the content changed, word by word.
// Tokens are compared position by position up to the shorter length, the
// difference in token counts is added, and the total is divided by the
// longer count.
func Percentage(old, new string) float64 {
	oldWords := strings.Fields(old)
	newWords := strings.Fields(new)

	longest := max(len(oldWords), len(newWords))
	if longest == 0 {
		return 0
	}

	shortest := min(len(oldWords), len(newWords))
	changed := 0
	for i := 0; i < shortest; i++ {
		if oldWords[i] != newWords[i] {
			changed++
		}
	}
	changed += longest - shortest

	return float64(changed*100) / float64(longest)
}

// Calculate lists the title and content modifications between two states.
// Category and tags are not versioned fields and are never reported.
func Calculate(old, new domain.Content) []domain.VersionChange {
	out := make([]domain.VersionChange, 0, 2)
	if old.Title != new.Title {
		out = append(out, domain.VersionChange{
			Type:     domain.ChangeModify,
			Field:    domain.FieldTitle,
			OldValue: old.Title,
			NewValue: new.Title,
		})
	}
	if old.Content != new.Content {
		out = append(out, domain.VersionChange{
			Type:     domain.ChangeModify,
			Field:    domain.FieldContent,
			OldValue: old.Content,
			NewValue: new.Content,
		})
	}
	return out
}
