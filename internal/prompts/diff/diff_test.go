package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLines(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
		want string
	}{
		{
			name: "identical",
			old:  "one\ntwo",
			new:  "one\ntwo",
			want: "  one\n  two",
		},
		{
			name: "changed middle line",
			old:  "one\ntwo\nthree",
			new:  "one\nTWO\nthree",
			want: "  one\n- two\n+ TWO\n  three",
		},
		{
			name: "appended line",
			old:  "one",
			new:  "one\ntwo",
			want: "  one\n+ two",
		},
		{
			name: "removed trailing line",
			old:  "one\ntwo",
			new:  "one",
			want: "  one\n- two",
		},
		{
			name: "line blanked",
			old:  "one\ntwo",
			new:  "one\n",
			want: "  one\n- two",
		},
		{
			name: "positional shift after insert",
			old:  "a\nb",
			new:  "x\na\nb",
			want: "- a\n+ x\n- b\n+ a\n+ b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Lines(tt.old, tt.new))
		})
	}
}

func TestHasChanges(t *testing.T) {
	assert.False(t, HasChanges(Lines("a\nb", "a\nb")))
	assert.False(t, HasChanges(Lines("", "")))
	assert.True(t, HasChanges(Lines("a", "b")))
}

func TestUnified(t *testing.T) {
	assert.Empty(t, Unified("v1", "v2", "same\n", "same\n", 0))

	got := Unified("v1", "v2", "a\nb\nc\n", "a\nB\nc\n", 1)
	assert.True(t, strings.HasPrefix(got, "--- v1\n+++ v2\n"))
	assert.Contains(t, got, "-b\n")
	assert.Contains(t, got, "+B\n")
}
