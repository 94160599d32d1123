package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "hello", "hello"},
		{"uppercase", "Hello World", "hello-world"},
		{"underscores", "my_doc_name", "my-doc-name"},
		{"special chars stripped", "Hello, World!", "hello-world"},
		{"numbers preserved", "doc-v2.1", "doc-v21"},
		{"mixed", "My Cool_Doc (v3)", "my-cool-doc-v3"},
		{"empty string", "", ""},
		{"only special chars", "!@#$%", ""},
		{"consecutive spaces", "hello   world", "hello---world"},
		{"unicode stripped", "café résumé", "caf-rsum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation dropped", "Hello, World!", "hello world"},
		{"whitespace collapsed", "  Support   Hours\tExplained ", "support hours explained"},
		{"unicode kept", "Café Guide", "café guide"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.in))
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("Customer Support: A Guide")
	b := Fingerprint("customer support a   guide")
	c := Fingerprint("Customer Support Guide")

	assert.Equal(t, a, b, "normalised titles share a fingerprint")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestBatchPercent(t *testing.T) {
	tests := []struct {
		name  string
		batch BulkUpdateBatch
		want  float64
	}{
		{"empty batch is done", BulkUpdateBatch{}, 1},
		{"half", BulkUpdateBatch{AffectedCount: 10, UpdatedCount: 3, FailedCount: 2}, 0.5},
		{"all", BulkUpdateBatch{AffectedCount: 4, UpdatedCount: 4}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.batch.Percent(), 1e-9)
		})
	}
}

func TestDigestEmpty(t *testing.T) {
	assert.True(t, ResearchDigest{Queries: []string{"q"}}.Empty())
	assert.False(t, ResearchDigest{KeyPoints: []string{"k"}}.Empty())
}
