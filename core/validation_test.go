package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from TaskStatus
		to   TaskStatus
		want bool
	}{
		{"wait to in progress", StatusWaitTo, StatusInProgress, true},
		{"wait to success", StatusWaitTo, StatusSuccess, false},
		{"wait to failed", StatusWaitTo, StatusFailed, false},
		{"in progress to success", StatusInProgress, StatusSuccess, true},
		{"in progress to failed", StatusInProgress, StatusFailed, true},
		{"in progress re-entry", StatusInProgress, StatusInProgress, false},
		{"failed retry", StatusFailed, StatusInProgress, true},
		{"success retry", StatusSuccess, StatusInProgress, true},
		{"success to wait", StatusSuccess, StatusWaitTo, false},
		{"failed to wait", StatusFailed, StatusWaitTo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidateDocument(t *testing.T) {
	creator := IDFromContent("user")

	valid := &Document{Creator: creator, Category: CategoryWebsite, Locator: "https://example.com"}
	assert.NoError(t, ValidateDocument(valid))

	note := &Document{Creator: creator, Category: CategoryQuickNote, Content: "a note"}
	assert.NoError(t, ValidateDocument(note))

	t.Run("missing locator", func(t *testing.T) {
		doc := &Document{Creator: creator, Category: CategoryFile}
		assert.ErrorIs(t, ValidateDocument(doc), ErrInvalidDocument)
	})

	t.Run("empty note", func(t *testing.T) {
		doc := &Document{Creator: creator, Category: CategoryQuickNote}
		assert.ErrorIs(t, ValidateDocument(doc), ErrInvalidDocument)
	})

	t.Run("unknown category", func(t *testing.T) {
		doc := &Document{Creator: creator, Category: DocumentCategory(99)}
		assert.ErrorIs(t, ValidateDocument(doc), ErrUnknownCategory)
	})

	t.Run("missing creator", func(t *testing.T) {
		doc := &Document{Category: CategoryQuickNote, Content: "a note"}
		assert.ErrorIs(t, ValidateDocument(doc), ErrInvalidDocument)
	})
}

func TestValidateEntity(t *testing.T) {
	assert.NoError(t, ValidateEntity(&Entity{Type: "person", Text: "alice"}))
	assert.ErrorIs(t, ValidateEntity(&Entity{Type: "person"}), ErrEmptyEntityText)
	assert.ErrorIs(t, ValidateEntity(&Entity{Text: "alice"}), ErrEmptyEntityType)
}
