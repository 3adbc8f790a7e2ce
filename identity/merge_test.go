package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishu3131/civisync/domain"
)

func TestMergeDocumentOverridesAndAllowList(t *testing.T) {
	snapshot := &domain.IdentitySnapshot{
		UID:         "abc",
		Email:       "a@x.com",
		DisplayName: "from-auth",
	}

	mergeDocument(snapshot, map[string]any{
		"display_name": "from-document",
		"avatar_url":   "https://cdn.example/doc.png",
		"bio":          "civic hacker",
		"city":         "Civitanova Marche",
		"interests":    []any{"events", "mobility"},
		"shoe_size":    44, // not allow-listed, must be dropped
	})

	assert.Equal(t, "from-document", snapshot.DisplayName)
	assert.Equal(t, "https://cdn.example/doc.png", snapshot.AvatarURL)
	assert.Equal(t, "civic hacker", snapshot.Extra["bio"])
	assert.Equal(t, "Civitanova Marche", snapshot.Extra["city"])
	assert.NotContains(t, snapshot.Extra, "shoe_size")
}

func TestMergeDocumentEmptyValuesDoNotClobber(t *testing.T) {
	snapshot := &domain.IdentitySnapshot{
		UID:         "abc",
		DisplayName: "from-auth",
		AvatarURL:   "https://cdn.example/auth.png",
	}

	mergeDocument(snapshot, map[string]any{
		"display_name": "",
		"avatar_url":   nil,
	})

	assert.Equal(t, "from-auth", snapshot.DisplayName)
	assert.Equal(t, "https://cdn.example/auth.png", snapshot.AvatarURL)
	assert.Nil(t, snapshot.Extra)
}

func TestDocumentValidator(t *testing.T) {
	v, err := newDocumentValidator()
	require.NoError(t, err)

	t.Run("valid document passes", func(t *testing.T) {
		doc, err := v.Validate(map[string]any{
			"bio":       "hello",
			"interests": []any{"sport"},
			"unknown":   "tolerated but dropped later",
		})
		require.NoError(t, err)
		assert.Equal(t, "hello", doc["bio"])
	})

	t.Run("wrong field type fails", func(t *testing.T) {
		_, err := v.Validate(map[string]any{"bio": 42})
		assert.Error(t, err)
	})

	t.Run("wrong interests element type fails", func(t *testing.T) {
		_, err := v.Validate(map[string]any{"interests": []any{1, 2}})
		assert.Error(t, err)
	})
}
