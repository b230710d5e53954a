package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffFields_OnlyChangedKeysReported(t *testing.T) {
	oldFields := map[string]any{
		"first_name": "Maria",
		"last_name":  "Lopez",
		"phone":      "555-0101",
	}
	newFields := map[string]any{
		"first_name": "Maria",
		"last_name":  "Lopez-Santos",
		"phone":      "555-0101",
	}

	oldChanged, newChanged := DiffFields(oldFields, newFields)

	assert.Equal(t, map[string]any{"last_name": "Lopez"}, oldChanged)
	assert.Equal(t, map[string]any{"last_name": "Lopez-Santos"}, newChanged)
}

func TestDiffFields_IdenticalMapsProduceEmptyDiff(t *testing.T) {
	fields := map[string]any{"first_name": "Maria", "status": "active"}

	oldChanged, newChanged := DiffFields(fields, fields)

	assert.True(t, DiffEmpty(oldChanged, newChanged))
}

func TestDiffFields_NilOldMeansCreated(t *testing.T) {
	newFields := map[string]any{"first_name": "Maria", "status": "pending"}

	oldChanged, newChanged := DiffFields(nil, newFields)

	assert.Empty(t, oldChanged)
	assert.Equal(t, newFields, newChanged)
}

func TestDiffFields_RemovedKeyShowsOnOldSide(t *testing.T) {
	oldFields := map[string]any{"first_name": "Maria", "nickname": "Mia"}
	newFields := map[string]any{"first_name": "Maria"}

	oldChanged, newChanged := DiffFields(oldFields, newFields)

	assert.Equal(t, map[string]any{"nickname": "Mia"}, oldChanged)
	assert.Empty(t, newChanged)
}

func TestListChanged_OrderInsensitive(t *testing.T) {
	a := map[string]any{"name": "Ana", "phone": "555-0001"}
	b := map[string]any{"name": "Ben", "phone": "555-0002"}

	assert.False(t, ListChanged(
		[]map[string]any{a, b},
		[]map[string]any{b, a},
	))
}

func TestListChanged_DetectsContentChange(t *testing.T) {
	a := map[string]any{"name": "Ana", "phone": "555-0001"}
	edited := map[string]any{"name": "Ana", "phone": "555-9999"}

	assert.True(t, ListChanged(
		[]map[string]any{a},
		[]map[string]any{edited},
	))
	assert.True(t, ListChanged(
		[]map[string]any{a},
		[]map[string]any{},
	))
	assert.False(t, ListChanged(nil, []map[string]any{}))
}
