package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMapValue(t *testing.T) {
	var nilMap JSONMap
	v, err := nilMap.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v, "nil maps store as empty objects, not NULL")

	v, err = JSONMap{"count": 3}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":3}`, string(v.([]byte)))
}

func TestJSONMapScan(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"entityId":"abc"}`)))
	assert.Equal(t, "abc", m["entityId"])

	require.NoError(t, m.Scan(nil))
	assert.Equal(t, JSONMap{}, m)

	require.NoError(t, m.Scan("{}"))
	assert.Equal(t, JSONMap{}, m)

	assert.Error(t, m.Scan(42))
}

func TestParseEventStatus(t *testing.T) {
	st, ok := ParseEventStatus(" In_Progress ")
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, st)

	_, ok = ParseEventStatus("done")
	assert.False(t, ok)
}

func TestMessageJSONShape(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	dep := "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	ev := Event{
		ID:        "01BX5ZZKBKACTAV9WEVGEMMVRZ",
		Topic:     "entity.folder.created",
		DependsOn: &dep,
		Status:    StatusFinished,
		Summary:   JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	progress := 100.0
	data, err := json.Marshal(NewMessage(ev, true, &progress, []string{"alice"}))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	// listener-facing keys are camelCase
	assert.Contains(t, out, "dependsOn")
	assert.Contains(t, out, "createdAt")
	assert.Contains(t, out, "updatedAt")
	assert.Equal(t, true, out["store"])
	assert.Equal(t, 100.0, out["progress"])
	assert.Equal(t, []any{"alice"}, out["recipients"])
}

func TestMessageOmitsUnknownProgress(t *testing.T) {
	data, err := json.Marshal(NewMessage(Event{Status: StatusPending}, true, nil, nil))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.NotContains(t, out, "progress")
	assert.Nil(t, out["recipients"], "nil recipients means all listeners")
}

func TestEventPatchApply(t *testing.T) {
	orig := Event{
		Status:      StatusPending,
		Description: "rendering",
		Progress:    10,
		Retries:     0,
	}

	status := StatusFailed
	retries := 2
	patched := EventPatch{Status: &status, Retries: &retries}.Apply(orig)

	assert.Equal(t, StatusFailed, patched.Status)
	assert.Equal(t, 2, patched.Retries)
	assert.Equal(t, "rendering", patched.Description, "unset fields untouched")
	assert.Equal(t, 10.0, patched.Progress)

	assert.Equal(t, StatusPending, orig.Status, "original is not mutated")
}

func TestEventPatchIsZero(t *testing.T) {
	assert.True(t, EventPatch{}.IsZero())

	p := 50.0
	assert.False(t, EventPatch{Progress: &p}.IsZero())
}
