package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "feedmail.json"))
}

func TestStore_LoadNotFound(t *testing.T) {
	store := testStore(t)

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := testStore(t)

	db := NewDatabase()
	db.DefaultTarget = "inbox@example.net"
	db.Feeds = append(db.Feeds, &FeedConfig{
		Name:   "planet",
		URL:    "https://planet.example.org/atom.xml",
		Target: "feeds@example.net",
	})
	st := db.State("planet")
	st.ETag = `"abc123"`
	st.Seen["id-1"] = &SeenEntry{
		FirstSeen:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Fingerprint: "deadbeef",
	}

	require.NoError(t, store.Save(db))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, DatabaseVersion, loaded.Version)
	assert.Equal(t, "inbox@example.net", loaded.DefaultTarget)
	require.Len(t, loaded.Feeds, 1)
	assert.Equal(t, "planet", loaded.Feeds[0].Name)
	assert.Equal(t, "feeds@example.net", loaded.Feeds[0].Target)

	state := loaded.State("planet")
	assert.Equal(t, `"abc123"`, state.ETag)
	require.Contains(t, state.Seen, "id-1")
	assert.Equal(t, "deadbeef", state.Seen["id-1"].Fingerprint)
}

func TestStore_LoadCorrupt(t *testing.T) {
	store := testStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o600))

	_, err := store.Load()
	var corrupt *CorruptStateError
	assert.ErrorAs(t, err, &corrupt)
}

func TestStore_LoadUnsupportedVersion(t *testing.T) {
	store := testStore(t)
	require.NoError(t, os.WriteFile(store.Path(),
		[]byte(`{"version": 99, "feeds": []}`), 0o600))

	_, err := store.Load()
	var corrupt *CorruptStateError
	assert.ErrorAs(t, err, &corrupt)
}

func TestStore_UnknownFieldsSurviveRoundTrip(t *testing.T) {
	store := testStore(t)
	raw := `{
		"version": 1,
		"future_toggle": true,
		"feeds": [
			{"name": "f1", "url": "https://a.example/feed", "future_option": "x"}
		],
		"states": {
			"f1": {"seen": {}, "last_fetch": "0001-01-01T00:00:00Z", "future_marker": 7}
		}
	}`
	require.NoError(t, os.WriteFile(store.Path(), []byte(raw), 0o600))

	db, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.Save(db))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, true, m["future_toggle"])

	feeds := m["feeds"].([]any)
	assert.Equal(t, "x", feeds[0].(map[string]any)["future_option"])

	states := m["states"].(map[string]any)
	assert.EqualValues(t, 7, states["f1"].(map[string]any)["future_marker"])
}

func TestStore_LoadNormalizesMissingSeen(t *testing.T) {
	store := testStore(t)
	raw := `{
		"version": 1,
		"feeds": [{"name": "planet", "url": "https://a.example/feed"}],
		"states": {
			"planet": {"last_error": "fetch timed out"},
			"ghost": null
		}
	}`
	require.NoError(t, os.WriteFile(store.Path(), []byte(raw), 0o600))

	db, err := store.Load()
	require.NoError(t, err)

	state := db.State("planet")
	assert.Equal(t, "fetch timed out", state.LastError)
	require.NotNil(t, state.Seen)
	state.Seen["id-1"] = &SeenEntry{FirstSeen: time.Now()}

	require.NotNil(t, db.States["ghost"])
	assert.NotNil(t, db.States["ghost"].Seen)
}

func TestStore_InterruptedSaveLeavesSnapshotIntact(t *testing.T) {
	store := testStore(t)

	db := NewDatabase()
	db.Feeds = append(db.Feeds, &FeedConfig{Name: "keep", URL: "https://a.example/feed"})
	require.NoError(t, store.Save(db))

	// A crash between write and rename leaves a stray temp file behind; the
	// snapshot itself must still load unchanged.
	stray := store.Path() + ".tmp-crash"
	require.NoError(t, os.WriteFile(stray, []byte("partial"), 0o600))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Feeds, 1)
	assert.Equal(t, "keep", loaded.Feeds[0].Name)
}

func TestStore_SaveFailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "feedmail.json"))

	db := NewDatabase()
	db.DefaultTarget = "old@example.net"
	require.NoError(t, store.Save(db))

	// Make the directory read-only so the temp file cannot be created.
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o700) })

	db.DefaultTarget = "new@example.net"
	err := store.Save(db)
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)

	require.NoError(t, os.Chmod(dir, 0o700))
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "old@example.net", loaded.DefaultTarget)
}

func TestDatabase_PruneStates(t *testing.T) {
	db := NewDatabase()
	db.Feeds = append(db.Feeds, &FeedConfig{Name: "kept", URL: "https://a.example/feed"})
	db.State("kept")
	db.State("orphan")

	db.PruneStates()

	assert.Contains(t, db.States, "kept")
	assert.NotContains(t, db.States, "orphan")
}
