package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool       { return &v }
func intPtr(v int) *int          { return &v }
func stringPtr(v string) *string { return &v }

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)

	got := store.Load()
	require.Equal(t, Default(), got)
	require.Equal(t, Default(), store.Get())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"maskPhone": false, "autoDeleteLogsAfterDays": 7}`), 0o600))

	store := NewStore(path, nil)
	got := store.Load()

	require.False(t, got.MaskPhone)
	require.Equal(t, 7, got.AutoDeleteLogsAfterDays)
	// Keys absent from the file keep their defaults.
	require.True(t, got.MaskEmail)
	require.True(t, got.NoSave)
	require.Equal(t, "mask", got.DLPAction)
}

func TestLoadCorruptFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewStore(path, nil)
	require.Equal(t, Default(), store.Load())
}

func TestUpdateMergesImmediatelyAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewStore(path, nil)
	store.Load()

	merged := store.Update(Partial{
		MaskPhone:   boolPtr(false),
		DLPAction:   stringPtr("warn"),
		OfflineMode: boolPtr(true),
	})

	// The merge is visible before any disk write completes.
	require.False(t, merged.MaskPhone)
	require.Equal(t, "warn", merged.DLPAction)
	require.True(t, merged.OfflineMode)
	require.Equal(t, merged, store.Get())

	require.Eventually(t, func() bool {
		content, err := os.ReadFile(path)
		if err != nil {
			return false
		}
		var onDisk Settings
		if err := json.Unmarshal(content, &onDisk); err != nil {
			return false
		}
		return !onDisk.MaskPhone && onDisk.DLPAction == "warn" && onDisk.OfflineMode
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUpdateUntouchedKeysSurvive(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	store.Load()

	store.Update(Partial{MaskPhone: boolPtr(false)})
	got := store.Update(Partial{AutoDeleteLogsAfterDays: intPtr(30)})

	require.False(t, got.MaskPhone)
	require.Equal(t, 30, got.AutoDeleteLogsAfterDays)
	require.True(t, got.MaskEmail)
	store.Flush()
}

func TestUpdateNotifiesListeners(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	store.Load()

	var seen []Settings
	store.Subscribe(func(s Settings) { seen = append(seen, s) })

	store.Update(Partial{EnableGemini: boolPtr(false)})

	require.Len(t, seen, 1)
	require.False(t, seen[0].EnableGemini)
	store.Flush()
}

func TestPartialApplySlicesCopied(t *testing.T) {
	rules := []ReplaceRule{{Pattern: "a", Replace: "b"}}
	partial := Partial{CustomReplaceRules: &rules}

	merged := partial.Apply(Default())
	rules[0].Replace = "mutated"

	require.Equal(t, "b", merged.CustomReplaceRules[0].Replace)
}

func TestGetReturnsSnapshot(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	store.Load()
	store.Update(Partial{WhitelistWords: &[]string{"dicto"}})

	snap := store.Get()
	snap.WhitelistWords[0] = "mutated"

	require.Equal(t, []string{"dicto"}, store.Get().WhitelistWords)
	store.Flush()
}
