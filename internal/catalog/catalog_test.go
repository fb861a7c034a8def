package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livebridge/livebridge/internal/daw"
	"github.com/livebridge/livebridge/internal/readiness"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Wavetable", "wavetable"},
		{"Wave-Table", "wavetable"},
		{"EQ Eight", "eqeight"},
		{"808 Kick!", "808kick"},
		{"  spaces  ", "spaces"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), tt.in)
	}
}

func TestLooksLikeURI(t *testing.T) {
	assert.True(t, LooksLikeURI("query:Synths#Wavetable"))
	assert.True(t, LooksLikeURI("device:audio_effects/Reverb"))
	assert.False(t, LooksLikeURI("Wavetable"))
	assert.False(t, LooksLikeURI("My query: notes"))
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return NewCache(t.TempDir(), readiness.NewEvent(), zerolog.Nop())
}

func TestCommitBuildsConsistentIndices(t *testing.T) {
	c := newTestCache(t)
	items := []Item{
		{URI: "query:Synths#Wavetable", Name: "Wavetable", Category: "instruments", IsLoadable: true, Depth: 1},
		{URI: "query:Synths#Operator", Name: "Operator", Category: "instruments", IsLoadable: true, Depth: 1},
		{URI: "query:FX#Reverb", Name: "Reverb", Category: "audio_effects", IsLoadable: true, Depth: 1},
	}
	c.commit(items)

	require.Equal(t, 3, c.Size())
	assert.True(t, c.Populated())

	// Every flat entry with a unique normalized name resolves to its own
	// URI, and its category index contains it.
	for _, it := range items {
		assert.Equal(t, it.URI, c.Resolve(it.Name, 0), it.Name)
		found := false
		for _, got := range c.ListCategory(it.Category) {
			if got.URI == it.URI {
				found = true
			}
		}
		assert.True(t, found, "%s missing from category %s", it.Name, it.Category)
	}
}

func TestResolvePriorityRules(t *testing.T) {
	c := newTestCache(t)

	// Same normalized name at different depths: shallower wins.
	c.commit([]Item{
		{URI: "deep", Name: "Chorus", Category: "audio_effects", Depth: 3},
		{URI: "shallow", Name: "Chorus", Category: "audio_effects", Depth: 1},
	})
	assert.Equal(t, "shallow", c.Resolve("chorus", 0))

	// Equal depth: category order instruments < drums < ... wins.
	c.commit([]Item{
		{URI: "fx", Name: "Impulse", Category: "audio_effects", Depth: 2},
		{URI: "inst", Name: "Impulse", Category: "instruments", Depth: 2},
	})
	assert.Equal(t, "inst", c.Resolve("impulse", 0))

	// Full tie: first encountered wins.
	c.commit([]Item{
		{URI: "first", Name: "Saturator", Category: "audio_effects", Depth: 2},
		{URI: "second", Name: "Saturator", Category: "audio_effects", Depth: 2},
	})
	assert.Equal(t, "first", c.Resolve("saturator", 0))
}

func TestResolvePassThrough(t *testing.T) {
	c := newTestCache(t)

	// URIs bypass the cache entirely, even cold.
	assert.Equal(t, "query:Synths#X", c.Resolve("query:Synths#X", 0))

	// Cold cache: wait up to the timeout, then pass through.
	start := time.Now()
	assert.Equal(t, "Wavetable", c.Resolve("Wavetable", 50*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	// Populated but unknown name: pass through without waiting.
	c.commit([]Item{{URI: "u", Name: "Known", Category: "sounds", Depth: 1}})
	assert.Equal(t, "Unknown Device", c.Resolve("Unknown Device", time.Second))
}

func TestSearch(t *testing.T) {
	c := newTestCache(t)
	c.commit([]Item{
		{URI: "1", Name: "Wavetable", Category: "instruments", Depth: 1},
		{URI: "2", Name: "Wavetable Pad", Category: "sounds", Depth: 2},
		{URI: "3", Name: "Reverb", Category: "audio_effects", Depth: 1},
	})

	assert.Len(t, c.Search("wavetable", "", 10), 2)
	assert.Len(t, c.Search("wavetable", "sounds", 10), 1)
	assert.Len(t, c.Search("wavetable", "", 1), 1)
	assert.Empty(t, c.Search("granulator", "", 10))
}

// scriptedRunner answers browse_path commands from a path→children map.
type scriptedRunner struct {
	children map[string][]browseEntry
	calls    int
}

func (r *scriptedRunner) SendCommand(ctx context.Context, cmd daw.Command, opts ...daw.SendOption) (*daw.Response, error) {
	r.calls++
	path, _ := cmd.Params["path"].(string)
	raw, err := json.Marshal(map[string]any{"items": r.children[path]})
	if err != nil {
		return nil, err
	}
	return &daw.Response{Status: "success", Result: raw}, nil
}

func TestPopulateWalksBreadthFirst(t *testing.T) {
	c := newTestCache(t)
	runner := &scriptedRunner{children: map[string][]browseEntry{
		"instruments": {
			{Name: "Wavetable", URI: "query:Synths#Wavetable", IsLoadable: true},
			{Name: "Synths", URI: "query:Synths", IsFolder: true},
		},
		"instruments/Synths": {
			{Name: "Operator", URI: "query:Synths#Operator", IsLoadable: true},
		},
	}}

	require.NoError(t, c.Populate(context.Background(), runner))
	assert.True(t, c.Populated())
	assert.Equal(t, 3, c.Size())
	assert.Equal(t, "query:Synths#Operator", c.Resolve("operator", 0))

	counts := c.CategoryCounts()
	assert.Equal(t, 3, counts["instruments"])
}

func TestPopulateTruncatesAtItemCap(t *testing.T) {
	entries := make([]browseEntry, MaxItems+500)
	for i := range entries {
		entries[i] = browseEntry{Name: fmt.Sprintf("Item %d", i), URI: fmt.Sprintf("u%d", i), IsLoadable: true}
	}
	runner := &scriptedRunner{children: map[string][]browseEntry{"instruments": entries}}

	c := newTestCache(t)
	require.NoError(t, c.Populate(context.Background(), runner))
	assert.Equal(t, MaxItems, c.Size())
	// The by-name map only covers the seen subset.
	assert.Equal(t, "u0", c.Resolve("item 0", 0))
}

func TestDiskRoundTrip(t *testing.T) {
	dir := t.TempDir()
	items := []Item{
		{URI: "query:Synths#Wavetable", Name: "Wavetable", Category: "instruments", IsLoadable: true, Depth: 1, Path: []string{"instruments", "Wavetable"}},
		{URI: "query:FX#Reverb", Name: "Reverb", Category: "audio_effects", IsLoadable: true, Depth: 1, Path: []string{"audio_effects", "Reverb"}},
	}

	saved := NewCache(dir, readiness.NewEvent(), zerolog.Nop())
	saved.commit(items)
	require.NoError(t, saved.saveToDisk())

	restored := NewCache(dir, readiness.NewEvent(), zerolog.Nop())
	require.True(t, restored.LoadFromDisk())
	assert.Equal(t, 2, restored.Size())
	assert.True(t, restored.Populated())
	assert.Equal(t, "query:Synths#Wavetable", restored.Resolve("wavetable", 0))
}

func TestLoadFromDiskIgnoresMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, readiness.NewEvent(), zerolog.Nop())
	assert.False(t, c.LoadFromDisk(), "no file yet")
	assert.False(t, c.Populated())

	require.NoError(t, os.WriteFile(filepath.Join(dir, diskFileName), []byte("not gzip"), 0o644))
	assert.False(t, c.LoadFromDisk(), "corrupt file")
	assert.False(t, c.Populated())
}
