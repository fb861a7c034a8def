package catalog

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/livebridge/livebridge/internal/daw"
	"github.com/livebridge/livebridge/internal/readiness"
)

const (
	// MaxDepth caps the browser walk below the category roots.
	MaxDepth = 4
	// MaxItems truncates a populate that finds more than this many entries.
	MaxItems = 5000
)

// CommandRunner issues commands through the pipeline. Satisfied by
// *daw.Pipeline.
type CommandRunner interface {
	SendCommand(ctx context.Context, cmd daw.Command, opts ...daw.SendOption) (*daw.Response, error)
}

// Cache holds the three catalog indices under one mutex. The indices are
// rebuilt together from a single flat list and swapped atomically, so
// readers see either the old complete set or the new one, never a mix.
type Cache struct {
	log       zerolog.Logger
	dir       string
	populated *readiness.Event

	mu          sync.Mutex
	items       []Item
	byCategory  map[string][]Item
	byName      map[string]string
	populating  bool
	refreshedAt time.Time
}

// NewCache creates an empty (Cold) cache persisting under dir. populated
// is the process-wide catalog-populated readiness event.
func NewCache(dir string, populated *readiness.Event, log zerolog.Logger) *Cache {
	return &Cache{
		log:        log.With().Str("component", "catalog").Logger(),
		dir:        dir,
		populated:  populated,
		byCategory: map[string][]Item{},
		byName:     map[string]string{},
	}
}

// commit swaps in a freshly built index set.
func (c *Cache) commit(items []Item) {
	byCategory := make(map[string][]Item)
	byName := make(map[string]string)
	bestFor := make(map[string]Item)

	for _, it := range items {
		byCategory[it.Category] = append(byCategory[it.Category], it)

		key := NormalizeName(it.Name)
		if key == "" {
			continue
		}
		prev, seen := bestFor[key]
		if !seen || betterResolution(it, prev) {
			bestFor[key] = it
			byName[key] = it.URI
		}
	}

	c.mu.Lock()
	c.items = items
	c.byCategory = byCategory
	c.byName = byName
	c.refreshedAt = time.Now()
	c.mu.Unlock()

	if len(items) > 0 {
		c.populated.Set()
	}
}

// betterResolution implements the resolver priority: shallower depth
// first, then category order, then first encountered.
func betterResolution(candidate, incumbent Item) bool {
	if candidate.Depth != incumbent.Depth {
		return candidate.Depth < incumbent.Depth
	}
	return rankOf(candidate.Category) < rankOf(incumbent.Category)
}

// Size reports the flat list length.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Populated reports whether the readiness event has fired.
func (c *Cache) Populated() bool { return c.populated.IsSet() }

// RefreshedAt reports when indices were last committed.
func (c *Cache) RefreshedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshedAt
}

// Search scans the flat list for items whose name contains query
// (case-insensitive), optionally restricted to a category.
func (c *Cache) Search(query, category string, limit int) []Item {
	if limit <= 0 {
		limit = 25
	}
	needle := strings.ToLower(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	source := c.items
	if category != "" {
		source = c.byCategory[category]
	}
	var out []Item
	for _, it := range source {
		if strings.Contains(strings.ToLower(it.Name), needle) {
			out = append(out, it)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// ListCategory returns a copy of one category's items.
func (c *Cache) ListCategory(category string) []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.byCategory[category]
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Resolve maps a human device name to its catalog URI. URIs pass through
// unchanged. A cold cache is waited on up to timeout; on expiry the input
// passes through with a warning so the DAW gets to reject it itself.
func (c *Cache) Resolve(nameOrURI string, timeout time.Duration) string {
	if LooksLikeURI(nameOrURI) {
		return nameOrURI
	}
	if !c.populated.WaitTimeout(timeout) {
		c.log.Warn().Str("name", nameOrURI).Dur("waited", timeout).
			Msg("catalog not populated, passing name through")
		return nameOrURI
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if uri, ok := c.byName[NormalizeName(nameOrURI)]; ok {
		return uri
	}
	return nameOrURI
}

// browseEntry is one child in a browse_path response.
type browseEntry struct {
	Name       string `json:"name"`
	URI        string `json:"uri"`
	IsLoadable bool   `json:"is_loadable"`
	IsFolder   bool   `json:"is_folder"`
}

// Populate walks the DAW browser breadth-first through runner and commits
// the result. At most one populate runs at a time: a request during an
// in-flight one is a logged no-op.
func (c *Cache) Populate(ctx context.Context, runner CommandRunner) error {
	c.mu.Lock()
	if c.populating {
		c.mu.Unlock()
		c.log.Info().Msg("populate already in flight, skipping")
		return nil
	}
	c.populating = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.populating = false
		c.mu.Unlock()
	}()

	start := time.Now()
	var items []Item
	truncated := false

	type frame struct {
		category string
		path     []string
	}
	queue := make([]frame, 0, len(Categories))
	for _, cat := range Categories {
		queue = append(queue, frame{category: cat, path: []string{cat}})
	}

walk:
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]

		entries, err := browse(ctx, runner, f.path)
		if err != nil {
			c.log.Warn().Err(err).Strs("path", f.path).Msg("browse failed, skipping subtree")
			continue
		}
		depth := len(f.path) - 1
		for _, e := range entries {
			if len(items) >= MaxItems {
				truncated = true
				break walk
			}
			path := append(append([]string{}, f.path...), e.Name)
			items = append(items, Item{
				URI:        e.URI,
				Name:       e.Name,
				Category:   f.category,
				IsLoadable: e.IsLoadable,
				Depth:      depth + 1,
				Path:       path,
			})
			if e.IsFolder && depth+1 < MaxDepth {
				queue = append(queue, frame{category: f.category, path: path})
			}
		}
	}

	if truncated {
		c.log.Warn().Int("cap", MaxItems).Msg("catalog truncated at item cap")
	}
	if len(items) == 0 {
		c.log.Warn().Msg("populate found no items, keeping previous indices")
		return nil
	}

	c.commit(items)
	if err := c.saveToDisk(); err != nil {
		c.log.Warn().Err(err).Msg("persisting catalog failed")
	}
	c.log.Info().Int("items", len(items)).Dur("elapsed", time.Since(start)).Msg("catalog populated")
	return nil
}

// browse lists the children of one browser path over the pipeline.
func browse(ctx context.Context, runner CommandRunner, path []string) ([]browseEntry, error) {
	resp, err := runner.SendCommand(ctx, daw.Command{
		Type:   "browse_path",
		Params: map[string]any{"path": strings.Join(path, "/")},
	})
	if err != nil {
		return nil, err
	}
	var result struct {
		Items []browseEntry `json:"items"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// CategoryCounts reports how many items each category holds.
func (c *Cache) CategoryCounts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.byCategory))
	for cat, items := range c.byCategory {
		out[cat] = len(items)
	}
	return out
}

// Names returns the normalized names currently resolvable, sorted.
func (c *Cache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.byName))
	for name := range c.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
