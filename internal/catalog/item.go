// Package catalog caches the DAW's browser tree: a flat item list, a
// by-category index, and a normalized name→URI resolver, persisted to a
// gzip-compressed file and populated by walking the DAW over the command
// pipeline.
package catalog

import "strings"

// Item is one loadable (or traversable) entry in the DAW browser.
type Item struct {
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	IsLoadable bool     `json:"is_loadable"`
	Depth      int      `json:"depth"`
	Path       []string `json:"path"`
}

// Categories, in resolver priority order: when two items share a
// normalized name at equal depth, the earlier category wins.
var Categories = []string{"instruments", "drums", "sounds", "audio_effects", "midi_effects"}

var categoryRank = func() map[string]int {
	m := make(map[string]int, len(Categories))
	for i, c := range Categories {
		m[c] = i
	}
	return m
}()

func rankOf(category string) int {
	if r, ok := categoryRank[category]; ok {
		return r
	}
	return len(Categories)
}

// NormalizeName lower-cases and strips everything but letters and digits,
// so "Wavetable", "wavetable" and "Wave-Table" all resolve alike.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// uriSchemes are the prefixes that mark an input as already being a URI;
// the resolver passes those through untouched.
var uriSchemes = []string{"query:", "device:", "sample:", "userlibrary:", "plugin:", "browser:"}

// LooksLikeURI reports whether s is a catalog URI rather than a human name.
func LooksLikeURI(s string) bool {
	for _, scheme := range uriSchemes {
		if strings.HasPrefix(s, scheme) {
			return true
		}
	}
	return false
}
