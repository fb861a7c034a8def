package dispatch

import (
	"sort"
	"sync"
	"time"
)

// CallEntry is one tool invocation in the bounded log.
type CallEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Name        string    `json:"name"`
	ArgsSummary string    `json:"args_summary"`
	DurationMS  int64     `json:"duration_ms"`
	Outcome     string    `json:"outcome"`
}

// CallLog is a fixed-capacity ring of recent tool calls plus per-tool
// counters. A lightweight mutex suffices at the dashboard's refresh
// cadence.
type CallLog struct {
	mu       sync.Mutex
	entries  []CallEntry
	next     int
	full     bool
	counters map[string]int
}

// NewCallLog creates a ring holding the most recent capacity entries.
func NewCallLog(capacity int) *CallLog {
	if capacity <= 0 {
		capacity = 200
	}
	return &CallLog{
		entries:  make([]CallEntry, capacity),
		counters: map[string]int{},
	}
}

// Record appends one entry, overwriting the oldest when full, and bumps
// the tool's counter.
func (l *CallLog) Record(e CallEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = e
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
	l.counters[e.Name]++
}

// Last returns up to n entries, newest first.
func (l *CallLog) Last(n int) []CallEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := l.next
	if l.full {
		size = len(l.entries)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]CallEntry, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.next - 1 - i + len(l.entries)) % len(l.entries)
		out = append(out, l.entries[idx])
	}
	return out
}

// ToolCount pairs a tool name with its invocation count.
type ToolCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Top returns the n most-invoked tools, descending, ties by name.
func (l *CallLog) Top(n int) []ToolCount {
	l.mu.Lock()
	counts := make([]ToolCount, 0, len(l.counters))
	for name, count := range l.counters {
		counts = append(counts, ToolCount{Name: name, Count: count})
	}
	l.mu.Unlock()

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Name < counts[j].Name
	})
	if n > 0 && n < len(counts) {
		counts = counts[:n]
	}
	return counts
}
