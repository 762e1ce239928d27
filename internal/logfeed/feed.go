// v0
// internal/logfeed/feed.go
package logfeed

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Defaults for the logs page feed.
const (
	DefaultCapacity = 50
	DefaultInterval = 10 * time.Second
	DefaultChance   = 0.3
)

// FeedConfig sizes the feed and its refresh loop.
type FeedConfig struct {
	Capacity int
	Interval time.Duration
	Chance   float64
}

// DefaultFeedConfig keeps 50 entries and adds one every 10s with 30% odds.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{Capacity: DefaultCapacity, Interval: DefaultInterval, Chance: DefaultChance}
}

// Observer is told about the category mix after every change.
type Observer interface {
	LogFeedChanged(counts map[Category]int)
}

// Feed holds the newest Capacity entries, newest first.
type Feed struct {
	gen *Generator
	cfg FeedConfig
	log *slog.Logger
	obs Observer

	mu      sync.RWMutex
	entries []Entry
}

// NewFeed seeds a feed with Capacity generated entries.
func NewFeed(gen *Generator, cfg FeedConfig, log *slog.Logger, obs Observer) *Feed {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	f := &Feed{gen: gen, cfg: cfg, log: log, obs: obs}
	f.Refresh()
	return f
}

// Refresh discards the current entries and reseeds the feed.
func (f *Feed) Refresh() {
	fresh := f.gen.Initial(f.cfg.Capacity)
	f.mu.Lock()
	f.entries = fresh
	counts := f.countsLocked()
	f.mu.Unlock()
	f.log.Info("log_feed_refreshed", slog.Int("entries", len(fresh)))
	f.report(counts)
}

// Push prepends e and evicts the oldest entry beyond Capacity.
func (f *Feed) Push(e Entry) {
	f.mu.Lock()
	f.entries = append([]Entry{e}, f.entries...)
	if len(f.entries) > f.cfg.Capacity {
		f.entries = f.entries[:f.cfg.Capacity]
	}
	counts := f.countsLocked()
	f.mu.Unlock()
	f.log.Debug("log_entry_added", slog.String("type", string(e.Type)), slog.String("message", e.Message))
	f.report(counts)
}

// Tick adds a fresh entry with probability Chance. It reports whether one was added.
func (f *Feed) Tick() bool {
	if !f.gen.chance(f.cfg.Chance) {
		return false
	}
	f.Push(f.gen.Next())
	return true
}

// Run ticks every Interval until ctx is done.
func (f *Feed) Run(ctx context.Context) {
	t := time.NewTicker(f.cfg.Interval)
	defer t.Stop()
	f.log.Info("log_feed_started", slog.Duration("interval", f.cfg.Interval), slog.Float64("chance", f.cfg.Chance))
	for {
		select {
		case <-ctx.Done():
			f.log.Info("log_feed_stopped")
			return
		case <-t.C:
			f.Tick()
		}
	}
}

// Entries returns a copy of the feed. An empty category returns everything.
func (f *Feed) Entries(cat Category) []Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Entry, 0, len(f.entries))
	for _, e := range f.entries {
		if cat == "" || e.Type == cat {
			out = append(out, e)
		}
	}
	return out
}

// Counts returns the number of entries per category. Every category is present.
func (f *Feed) Counts() map[Category]int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.countsLocked()
}

func (f *Feed) countsLocked() map[Category]int {
	counts := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		counts[c] = 0
	}
	for _, e := range f.entries {
		counts[e.Type]++
	}
	return counts
}

func (f *Feed) report(counts map[Category]int) {
	if f.obs != nil {
		f.obs.LogFeedChanged(counts)
	}
}
