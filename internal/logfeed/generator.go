// v0
// internal/logfeed/generator.go
package logfeed

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Window is how far back a generated timestamp may fall.
const Window = 24 * time.Hour

// Entry is one line of the activity log.
type Entry struct {
	ID        string    `json:"id"`
	Type      Category  `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Generator draws random entries from a catalog. It is safe for concurrent use.
type Generator struct {
	catalog Catalog
	cats    []Category
	now     func() time.Time
	newID   func() string

	mu  sync.Mutex
	rng *rand.Rand
}

// GeneratorOption customises a Generator.
type GeneratorOption func(*Generator)

// WithRand seeds the generator with a fixed source.
func WithRand(r *rand.Rand) GeneratorOption {
	return func(g *Generator) { g.rng = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// WithIDs replaces the uuid id source.
func WithIDs(gen func() string) GeneratorOption {
	return func(g *Generator) { g.newID = gen }
}

// NewGenerator builds a generator over catalog. A nil or invalid catalog
// falls back to DefaultCatalog.
func NewGenerator(catalog Catalog, opts ...GeneratorOption) *Generator {
	if catalog == nil || catalog.Validate() != nil {
		catalog = DefaultCatalog()
	}
	g := &Generator{
		catalog: catalog,
		cats:    catalog.categories(),
		now:     time.Now,
		newID:   uuid.NewString,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns a fresh entry: uniform category, uniform message within it,
// timestamp uniform within the last 24 hours.
func (g *Generator) Next() Entry {
	g.mu.Lock()
	cat := g.cats[g.rng.Intn(len(g.cats))]
	msgs := g.catalog[cat]
	msg := msgs[g.rng.Intn(len(msgs))]
	back := time.Duration(g.rng.Float64() * float64(Window))
	g.mu.Unlock()

	return Entry{
		ID:        g.newID(),
		Type:      cat,
		Message:   msg,
		Timestamp: g.now().Add(-back),
	}
}

// Initial returns n entries, newest first.
func (g *Generator) Initial(n int) []Entry {
	if n <= 0 {
		return []Entry{}
	}
	out := make([]Entry, n)
	for i := range out {
		out[i] = g.Next()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// chance reports true with probability p.
func (g *Generator) chance(p float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < p
}
