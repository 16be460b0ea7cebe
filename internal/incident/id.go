package incident

import (
	"sync"
	"time"
)

const idLayout = "20060102150405"

// IDGenerator issues "INC" + YYYYMMDDHHMMSS ids. Ids are strictly
// increasing: a second request within the same second gets the next
// second's timestamp.
type IDGenerator struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewIDGenerator returns a generator driven by the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// Next returns a fresh incident id.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.now().UTC().Truncate(time.Second)
	if !t.After(g.last) {
		t = g.last.Add(time.Second)
	}
	g.last = t
	return "INC" + t.Format(idLayout)
}

// Observe makes sure future ids sort after id. It's used at startup with
// the newest stored id so a restart within the same second can't collide.
func (g *IDGenerator) Observe(id string) {
	if len(id) <= 3 {
		return
	}
	t, err := time.ParseInLocation(idLayout, id[3:], time.UTC)
	if err != nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if t.After(g.last) {
		g.last = t
	}
}
