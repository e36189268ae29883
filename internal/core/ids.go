package core

import (
	"sync"

	"github.com/google/uuid"
)

// projectIDs hands out millisecond-timestamp project ids that never repeat
// within a process, even when two projects are created in the same millisecond.
type projectIDs struct {
	mu    sync.Mutex
	clock Clock
	last  int64
}

func newProjectIDs(clock Clock) *projectIDs {
	return &projectIDs{clock: clock}
}

// seed raises the floor so ids never collide with ids already stored.
func (g *projectIDs) seed(existing int64) {
	g.mu.Lock()
	if existing > g.last {
		g.last = existing
	}
	g.mu.Unlock()
}

func (g *projectIDs) next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.clock.Now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

func newAgencyID() string { return uuid.NewString() }

func newWBSItemID() string { return uuid.NewString() }
