package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coderoom/coderoom/internal/core"
	"github.com/coderoom/coderoom/internal/domain"
)

// graceTimers owns the per-connection disconnect timers. A transport
// closure schedules removal after the grace window; any renewed activity
// for the same connection id cancels it. At most one timer per
// connection exists at any instant: scheduling again replaces the old
// one. Cancellation and firing are mutually exclusive via the mutex —
// a fired timer that lost the race to a cancel aborts without effect.
type graceTimers struct {
	mu     sync.Mutex
	grace  time.Duration
	timers map[core.ConnID]*time.Timer
	expire func(sid core.ConnID, rooms []domain.RoomID)
}

func newGraceTimers(grace time.Duration, expire func(core.ConnID, []domain.RoomID)) *graceTimers {
	return &graceTimers{
		grace:  grace,
		timers: make(map[core.ConnID]*time.Timer),
		expire: expire,
	}
}

// Schedule starts (or restarts) the grace timer for sid, capturing the
// rooms it belonged to at closure time.
func (g *graceTimers) Schedule(sid core.ConnID, rooms []domain.RoomID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if old, ok := g.timers[sid]; ok {
		old.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(g.grace, func() {
		g.mu.Lock()
		current, ok := g.timers[sid]
		if !ok || current != t {
			// A cancel or a newer schedule won the race.
			g.mu.Unlock()
			return
		}
		delete(g.timers, sid)
		g.mu.Unlock()
		g.expire(sid, rooms)
	})
	g.timers[sid] = t
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Dur("grace", g.grace).Int("rooms", len(rooms)).Msg("disconnect grace started")
}

// Cancel stops any pending timer for sid. Returns whether one existed.
func (g *graceTimers) Cancel(sid core.ConnID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.timers[sid]
	if !ok {
		return false
	}
	t.Stop()
	delete(g.timers, sid)
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Msg("disconnect grace cancelled")
	return true
}

// Pending reports whether sid is currently in its grace window.
func (g *graceTimers) Pending(sid core.ConnID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.timers[sid]
	return ok
}
