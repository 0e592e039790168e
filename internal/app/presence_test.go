package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderoom/coderoom/internal/core"
	"github.com/coderoom/coderoom/internal/domain"
)

type expiryRecorder struct {
	mu    sync.Mutex
	fired []core.ConnID
	rooms [][]domain.RoomID
}

func (r *expiryRecorder) record(sid core.ConnID, rooms []domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, sid)
	r.rooms = append(r.rooms, rooms)
}

func (r *expiryRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func TestGraceTimers_Expire(t *testing.T) {
	rec := &expiryRecorder{}
	g := newGraceTimers(20*time.Millisecond, rec.record)

	g.Schedule("c1", []domain.RoomID{"r1", "r2"})
	require.True(t, g.Pending("c1"))

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, g.Pending("c1"))
	assert.Equal(t, []domain.RoomID{"r1", "r2"}, rec.rooms[0])
}

func TestGraceTimers_CancelPreventsExpiry(t *testing.T) {
	rec := &expiryRecorder{}
	g := newGraceTimers(20*time.Millisecond, rec.record)

	g.Schedule("c1", []domain.RoomID{"r1"})
	require.True(t, g.Cancel("c1"))

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, rec.count())
	assert.False(t, g.Pending("c1"))
}

func TestGraceTimers_CancelWithoutTimer(t *testing.T) {
	g := newGraceTimers(time.Minute, func(core.ConnID, []domain.RoomID) {})
	assert.False(t, g.Cancel("ghost"))
}

func TestGraceTimers_RescheduleReplaces(t *testing.T) {
	rec := &expiryRecorder{}
	g := newGraceTimers(30*time.Millisecond, rec.record)

	g.Schedule("c1", []domain.RoomID{"r1"})
	g.Schedule("c1", []domain.RoomID{"r1"})

	require.Eventually(t, func() bool { return rec.count() > 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	// One connection, one removal: the second schedule replaced the first.
	assert.Equal(t, 1, rec.count())
}
