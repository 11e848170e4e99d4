// internal/room/pacer_test.go
package room

import (
	"context"
	"testing"
	"time"

	"github.com/jason-s-yu/loteria/internal/models"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPacer(t *testing.T, c *Coordinator) *Pacer {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	p := NewPacer(c, logger)
	p.unit = 10 * time.Microsecond
	t.Cleanup(p.Close)
	return p
}

func TestPacerDrawsUntilExhausted(t *testing.T) {
	c, _ := newTestCoordinator(t)
	p := newTestPacer(t, c)
	ctx := context.Background()

	room := startedRoom(t, c, 2)
	require.Eventually(t, func() bool {
		r, err := c.Room(ctx, room.ID)
		return err == nil && r.Status == models.StatusFinished
	}, 5*time.Second, 10*time.Millisecond)

	final, err := c.Room(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeckSize-1, final.DeckIndex)
	assert.Equal(t, models.EndReasonDeckExhausted, final.EndReason())
	assert.Eventually(t, func() bool { return !p.Running(room.ID) }, time.Second, 5*time.Millisecond)
}

func TestPacerStopsOnClaim(t *testing.T) {
	c, _ := newTestCoordinator(t)
	p := newTestPacer(t, c)
	p.unit = time.Millisecond
	ctx := context.Background()

	room := setupRoom(t, c, 2)
	_, err := c.SetDrawInterval(ctx, room.ID, "p0", models.MaxDrawIntervalMs)
	require.NoError(t, err)
	room, err = c.StartGame(ctx, room.ID, "p0")
	require.NoError(t, err)
	assert.True(t, p.Running(room.ID))

	room = drawTo(t, c, room, 3)
	res, err := c.ClaimBingo(ctx, room.ID, "p1", newCalledClaim(room))
	require.NoError(t, err)
	require.True(t, res.Accepted)
	assert.False(t, p.Running(room.ID))
}

func TestPacerStopsOnDelete(t *testing.T) {
	c, _ := newTestCoordinator(t)
	p := newTestPacer(t, c)
	p.unit = time.Millisecond
	ctx := context.Background()

	room := startedRoom(t, c, 2)
	assert.True(t, p.Running(room.ID))
	deleted, err := c.LeaveRoom(ctx, room.ID, "p0")
	require.NoError(t, err)
	require.True(t, deleted)
	assert.False(t, p.Running(room.ID))
}

func TestPacerStartIsDeduplicated(t *testing.T) {
	c, _ := newTestCoordinator(t)
	p := newTestPacer(t, c)
	p.unit = time.Millisecond

	room := startedRoom(t, c, 2)
	p.Start(room)
	p.Start(room)
	p.mu.Lock()
	assert.Len(t, p.running, 1)
	p.mu.Unlock()

	p.Close()
	assert.False(t, p.Running(room.ID))
	p.Start(room)
	assert.False(t, p.Running(room.ID), "closed pacer does not start")
}
