// internal/room/pacer.go
package room

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/loteria/internal/models"
	"github.com/sirupsen/logrus"
)

// Pacer draws cards on behalf of the host while a round is playing, waiting the
// room's drawIntervalMs between draws. It is only used when the server owns
// pacing; otherwise the host's client sends draw intents itself.
type Pacer struct {
	coord  *Coordinator
	logger logrus.FieldLogger
	unit   time.Duration // length of one interval millisecond

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewPacer attaches a pacer to the coordinator's round hooks. Call it before
// the coordinator starts serving intents.
func NewPacer(coord *Coordinator, logger logrus.FieldLogger) *Pacer {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pacer{
		coord:   coord,
		logger:  logger,
		unit:    time.Millisecond,
		ctx:     ctx,
		cancel:  cancel,
		running: make(map[string]context.CancelFunc),
	}
	coord.hooks = chainHooks(coord.hooks, Hooks{
		RoundStarted:  p.Start,
		RoundFinished: func(r *models.Room) { p.Stop(r.ID) },
		RoomClosed:    p.Stop,
	})
	return p
}

// Start begins pacing a playing room. It is a no-op if the room is already paced.
func (p *Pacer) Start(room *models.Room) {
	if room == nil || room.Status != models.StatusPlaying {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx.Err() != nil {
		return
	}
	if _, ok := p.running[room.ID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(p.ctx)
	p.running[room.ID] = cancel
	p.wg.Add(1)
	go p.run(ctx, room.ID, room.DeckIndex, room.DrawIntervalMs)
}

// Stop cancels pacing for a room.
func (p *Pacer) Stop(roomID string) {
	p.mu.Lock()
	cancel, ok := p.running[roomID]
	delete(p.running, roomID)
	p.mu.Unlock()
	if ok {
		cancel()
	}
}

// Running reports whether the room is currently paced.
func (p *Pacer) Running(roomID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.running[roomID]
	return ok
}

// Close stops every paced room and waits for the loops to exit.
func (p *Pacer) Close() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pacer) run(ctx context.Context, roomID string, index, intervalMs int) {
	defer p.wg.Done()
	defer p.Stop(roomID)
	log := p.logger.WithField("room", roomID)
	log.Debug("pacer started")

	for {
		timer := time.NewTimer(time.Duration(intervalMs) * p.unit)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Debug("pacer stopped")
			return
		case <-timer.C:
		}

		current, err := p.coord.Room(ctx, roomID)
		if err != nil {
			if !errors.Is(err, ErrRoomNotFound) && ctx.Err() == nil {
				log.WithError(err).Warn("pacer could not read room")
			}
			return
		}
		if current.Status != models.StatusPlaying {
			return
		}
		// Interval changes apply from the next tick.
		intervalMs = current.DrawIntervalMs
		if current.DeckIndex != index {
			// Someone else drew in the meantime; follow them.
			index = current.DeckIndex
			continue
		}

		next, err := p.coord.DrawNextIfAt(ctx, roomID, current.HostID, index)
		switch {
		case err == nil:
		case errors.Is(err, ErrStoreUnavailable):
			log.WithError(err).Warn("pacer draw failed, retrying next tick")
			continue
		default:
			if ctx.Err() == nil {
				log.WithError(err).Debug("pacer draw refused")
			}
			return
		}
		if next == nil || next.Status != models.StatusPlaying {
			return
		}
		index = next.DeckIndex
	}
}
