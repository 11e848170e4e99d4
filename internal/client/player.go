// internal/client/player.go
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/loteria/internal/game"
	"github.com/jason-s-yu/loteria/internal/models"
	"github.com/jason-s-yu/loteria/internal/room"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Player plays a seat automatically: it keeps a board, marks called cards,
// claims the first completed line and, when hosting, paces the draws.
type Player struct {
	client *Client
	dealer *game.Dealer
	logger logrus.FieldLogger
	pace   bool

	mu      sync.Mutex
	board   []int
	marked  map[int]bool
	called  map[int]bool
	claimed bool
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithPacing makes a hosting player draw on the room's interval. Disable it
// when the server paces draws itself.
func WithPacing(pace bool) PlayerOption {
	return func(p *Player) { p.pace = pace }
}

// WithBoardDealer sets the source of the player's board.
func WithBoardDealer(d *game.Dealer) PlayerOption {
	return func(p *Player) { p.dealer = d }
}

// NewPlayer wraps a seated client.
func NewPlayer(c *Client, logger logrus.FieldLogger, opts ...PlayerOption) *Player {
	p := &Player{
		client: c,
		logger: logger,
		pace:   true,
		marked: make(map[int]bool),
		called: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dealer == nil {
		p.dealer = game.NewDealer(0)
	}
	return p
}

// Board is the player's 4x4 board, row-major, or nil before the deal.
func (p *Player) Board() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.board...)
}

// Mark toggles a board cell. Only cards that have been called can be marked.
func (p *Player) Mark(id int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.called[id] || !p.onBoard(id) {
		return false
	}
	p.marked[id] = !p.marked[id]
	return true
}

func (p *Player) onBoard(id int) bool {
	for _, b := range p.board {
		if b == id {
			return true
		}
	}
	return false
}

// Winning returns the first completed line among the marked cells.
func (p *Player) Winning() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.board == nil {
		return nil
	}
	return game.CheckPattern(p.board, p.marked)
}

// Observe folds a room update into the player's state: the board is dealt
// once the deck is, and every called card on the board is marked.
func (p *Player) Observe(rm *models.Room) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.board == nil && len(rm.Deck) > 0 {
		p.board = p.dealer.Board()
	}
	for _, c := range rm.CalledCards() {
		if p.called[c.ID] {
			continue
		}
		p.called[c.ID] = true
		if p.onBoard(c.ID) {
			p.marked[c.ID] = true
		}
	}
}

// Play follows the seated room until the round finishes or the room is
// deleted. It returns the final room, or nil if the room was deleted.
func (p *Player) Play(ctx context.Context) (*models.Room, error) {
	roomID, playerID := p.client.Seat()
	if roomID == "" {
		return nil, ErrNoSeat
	}
	log := p.logger.WithFields(logrus.Fields{"room": roomID, "player": playerID})

	updates := make(chan *models.Room, 16)
	var final *models.Room
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(updates)
		err := p.client.Follow(gctx, roomID, func(rm *models.Room) bool {
			select {
			case updates <- rm:
				return true
			case <-gctx.Done():
				return false
			}
		})
		// The play loop ending cancels the feed.
		if gctx.Err() != nil && ctx.Err() == nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		rm, err := p.loop(gctx, log, playerID, updates)
		final = rm
		if err == nil {
			return errRoundOver
		}
		return err
	})
	if err := g.Wait(); err != nil && !errors.Is(err, errRoundOver) {
		return final, err
	}
	return final, nil
}

// errRoundOver stops the feed once the play loop has its answer.
var errRoundOver = errors.New("round over")

func (p *Player) loop(ctx context.Context, log logrus.FieldLogger, playerID string, updates <-chan *models.Room) (*models.Room, error) {
	var (
		last    *models.Room
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = -1
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()

		case rm, ok := <-updates:
			if !ok {
				return last, nil
			}
			if rm == nil {
				log.Info("room was deleted")
				return nil, nil
			}
			last = rm
			p.Observe(rm)

			switch rm.Status {
			case models.StatusFinished:
				logFinish(log, rm)
				return rm, nil
			case models.StatusPlaying:
				if err := p.maybeClaim(ctx, log, rm, playerID); err != nil {
					return last, err
				}
				if p.pace && rm.HostID == playerID && rm.DeckIndex != pending {
					pending = rm.DeckIndex
					if timer != nil {
						timer.Stop()
					}
					timer = time.NewTimer(time.Duration(rm.DrawIntervalMs) * time.Millisecond)
					timerC = timer.C
				}
			}

		case <-timerC:
			timerC = nil
			_, err := p.client.DrawIfAt(ctx, pending)
			switch {
			case err == nil, errors.Is(err, room.ErrRoundNotActive):
			case errors.Is(err, room.ErrStoreUnavailable):
				// Try again on the next interval.
				log.WithError(err).Warn("draw failed")
				timer.Reset(time.Duration(last.DrawIntervalMs) * time.Millisecond)
				timerC = timer.C
			default:
				return last, err
			}
		}
	}
}

func (p *Player) maybeClaim(ctx context.Context, log logrus.FieldLogger, rm *models.Room, playerID string) error {
	p.mu.Lock()
	if p.claimed || rm.IsDisqualified(playerID) {
		p.mu.Unlock()
		return nil
	}
	var line []int
	if p.board != nil {
		line = game.CheckPattern(p.board, p.marked)
	}
	board := append([]int(nil), p.board...)
	if line != nil {
		p.claimed = true
	}
	p.mu.Unlock()
	if line == nil {
		return nil
	}

	res, err := p.client.Claim(ctx, line, board)
	switch {
	case errors.Is(err, room.ErrRoundNotActive):
		return nil
	case err != nil:
		return err
	}
	log.WithFields(logrus.Fields{"accepted": res.Accepted, "reason": res.Reason, "line": line}).Info("claimed bingo")
	return nil
}

func logFinish(log logrus.FieldLogger, rm *models.Room) {
	entry := log.WithField("reason", rm.EndReason())
	if rm.Winner != nil {
		entry = entry.WithField("winner", *rm.Winner)
	}
	entry.Info("round finished")
}
