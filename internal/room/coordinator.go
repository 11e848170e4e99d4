// internal/room/coordinator.go
package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/loteria/internal/game"
	"github.com/jason-s-yu/loteria/internal/models"
	"github.com/jason-s-yu/loteria/internal/store"
	"github.com/sirupsen/logrus"
)

// maxCodeAttempts bounds how many fresh codes CreateRoom tries before giving up.
const maxCodeAttempts = 10

// Hooks are invoked after a transition has been committed. They run on the
// caller's goroutine and must not block.
type Hooks struct {
	RoundStarted  func(room *models.Room)
	RoundFinished func(room *models.Room)
	RoomClosed    func(roomID string)
}

// Coordinator is the only writer of room state. Every intent is a single
// serializable transaction against the RoomStore.
type Coordinator struct {
	store   store.RoomStore
	dealer  *game.Dealer
	logger  logrus.FieldLogger
	retry   RetryPolicy
	now     func() time.Time
	newCode func() string
	hooks   Hooks
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithDealer(d *game.Dealer) Option         { return func(c *Coordinator) { c.dealer = d } }
func WithRetryPolicy(p RetryPolicy) Option     { return func(c *Coordinator) { c.retry = p } }
func WithClock(now func() time.Time) Option    { return func(c *Coordinator) { c.now = now } }
func WithCodeGenerator(f func() string) Option { return func(c *Coordinator) { c.newCode = f } }

// WithHooks adds post-commit hooks; hooks from repeated options are chained.
func WithHooks(h Hooks) Option {
	return func(c *Coordinator) { c.hooks = chainHooks(c.hooks, h) }
}

// NewCoordinator builds a coordinator over an open store. The coordinator does
// not own the store; the caller closes it.
func NewCoordinator(st store.RoomStore, logger logrus.FieldLogger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   st,
		dealer:  game.NewDealer(0),
		logger:  logger,
		retry:   DefaultRetryPolicy,
		now:     func() time.Time { return time.Now().UTC() },
		newCode: GenerateCode,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.MaxAttempts < 1 {
		c.retry.MaxAttempts = 1
	}
	return c
}

// ClaimResult is the answer to a bingo claim.
type ClaimResult struct {
	Accepted bool             `json:"accepted"`
	Reason   game.ClaimReason `json:"reason"`
	Room     *models.Room     `json:"room"`
}

// normalizeName trims a display name and caps it at MaxNameLength runes.
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	if utf8.RuneCountInString(name) > models.MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:models.MaxNameLength]))
	}
	return name, nil
}

// CreateRoom opens a waiting room with the caller as host. An empty playerID is
// replaced with a generated one.
func (c *Coordinator) CreateRoom(ctx context.Context, playerID, hostName string) (*models.Room, error) {
	name, err := normalizeName(hostName)
	if err != nil {
		return nil, err
	}
	if playerID == "" {
		playerID = uuid.NewString()
	}
	roomID := uuid.NewString()

	for i := 0; i < maxCodeAttempts; i++ {
		room := models.NewRoom(roomID, c.newCode(), models.Player{
			ID:       playerID,
			Name:     name,
			JoinedAt: c.now(),
		})
		err := c.withRetry(ctx, roomID, "create", func() error {
			return c.store.Create(ctx, room)
		})
		if errors.Is(err, store.ErrCodeTaken) {
			c.logger.WithFields(logrus.Fields{"room": roomID, "code": room.Code}).Debug("room code collision, regenerating")
			continue
		}
		if err != nil {
			return nil, err
		}
		c.logger.WithFields(logrus.Fields{"room": roomID, "code": room.Code, "player": playerID}).Info("room created")
		return room, nil
	}
	return nil, fmt.Errorf("create room: no free code after %d attempts: %w", maxCodeAttempts, ErrStoreUnavailable)
}

// ResolveCode maps a user-entered code to a room id.
func (c *Coordinator) ResolveCode(ctx context.Context, code string) (string, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return "", fmt.Errorf("code %q: %w", code, ErrRoomNotFound)
	}
	var roomID string
	err := c.withRetry(ctx, code, "resolve", func() error {
		var err error
		roomID, err = c.store.LookupCode(ctx, code)
		return err
	})
	return roomID, err
}

// Room reads the current state of a room.
func (c *Coordinator) Room(ctx context.Context, roomID string) (*models.Room, error) {
	var room *models.Room
	err := c.withRetry(ctx, roomID, "read", func() error {
		var err error
		room, err = c.store.Read(ctx, roomID)
		return err
	})
	return room, err
}

// Subscribe forwards the room's current state, then every committed state,
// and nil once the room is deleted.
func (c *Coordinator) Subscribe(ctx context.Context, roomID string, onChange func(*models.Room)) (func(), error) {
	var unsubscribe func()
	err := c.withRetry(ctx, roomID, "subscribe", func() error {
		var err error
		unsubscribe, err = c.store.Subscribe(ctx, roomID, onChange)
		return err
	})
	return unsubscribe, err
}

// JoinByCode seats a player in the waiting room with the given code.
func (c *Coordinator) JoinByCode(ctx context.Context, code, playerID, playerName string) (*models.Room, error) {
	roomID, err := c.ResolveCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.JoinByID(ctx, roomID, playerID, playerName)
}

// JoinByID seats a player in a waiting room. Joining a room the player is
// already seated in returns the room unchanged.
func (c *Coordinator) JoinByID(ctx context.Context, roomID, playerID, playerName string) (*models.Room, error) {
	name, err := normalizeName(playerName)
	if err != nil {
		return nil, err
	}
	if playerID == "" {
		playerID = uuid.NewString()
	}
	return c.update(ctx, roomID, playerID, "join", func(r *models.Room) (*models.Room, error) {
		if r.FindPlayer(playerID) >= 0 {
			return nil, errNoChange
		}
		if r.Status != models.StatusWaiting {
			return nil, ErrRoomNotJoinable
		}
		if len(r.Players) >= models.MaxPlayers {
			return nil, ErrRoomFull
		}
		r.Players = append(r.Players, models.Player{
			ID:       playerID,
			Name:     name,
			JoinedAt: c.now(),
		})
		return r, nil
	})
}

// SetReady records a player's readiness. It is a no-op outside the waiting phase.
func (c *Coordinator) SetReady(ctx context.Context, roomID, playerID string, ready bool) (*models.Room, error) {
	return c.update(ctx, roomID, playerID, "ready", func(r *models.Room) (*models.Room, error) {
		idx := r.FindPlayer(playerID)
		if idx < 0 {
			return nil, ErrPlayerNotFound
		}
		if r.Status != models.StatusWaiting || r.Players[idx].IsReady == ready {
			return nil, errNoChange
		}
		r.Players[idx].IsReady = ready
		return r, nil
	})
}

// ClampDrawInterval forces a requested interval into the allowed range.
func ClampDrawInterval(ms int) int {
	return min(max(ms, models.MinDrawIntervalMs), models.MaxDrawIntervalMs)
}

// SetDrawInterval changes the draw cadence. Out of range values are clamped.
func (c *Coordinator) SetDrawInterval(ctx context.Context, roomID, playerID string, requestedMs int) (*models.Room, error) {
	interval := ClampDrawInterval(requestedMs)
	return c.update(ctx, roomID, playerID, "interval", func(r *models.Room) (*models.Room, error) {
		if r.HostID != playerID {
			return nil, ErrNotHost
		}
		if r.DrawIntervalMs == interval {
			return nil, errNoChange
		}
		r.DrawIntervalMs = interval
		return r, nil
	})
}

// StartGame deals a fresh deck and shows its first card.
func (c *Coordinator) StartGame(ctx context.Context, roomID, playerID string) (*models.Room, error) {
	return c.update(ctx, roomID, playerID, "start", func(r *models.Room) (*models.Room, error) {
		if r.HostID != playerID {
			return nil, ErrNotHost
		}
		if r.Status != models.StatusWaiting || len(r.Players) < models.MinPlayers || !r.AllReady() {
			return nil, ErrNotReady
		}
		r.Deck = c.dealer.Deck()
		r.DeckIndex = 0
		first := r.Deck[0]
		r.CurrentCard = &first
		r.Status = models.StatusPlaying
		r.Winner = nil
		r.WinningPattern = nil
		r.FalseClaimedBy = nil
		r.Disqualified = nil
		return r, nil
	})
}

// DrawNext announces the next card, ending the round when the deck runs out.
// Disqualified hosts keep drawing for the remaining players.
func (c *Coordinator) DrawNext(ctx context.Context, roomID, playerID string) (*models.Room, error) {
	return c.drawNext(ctx, roomID, playerID, -1)
}

// DrawNextIfAt draws only if the room still shows the card at index, so a
// repeated or racing request cannot skip a card.
func (c *Coordinator) DrawNextIfAt(ctx context.Context, roomID, playerID string, index int) (*models.Room, error) {
	if index < 0 {
		return nil, fmt.Errorf("draw at index %d: %w", index, ErrRoundNotActive)
	}
	return c.drawNext(ctx, roomID, playerID, index)
}

func (c *Coordinator) drawNext(ctx context.Context, roomID, playerID string, expect int) (*models.Room, error) {
	return c.update(ctx, roomID, playerID, "draw", func(r *models.Room) (*models.Room, error) {
		if r.HostID != playerID {
			return nil, ErrNotHost
		}
		if r.Status != models.StatusPlaying {
			return nil, ErrRoundNotActive
		}
		if expect >= 0 && r.DeckIndex != expect {
			return nil, errNoChange
		}
		next := r.DeckIndex + 1
		if next >= len(r.Deck) {
			r.Status = models.StatusFinished
			r.CurrentCard = nil
			r.Winner = nil
			r.WinningPattern = nil
			return r, nil
		}
		r.DeckIndex = next
		card := r.Deck[next]
		r.CurrentCard = &card
		return r, nil
	})
}

// ClaimBingo adjudicates a claim. Rejections that do not disqualify leave the
// room untouched and report Accepted=false with a reason.
func (c *Coordinator) ClaimBingo(ctx context.Context, roomID, playerID string, claim game.Claim) (ClaimResult, error) {
	var outcome game.ClaimOutcome
	room, err := c.update(ctx, roomID, playerID, "claim", func(r *models.Room) (*models.Room, error) {
		if r.FindPlayer(playerID) < 0 {
			return nil, ErrPlayerNotFound
		}
		var err error
		outcome, err = game.Adjudicate(r, playerID, claim)
		if err != nil {
			return nil, err
		}
		if !outcome.Changed {
			return nil, errNoChange
		}
		return r, nil
	})
	if err != nil {
		return ClaimResult{}, err
	}

	fields := logrus.Fields{"room": roomID, "player": playerID, "cards": outcome.CardIDs, "reason": outcome.Reason}
	switch {
	case outcome.Accepted:
		c.logger.WithFields(fields).Info("claim accepted")
	case outcome.Changed:
		c.logger.WithFields(fields).Info("false claim, player disqualified")
	default:
		c.logger.WithFields(fields).Debug("claim rejected")
	}
	return ClaimResult{Accepted: outcome.Accepted, Reason: outcome.Reason, Room: room}, nil
}

// LeaveRoom removes a player. The room is deleted when the host leaves or the
// last player leaves; deleted reports whether that happened.
func (c *Coordinator) LeaveRoom(ctx context.Context, roomID, playerID string) (deleted bool, err error) {
	room, err := c.update(ctx, roomID, playerID, "leave", func(r *models.Room) (*models.Room, error) {
		idx := r.FindPlayer(playerID)
		if idx < 0 {
			return nil, ErrPlayerNotFound
		}
		if r.HostID == playerID || len(r.Players) == 1 {
			return nil, nil
		}
		r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
		return r, nil
	})
	if err != nil {
		return false, err
	}
	return room == nil, nil
}

// update runs fn as one serializable transaction with retries, validates the
// result, and fires hooks for the committed transition.
func (c *Coordinator) update(ctx context.Context, roomID, playerID, op string, fn store.UpdateFunc) (*models.Room, error) {
	var (
		before    models.RoomStatus
		unchanged *models.Room
		committed *models.Room
	)
	err := c.withRetry(ctx, roomID, op, func() error {
		var err error
		committed, err = c.store.Update(ctx, roomID, func(r *models.Room) (*models.Room, error) {
			before = r.Status
			unchanged = r.Clone()
			next, err := fn(r)
			if err != nil || next == nil {
				return next, err
			}
			if verr := next.Validate(); verr != nil {
				return nil, fmt.Errorf("%s: %w: %w", op, errInvariant, verr)
			}
			return next, nil
		})
		return err
	})

	fields := logrus.Fields{"room": roomID, "player": playerID, "op": op}
	switch {
	case errors.Is(err, errNoChange):
		c.logger.WithFields(fields).Debug("intent left room unchanged")
		return unchanged, nil
	case errors.Is(err, errInvariant):
		c.logger.WithFields(fields).WithError(err).Error("refused to commit inconsistent room")
		return nil, err
	case err != nil:
		c.logger.WithFields(fields).WithError(err).Debug("intent rejected")
		return nil, err
	}

	if committed == nil {
		c.logger.WithFields(fields).Info("room closed")
		if c.hooks.RoomClosed != nil {
			c.hooks.RoomClosed(roomID)
		}
		return nil, nil
	}

	fields["status"] = committed.Status
	fields["deckIndex"] = committed.DeckIndex
	c.logger.WithFields(fields).Info("room updated")
	if before == models.StatusWaiting && committed.Status == models.StatusPlaying && c.hooks.RoundStarted != nil {
		c.hooks.RoundStarted(committed.Clone())
	}
	if before == models.StatusPlaying && committed.Status == models.StatusFinished && c.hooks.RoundFinished != nil {
		c.hooks.RoundFinished(committed.Clone())
	}
	return committed, nil
}

func chainHooks(a, b Hooks) Hooks {
	return Hooks{
		RoundStarted:  chainRoom(a.RoundStarted, b.RoundStarted),
		RoundFinished: chainRoom(a.RoundFinished, b.RoundFinished),
		RoomClosed: func(roomID string) {
			if a.RoomClosed != nil {
				a.RoomClosed(roomID)
			}
			if b.RoomClosed != nil {
				b.RoomClosed(roomID)
			}
		},
	}
}

func chainRoom(a, b func(*models.Room)) func(*models.Room) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(r *models.Room) {
		a(r)
		b(r)
	}
}
