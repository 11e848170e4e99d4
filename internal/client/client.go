// internal/client/client.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jason-s-yu/loteria/internal/game"
	"github.com/jason-s-yu/loteria/internal/models"
	"github.com/jason-s-yu/loteria/internal/room"
)

// ErrNoSeat is returned by intents that need a seat before create or join.
var ErrNoSeat = errors.New("client has no seat")

// APIError is a non-2xx response from the server. It unwraps to the matching
// room sentinel, so errors.Is(err, room.ErrRoomFull) works across the wire.
type APIError struct {
	Status  int
	Kind    room.Kind
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return room.ErrorFor(e.Kind)
}

// Client drives one seat through the HTTP API. The seat token from the last
// create or join is sent as a bearer token on every later intent.
type Client struct {
	baseURL string
	http    *http.Client

	mu       sync.RWMutex
	token    string
	roomID   string
	playerID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Seat returns the room and player this client currently holds.
func (c *Client) Seat() (roomID, playerID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID, c.playerID
}

func (c *Client) seat() (roomID, token string, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return "", "", ErrNoSeat
	}
	return c.roomID, c.token, nil
}

type seatResponse struct {
	Room     *models.Room `json:"room"`
	PlayerID string       `json:"playerId"`
	Token    string       `json:"token"`
}

func (c *Client) takeSeat(resp seatResponse) *models.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = resp.Token
	c.playerID = resp.PlayerID
	if resp.Room != nil {
		c.roomID = resp.Room.ID
	}
	return resp.Room
}

// Create opens a new room hosted by this client.
func (c *Client) Create(ctx context.Context, name string) (*models.Room, error) {
	var resp seatResponse
	if err := c.do(ctx, http.MethodPost, "/rooms", c.currentToken(), map[string]string{"name": name}, &resp); err != nil {
		return nil, err
	}
	return c.takeSeat(resp), nil
}

// JoinByCode takes a seat in the room with the given share code.
func (c *Client) JoinByCode(ctx context.Context, code, name string) (*models.Room, error) {
	var resp seatResponse
	body := map[string]string{"code": code, "name": name}
	if err := c.do(ctx, http.MethodPost, "/rooms/join", c.currentToken(), body, &resp); err != nil {
		return nil, err
	}
	return c.takeSeat(resp), nil
}

// JoinByID takes a seat in a room reached by id.
func (c *Client) JoinByID(ctx context.Context, roomID, name string) (*models.Room, error) {
	var resp seatResponse
	path := "/rooms/" + url.PathEscape(roomID) + "/join"
	if err := c.do(ctx, http.MethodPost, path, c.currentToken(), map[string]string{"name": name}, &resp); err != nil {
		return nil, err
	}
	return c.takeSeat(resp), nil
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ResolveCode maps a share code to its room id.
func (c *Client) ResolveCode(ctx context.Context, code string) (string, error) {
	var resp struct {
		RoomID string `json:"roomId"`
	}
	if err := c.do(ctx, http.MethodGet, "/codes/"+url.PathEscape(code), "", nil, &resp); err != nil {
		return "", err
	}
	return resp.RoomID, nil
}

// Room fetches the current document of the seated room.
func (c *Client) Room(ctx context.Context) (*models.Room, error) {
	roomID, _, err := c.seat()
	if err != nil {
		return nil, err
	}
	var rm models.Room
	if err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(roomID), "", nil, &rm); err != nil {
		return nil, err
	}
	return &rm, nil
}

// SetReady marks this player ready or not.
func (c *Client) SetReady(ctx context.Context, ready bool) (*models.Room, error) {
	return c.roomIntent(ctx, "ready", map[string]bool{"ready": ready})
}

// SetDrawInterval changes the draw cadence; the server clamps it.
func (c *Client) SetDrawInterval(ctx context.Context, ms int) (*models.Room, error) {
	return c.roomIntent(ctx, "interval", map[string]int{"drawIntervalMs": ms})
}

// Start deals and starts the round.
func (c *Client) Start(ctx context.Context) (*models.Room, error) {
	return c.roomIntent(ctx, "start", nil)
}

// Draw announces the next card.
func (c *Client) Draw(ctx context.Context) (*models.Room, error) {
	return c.roomIntent(ctx, "draw", nil)
}

// DrawIfAt announces the next card only if the room still shows the card at
// index. A stale draw returns the room unchanged.
func (c *Client) DrawIfAt(ctx context.Context, index int) (*models.Room, error) {
	return c.roomIntent(ctx, "draw", map[string]int{"expectIndex": index})
}

// Claim submits ids as a winning line. board may be nil.
func (c *Client) Claim(ctx context.Context, ids, board []int) (*room.ClaimResult, error) {
	roomID, token, err := c.seat()
	if err != nil {
		return nil, err
	}
	var res room.ClaimResult
	path := "/rooms/" + url.PathEscape(roomID) + "/claim"
	if err := c.do(ctx, http.MethodPost, path, token, game.NewClaim(ids, board), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Leave gives up the seat. deleted reports whether the room went with it.
func (c *Client) Leave(ctx context.Context) (deleted bool, err error) {
	roomID, token, err := c.seat()
	if err != nil {
		return false, err
	}
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(roomID)+"/leave", token, nil, &resp); err != nil {
		return false, err
	}
	c.mu.Lock()
	c.token, c.roomID, c.playerID = "", "", ""
	c.mu.Unlock()
	return resp.Deleted, nil
}

// History lists up to limit finished rounds, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]models.RoundResult, error) {
	var rounds []models.RoundResult
	if err := c.do(ctx, http.MethodGet, "/history?limit="+strconv.Itoa(limit), "", nil, &rounds); err != nil {
		return nil, err
	}
	return rounds, nil
}

func (c *Client) roomIntent(ctx context.Context, action string, body any) (*models.Room, error) {
	roomID, token, err := c.seat()
	if err != nil {
		return nil, err
	}
	var rm models.Room
	path := "/rooms/" + url.PathEscape(roomID) + "/" + action
	if err := c.do(ctx, http.MethodPost, path, token, body, &rm); err != nil {
		return nil, err
	}
	return &rm, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Kind: room.KindInternal}
		var e struct {
			Error   room.Kind `json:"error"`
			Message string    `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			apiErr.Kind, apiErr.Message = e.Error, e.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
