// internal/client/feed.go
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/loteria/internal/models"
	"github.com/jason-s-yu/loteria/internal/room"
)

const (
	feedSubprotocol = "loteria"

	// Close codes sent by the feed endpoint.
	closeRoomNotFound     websocket.StatusCode = 3003
	closeStoreUnavailable websocket.StatusCode = 3004
)

// feedFrame is either a room document or the final {"deleted":true}.
type feedFrame struct {
	Deleted bool `json:"deleted"`
}

// Follow streams roomID's feed into fn: the current room first, then every
// committed change in order. When the room is deleted fn receives nil and
// Follow returns nil. Returning false from fn stops following.
func (c *Client) Follow(ctx context.Context, roomID string, fn func(*models.Room) bool) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/rooms/" + url.PathEscape(roomID) + "/ws"

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		Subprotocols: []string{feedSubprotocol},
	})
	if err != nil {
		return fmt.Errorf("dial room feed: %w", err)
	}
	defer conn.CloseNow()
	// Room documents carry the full deck.
	conn.SetReadLimit(1 << 20)

	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			return feedError(ctx, err)
		}
		var frame feedFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			return fmt.Errorf("decode feed frame: %w", err)
		}
		if frame.Deleted {
			fn(nil)
			conn.Close(websocket.StatusNormalClosure, "")
			return nil
		}
		var rm models.Room
		if err := json.Unmarshal(raw, &rm); err != nil {
			return fmt.Errorf("decode room: %w", err)
		}
		if !fn(&rm) {
			conn.Close(websocket.StatusNormalClosure, "")
			return nil
		}
	}
}

func feedError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return nil
	case closeRoomNotFound:
		return fmt.Errorf("room feed: %w", room.ErrRoomNotFound)
	case closeStoreUnavailable:
		return fmt.Errorf("room feed: %w", room.ErrStoreUnavailable)
	}
	return fmt.Errorf("read room feed: %w", err)
}
