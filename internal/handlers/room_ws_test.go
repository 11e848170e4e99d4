// internal/handlers/room_ws_test.go
package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/loteria/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialFeed(t *testing.T, ctx context.Context, srv *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/rooms/" + roomID + "/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{FeedSubprotocol}})
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return c
}

func TestRoomFeed(t *testing.T) {
	api := newTestAPI(t, nil, RouterOptions{})
	srv := httptest.NewServer(api.handler)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	roomID, tokens := api.seat("Ana")
	c := dialFeed(t, ctx, srv, roomID)

	var snapshot models.Room
	require.NoError(t, wsjson.Read(ctx, c, &snapshot))
	assert.Equal(t, roomID, snapshot.ID)
	assert.Len(t, snapshot.Players, 2)

	w := api.do(http.MethodPost, "/rooms/"+roomID+"/start", tokens[0], nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = api.do(http.MethodPost, "/rooms/"+roomID+"/draw", tokens[0], nil)
	require.Equal(t, http.StatusOK, w.Code)

	var started, drawn models.Room
	require.NoError(t, wsjson.Read(ctx, c, &started))
	assert.Equal(t, models.StatusPlaying, started.Status)
	assert.Equal(t, 0, started.DeckIndex)
	require.NoError(t, wsjson.Read(ctx, c, &drawn))
	assert.Equal(t, 1, drawn.DeckIndex)

	w = api.do(http.MethodPost, "/rooms/"+roomID+"/leave", tokens[0], nil)
	require.Equal(t, http.StatusOK, w.Code)

	var gone deletedMessage
	require.NoError(t, wsjson.Read(ctx, c, &gone))
	assert.True(t, gone.Deleted)

	_, _, err := c.Read(ctx)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}

func TestRoomFeedUnknownRoom(t *testing.T) {
	api := newTestAPI(t, nil, RouterOptions{})
	srv := httptest.NewServer(api.handler)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := dialFeed(t, ctx, srv, "missing")
	_, _, err := c.Read(ctx)
	assert.Equal(t, websocket.StatusCode(InvalidRoomIDError), websocket.CloseStatus(err))
}
