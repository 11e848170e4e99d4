// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/loteria/internal/middleware"
	"github.com/jason-s-yu/loteria/internal/models"
	"github.com/jason-s-yu/loteria/internal/room"
	"github.com/sirupsen/logrus"
)

// FeedSubprotocol is offered to clients of the room feed.
const FeedSubprotocol = "loteria"

// deletedMessage is the last message of a feed whose room was removed.
type deletedMessage struct {
	Deleted bool `json:"deleted"`
}

// RoomWSHandler streams the room document: the current state on connect, then
// one JSON message per committed change, then {"deleted":true} if the room is
// removed. Client messages are ignored; intents go through the HTTP API.
func (s *Server) RoomWSHandler(opts RouterOptions) http.HandlerFunc {
	acceptOpts := &websocket.AcceptOptions{Subprotocols: []string{FeedSubprotocol}}
	if opts.Production {
		acceptOpts.OriginPatterns = opts.AllowedOrigins
	} else {
		acceptOpts.OriginPatterns = []string{"*"}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, acceptOpts)
		if err != nil {
			s.logger.WithError(err).Warn("websocket accept error")
			return
		}
		defer c.CloseNow()

		middleware.LogWebSocketConnect(s.logger, remoteAddr, r.URL.Path)
		ctx := c.CloseRead(r.Context())

		var (
			done     = make(chan struct{})
			doneOnce sync.Once
			closeErr error
		)
		finish := func(err error) {
			doneOnce.Do(func() {
				closeErr = err
				close(done)
			})
		}

		log := s.logger.WithFields(logrus.Fields{"room": roomID, "remote": remoteAddr})
		unsubscribe, err := s.coord.Subscribe(ctx, roomID, func(rm *models.Room) {
			wctx, cancel := context.WithTimeout(ctx, s.wsWriteTimeout)
			defer cancel()
			if rm == nil {
				if err := wsjson.Write(wctx, c, deletedMessage{Deleted: true}); err != nil {
					log.WithError(err).Debug("failed to send room deletion")
				}
				finish(nil)
				return
			}
			if err := wsjson.Write(wctx, c, rm); err != nil {
				finish(err)
			}
		})
		if err != nil {
			code, reason := websocket.StatusCode(StoreUnavailableCode), "room feed unavailable"
			if errors.Is(err, room.ErrRoomNotFound) {
				code, reason = InvalidRoomIDError, "room does not exist"
			}
			middleware.LogWebSocketDisconnect(s.logger, remoteAddr, r.URL.Path, err)
			c.Close(code, reason)
			return
		}
		defer unsubscribe()

		select {
		case <-ctx.Done():
			// Client went away.
			middleware.LogWebSocketDisconnect(s.logger, remoteAddr, r.URL.Path, nil)
		case <-done:
			middleware.LogWebSocketDisconnect(s.logger, remoteAddr, r.URL.Path, closeErr)
			c.Close(websocket.StatusNormalClosure, "room closed")
		}
	}
}
