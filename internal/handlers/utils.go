package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jason-s-yu/loteria/internal/auth"
	"github.com/jason-s-yu/loteria/internal/room"
)

// SeatCookie carries the seat token for browser clients.
const SeatCookie = "seat_token"

// maxBodyBytes caps request bodies; the largest legitimate one is a claim with a board.
const maxBodyBytes = 16 << 10

type errorResponse struct {
	Error   room.Kind `json:"error"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorKind(w http.ResponseWriter, status int, kind room.Kind, msg string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: msg})
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind room.Kind) int {
	switch kind {
	case room.KindRoomNotFound, room.KindPlayerNotFound:
		return http.StatusNotFound
	case room.KindRoomNotJoinable, room.KindRoomFull, room.KindNotReady, room.KindRoundNotActive:
		return http.StatusConflict
	case room.KindNotHost:
		return http.StatusForbidden
	case room.KindInvalidClaim, room.KindInvalidName:
		return http.StatusBadRequest
	case room.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case room.KindCanceled:
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// writeError reports a coordinator error as {"error": kind, "message": text}.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := room.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("intent failed")
	}
	writeErrorKind(w, status, kind, room.Message(kind))
}

// decodeBody reads an optional JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeErrorKind(w, http.StatusBadRequest, "BadRequest", "Malformed request body.")
		return false
	}
	return true
}

// seatToken returns the bearer token, falling back to the seat cookie.
func seatToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SeatCookie); err == nil {
		return c.Value
	}
	return ""
}

// requireSeat authenticates the caller as a player of roomID.
func (s *Server) requireSeat(w http.ResponseWriter, r *http.Request, roomID string) (auth.Seat, bool) {
	token := seatToken(r)
	if token == "" {
		writeErrorKind(w, http.StatusUnauthorized, "Unauthorized", "Join the room first.")
		return auth.Seat{}, false
	}
	seat, err := s.signer.Verify(token)
	if err != nil {
		writeErrorKind(w, http.StatusUnauthorized, "Unauthorized", "Your seat has expired, join again.")
		return auth.Seat{}, false
	}
	if seat.RoomID != roomID {
		writeErrorKind(w, http.StatusForbidden, "Forbidden", "That seat belongs to another room.")
		return auth.Seat{}, false
	}
	return seat, true
}

// setSeatCookie scopes the cookie to the room's path so seats in different rooms do not clash.
func setSeatCookie(w http.ResponseWriter, r *http.Request, roomID, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SeatCookie,
		Value:    token,
		Path:     "/rooms/" + roomID,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
