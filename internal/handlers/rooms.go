// internal/handlers/rooms.go
package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/loteria/internal/auth"
	"github.com/jason-s-yu/loteria/internal/game"
	"github.com/jason-s-yu/loteria/internal/models"
)

type joinRequest struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name"`
}

// SeatResponse is returned by create and join: the room plus the caller's seat.
type SeatResponse struct {
	Room     *models.Room `json:"room"`
	PlayerID string       `json:"playerId"`
	Token    string       `json:"token"`
}

type readyRequest struct {
	Ready *bool `json:"ready"`
}

type intervalRequest struct {
	DrawIntervalMs json.Number `json:"drawIntervalMs"`
}

type drawRequest struct {
	// ExpectIndex makes the draw conditional on the room still showing that card.
	ExpectIndex *int `json:"expectIndex,omitempty"`
}

type leaveResponse struct {
	Deleted bool `json:"deleted"`
}

type resolveResponse struct {
	RoomID string `json:"roomId"`
}

// CreateRoomHandler opens a room with the caller as host.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rm, err := s.coord.CreateRoom(r.Context(), s.callerID(r, ""), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSeat(w, r, http.StatusCreated, rm, rm.HostID)
}

// JoinByCodeHandler seats the caller in the room with the given share code.
func (s *Server) JoinByCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	playerID := s.callerID(r, "")
	rm, err := s.coord.JoinByCode(r.Context(), req.Code, playerID, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSeat(w, r, http.StatusOK, rm, playerID)
}

// JoinByIDHandler seats the caller in a room reached by link.
func (s *Server) JoinByIDHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	var req joinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	playerID := s.callerID(r, roomID)
	rm, err := s.coord.JoinByID(r.Context(), roomID, playerID, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSeat(w, r, http.StatusOK, rm, playerID)
}

// GetRoomHandler returns the current room document.
func (s *Server) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	rm, err := s.coord.Room(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

// ResolveCodeHandler maps a share code to its room id.
func (s *Server) ResolveCodeHandler(w http.ResponseWriter, r *http.Request) {
	roomID, err := s.coord.ResolveCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{RoomID: roomID})
}

// SetReadyHandler toggles the caller's readiness; a missing flag means ready.
func (s *Server) SetReadyHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	seat, ok := s.requireSeat(w, r, roomID)
	if !ok {
		return
	}
	var req readyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ready := req.Ready == nil || *req.Ready
	rm, err := s.coord.SetReady(r.Context(), roomID, seat.PlayerID, ready)
	s.writeRoom(w, r, rm, err)
}

// SetDrawIntervalHandler changes the draw cadence (host only).
func (s *Server) SetDrawIntervalHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	seat, ok := s.requireSeat(w, r, roomID)
	if !ok {
		return
	}
	var req intervalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ms, err := req.DrawIntervalMs.Float64()
	if err != nil {
		writeErrorKind(w, http.StatusBadRequest, "BadRequest", "drawIntervalMs must be a number.")
		return
	}
	// Clamp before converting; int() of an out-of-range float is undefined.
	ms = math.Min(math.Max(math.Floor(ms), models.MinDrawIntervalMs), models.MaxDrawIntervalMs)
	rm, err := s.coord.SetDrawInterval(r.Context(), roomID, seat.PlayerID, int(ms))
	s.writeRoom(w, r, rm, err)
}

// StartGameHandler deals and starts the round (host only).
func (s *Server) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	seat, ok := s.requireSeat(w, r, roomID)
	if !ok {
		return
	}
	rm, err := s.coord.StartGame(r.Context(), roomID, seat.PlayerID)
	s.writeRoom(w, r, rm, err)
}

// DrawNextHandler announces the next card (host only).
func (s *Server) DrawNextHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	seat, ok := s.requireSeat(w, r, roomID)
	if !ok {
		return
	}
	var req drawRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var (
		rm  *models.Room
		err error
	)
	if req.ExpectIndex != nil {
		rm, err = s.coord.DrawNextIfAt(r.Context(), roomID, seat.PlayerID, *req.ExpectIndex)
	} else {
		rm, err = s.coord.DrawNext(r.Context(), roomID, seat.PlayerID)
	}
	s.writeRoom(w, r, rm, err)
}

// ClaimBingoHandler submits a claim; a rejected claim is still a 200 with accepted=false.
func (s *Server) ClaimBingoHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	seat, ok := s.requireSeat(w, r, roomID)
	if !ok {
		return
	}
	var claim game.Claim
	if !decodeBody(w, r, &claim) {
		return
	}
	res, err := s.coord.ClaimBingo(r.Context(), roomID, seat.PlayerID, claim)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// LeaveRoomHandler removes the caller, deleting the room if they hosted it.
func (s *Server) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	seat, ok := s.requireSeat(w, r, roomID)
	if !ok {
		return
	}
	deleted, err := s.coord.LeaveRoom(r.Context(), roomID, seat.PlayerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: SeatCookie, Path: "/rooms/" + roomID, MaxAge: -1})
	writeJSON(w, http.StatusOK, leaveResponse{Deleted: deleted})
}

// HistoryHandler lists recent finished rounds.
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeErrorKind(w, http.StatusNotFound, "HistoryDisabled", "Round history is not enabled.")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeErrorKind(w, http.StatusBadRequest, "BadRequest", "limit must be a positive integer.")
			return
		}
		limit = min(n, 100)
	}
	rounds, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rounds == nil {
		rounds = []models.RoundResult{}
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *Server) writeRoom(w http.ResponseWriter, r *http.Request, rm *models.Room, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (s *Server) writeSeat(w http.ResponseWriter, r *http.Request, status int, rm *models.Room, playerID string) {
	token, err := s.signer.Issue(auth.Seat{RoomID: rm.ID, PlayerID: playerID})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setSeatCookie(w, r, rm.ID, token)
	writeJSON(w, status, SeatResponse{Room: rm, PlayerID: playerID, Token: token})
}

// callerID is the player id for a create or join. Ids are never taken from the
// request body: a caller holding a valid seat token keeps its player id (for
// roomID, when given), so a retried join lands on the same seat; anyone else
// gets a fresh id.
func (s *Server) callerID(r *http.Request, roomID string) string {
	if token := seatToken(r); token != "" {
		if seat, err := s.signer.Verify(token); err == nil && (roomID == "" || seat.RoomID == roomID) {
			return seat.PlayerID
		}
	}
	return uuid.NewString()
}
