package apihttp

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"torrentstream/internal/domain"
)

// historyRequest is the POST /history/<hex> body: the player reports the
// file it was watching and how far it got.
type historyRequest struct {
	FileIndex int     `json:"fileIndex"`
	Position  float64 `json:"position"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hash, err := hashFromPath(r, "/history/")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid info hash")
		return
	}
	if s.history == nil {
		writeError(w, r, http.StatusServiceUnavailable, "watch history not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		pos, ok, err := s.history.Get(r.Context(), hash)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		if !ok {
			writeError(w, r, http.StatusNotFound, "no watch position")
			return
		}
		writeJSON(w, http.StatusOK, pos)
	case http.MethodPost:
		var req historyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		pos := domain.WatchPosition{
			InfoHash:  hash,
			FileIndex: req.FileIndex,
			Position:  req.Position,
		}
		if err := s.history.Save(r.Context(), pos); err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}
