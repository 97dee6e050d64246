package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/arenaduel/battle-server/internal/battle"
)

// gorillaUpgrader is a thin alias kept so Server doesn't expose the
// gorilla/websocket type directly in its own field list.
type gorillaUpgrader = websocket.Upgrader

func newUpgrader() gorillaUpgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		// Browsers hosting the avatar client are expected to be served
		// from a different origin (dev servers, CDNs) than this API;
		// spec.md names no origin allowlist, so every origin is accepted.
		CheckOrigin: func(r *http.Request) bool { return true },
	}
}

// handleWebSocket upgrades the connection, reading player_id and the
// optional matching_id from the query string per spec.md §6. A caller
// that omits player_id gets a fresh server-generated id rather than a
// rejection, per spec.md §4.1 and original_source's websocket handler.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		playerID = uuid.NewString()
	}
	matchingID := r.URL.Query().Get("matching_id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "player_id", playerID, "err", err)
		return
	}

	session := battle.NewSession(conn, playerID, matchingID, s.dispatcher, s.livenessProbeInterval, s.livenessTimeout, s.logger)
	s.dispatcher.HandleConnect(session)
	session.Run()
}
