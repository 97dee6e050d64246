// Package httpapi is the server's net/http surface: the /ws upgrade
// endpoint that hands connections off to battle.Session, and the
// model-upload/list/static-asset contract spec.md §6 describes as an
// external collaborator. Grounded on the teacher's wish/ssh transport
// in internal/platform/tui/ssh_server.go, generalized from an SSH
// session acceptor to an http.Handler-based websocket acceptor since
// spec.md's transport is WebSocket, not a terminal.
package httpapi

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/arenaduel/battle-server/internal/battle"
	"github.com/arenaduel/battle-server/internal/models"
)

// Server bundles the handlers this package exposes into one
// http.Handler via NewMux.
type Server struct {
	dispatcher            battle.Dispatcher
	models                *models.Store
	uploadsDir            string
	livenessProbeInterval time.Duration
	livenessTimeout       time.Duration
	logger                *log.Logger
	upgrader              gorillaUpgrader
}

// NewServer wires the websocket upgrade handler and the model-asset
// handlers together. dispatcher is typically a *battle.Registry.
// livenessProbeInterval/livenessTimeout are threaded into every
// accepted battle.Session per SPEC_FULL §2's configurable liveness
// contract.
func NewServer(dispatcher battle.Dispatcher, store *models.Store, uploadsDir string, livenessProbeInterval, livenessTimeout time.Duration, logger *log.Logger) *Server {
	return &Server{
		dispatcher:            dispatcher,
		models:                store,
		uploadsDir:            uploadsDir,
		livenessProbeInterval: livenessProbeInterval,
		livenessTimeout:       livenessTimeout,
		logger:                logger,
		upgrader:              newUpgrader(),
	}
}

// NewMux builds the full routing table: /ws, the model upload/list
// endpoints, and a static file server over the uploads directory.
func (s *Server) NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/models/upload", s.handleUploadModel)
	mux.HandleFunc("/api/models", s.handleListModels)
	// uploadsDir is the literal directory files are written to (e.g.
	// "uploads/models"); models.Store records file_path values like
	// "uploads/models/<id>.glb", so the static root is one level up.
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(filepath.Dir(s.uploadsDir)))))
	return mux
}
