// Package server is the websocket edge of the game: it upgrades
// connections, parses intents, runs turns through the delta engine, and
// streams update messages back. Everything outside the fog filter stays on
// the server.
package server

import (
	"context"
	"net/http"

	"github.com/deepfall/server/internal/config"
	"github.com/deepfall/server/internal/game"
	"github.com/deepfall/server/internal/persist"
	"github.com/deepfall/server/internal/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// GameStore restores checkpointed games on reconnect.
type GameStore interface {
	LoadGame(ctx context.Context, id string) (*game.GameState, error)
}

// Leaderboard records terminal games.
type Leaderboard interface {
	Insert(ctx context.Context, row persist.LeaderboardRow) error
}

type Server struct {
	engine   *game.Engine
	mgr      *session.Manager
	games    GameStore
	boards   Leaderboard
	cfg      config.NetworkConfig
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func New(
	engine *game.Engine,
	mgr *session.Manager,
	games GameStore,
	boards Leaderboard,
	cfg config.NetworkConfig,
	allowedOrigins []string,
	log *zap.Logger,
) *Server {
	s := &Server{
		engine: engine,
		mgr:    mgr,
		games:  games,
		boards: boards,
		cfg:    cfg,
		log:    log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return s
}

// originChecker admits everything when no allowlist is configured
// (development), otherwise requires an exact match; a request without an
// Origin header is admitted either way.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// HandleWS upgrades one game connection and runs it to completion.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newConn(s, ws)
	go c.writeLoop()
	c.run(r.Context())
}

// Handler returns the HTTP mux: the game socket plus a liveness probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
