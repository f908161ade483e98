// internal/handlers/admin.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/eights/internal/game"
	"github.com/jason-s-yu/eights/internal/middleware"
)

// broadcastRequest is the body of POST /admin/broadcast.
type broadcastRequest struct {
	Message string `json:"message"`
}

// NewRouter builds the HTTP surface: the WebSocket gateway on /ws and the operator
// API under /admin.
func NewRouter(gs *GameServer, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.LogMiddleware(gs.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/ws", GameWSHandler(gs, wsOriginPatterns(allowedOrigins)))

	r.Route("/admin", func(r chi.Router) {
		r.Get("/state", gs.handleState)
		r.Get("/players", gs.handlePlayers)
		r.Post("/game/start", gs.handleOperatorStart)
		r.Post("/game/end", gs.handleOperatorEnd)
		r.Post("/broadcast", gs.handleBroadcast)
	})
	return r
}

func (gs *GameServer) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gs.Game.Snapshot())
}

func (gs *GameServer) handlePlayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gs.Hub.Snapshot())
}

func (gs *GameServer) handleOperatorStart(w http.ResponseWriter, r *http.Request) {
	if err := gs.Game.OperatorStart(); err != nil {
		writeGameError(w, err)
		return
	}
	gs.Logger.Info("game started by operator")
	writeJSON(w, http.StatusOK, gs.Game.Snapshot())
}

func (gs *GameServer) handleOperatorEnd(w http.ResponseWriter, r *http.Request) {
	if err := gs.Game.EndByOperator(); err != nil {
		writeGameError(w, err)
		return
	}
	gs.Logger.Info("game ended by operator")
	writeJSON(w, http.StatusOK, gs.Game.Snapshot())
}

func (gs *GameServer) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message must not be empty", http.StatusBadRequest)
		return
	}
	gs.Game.OperatorSay(req.Message)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeGameError maps table rejections to 409 with the player-facing message.
func writeGameError(w http.ResponseWriter, err error) {
	var gerr *game.GameError
	if errors.As(err, &gerr) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"code":    gerr.Code,
			"message": gerr.Message,
		})
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// wsOriginPatterns converts CORS origins ("https://example.com") to the host
// patterns the WebSocket accept check expects.
func wsOriginPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
