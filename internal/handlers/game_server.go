// internal/handlers/game_server.go
package handlers

import (
	"github.com/jason-s-yu/eights/internal/game"
	"github.com/jason-s-yu/eights/internal/hub"
	"github.com/sirupsen/logrus"
)

// GameServer is a high-level struct that ties the single table to the live connections.
type GameServer struct {
	Game   *game.EightsGame
	Hub    *hub.Hub
	Logger *logrus.Logger
}

// NewGameServer wires the game's broadcast hooks to the hub.
func NewGameServer(g *game.EightsGame, h *hub.Hub, logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	g.Mu.Lock()
	g.BroadcastFn = h.Broadcast
	g.BroadcastToPlayerFn = h.SendTo
	g.Mu.Unlock()

	return &GameServer{
		Game:   g,
		Hub:    h,
		Logger: logger,
	}
}
