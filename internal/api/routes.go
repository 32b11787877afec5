package api

import (
	"github.com/gin-gonic/gin"
	"github.com/xplodegame/backend/internal/api/handlers"
	"github.com/xplodegame/backend/internal/game"
	"github.com/xplodegame/backend/internal/ws"
)

// SetupRoutes configures the coordination server's routes.
func SetupRoutes(router *gin.Engine, machine *game.Machine) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ws", ws.HandleWebSocket(machine))
}
