package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck answers the fabric's liveness probe.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
