package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces"
)

// NewRouter wires the HTTP routes exposed by the service.
func NewRouter(logger zerolog.Logger, h *Handler, verifier interfaces.IdentityVerifier) *gin.Engine {
	router := gin.New()

	router.Use(requestID())
	router.Use(recovery(logger))
	router.Use(requestLogger(logger))
	router.Use(cors())

	router.GET("/health", h.health)

	api := router.Group("/api", authenticate(verifier, logger))
	{
		api.POST("/transactions", h.createTransaction)
		api.GET("/transactions", h.listTransactions)
	}

	return router
}
