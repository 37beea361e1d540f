package api

import (
	"net/http"

	v1 "github.com/voltbridge/voltbridge/internal/api/v1"
	"github.com/voltbridge/voltbridge/internal/logger"
	"github.com/voltbridge/voltbridge/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the HTTP handlers mounted by the router.
type Handlers struct {
	Session    *v1.SessionHandler
	Settlement *v1.SettlementHandler
	Payout     *v1.PayoutHandler
}

// NewRouter assembles the gin engine: context seeding, request logging and
// error translation around the workspace-scoped v1 routes.
func NewRouter(handlers Handlers, log *logger.Logger) *gin.Engine {
	gin.DefaultWriter = log.GetGinLogger()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestContextMiddleware())
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/v1")
	api.Use(middleware.WorkspaceRequiredMiddleware())

	sessions := api.Group("/sessions")
	{
		sessions.POST("/inbound", handlers.Session.CreateInboundSession)
		sessions.POST("/inbound/:id/close", handlers.Session.CloseInboundSession)
		sessions.POST("/outbound", handlers.Session.CreateOutboundSession)
		sessions.POST("/outbound/:id/close", handlers.Session.CloseOutboundSession)
		sessions.GET("", handlers.Session.ListSessions)
		sessions.GET("/:id", handlers.Session.GetSession)
	}

	settlements := api.Group("/settlements")
	{
		settlements.POST("/reconcile", handlers.Settlement.ReconcileSettlement)
		settlements.POST("/match", handlers.Settlement.MatchCdr)
	}

	payouts := api.Group("/payouts")
	{
		payouts.POST("/generate", handlers.Payout.GeneratePayoutStatement)
		payouts.GET("", handlers.Payout.ListPayoutStatements)
		payouts.GET("/:id", handlers.Payout.GetPayoutStatement)
		payouts.POST("/:id/recalculate", handlers.Payout.RecalculatePayoutStatement)
		payouts.POST("/:id/issue", handlers.Payout.IssuePayoutStatement)
		payouts.POST("/:id/pay", handlers.Payout.MarkPayoutPaid)
		payouts.POST("/:id/cancel", handlers.Payout.CancelPayoutStatement)
	}

	return router
}
