package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"janusprop/server/internal/auth"
)

func SetupRoutes(router *gin.Engine, handler *Handler, jwtSecret []byte, logger *logrus.Logger) {
	router.Use(auth.Middleware(jwtSecret, logger))

	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/markets", handler.ListMarkets)

		api.GET("/properties/search", handler.SearchProperties)
		api.GET("/properties/:id", handler.GetProperty)
		api.POST("/properties", handler.CreateProperty)
		api.PUT("/properties/:id", handler.UpdateProperty)
		api.DELETE("/properties/:id", handler.DeleteProperty)
		api.POST("/properties/ingest", handler.IngestProperties)

		api.GET("/properties/:id/insights", handler.GetInsights)
		api.POST("/properties/:id/insights", handler.CreateInsight)

		api.GET("/agents", handler.ListAgents)
		api.GET("/agents/:id", handler.GetAgent)
		api.POST("/agents", handler.CreateAgent)
		api.DELETE("/agents/:id", handler.DeleteAgent)

		api.GET("/leads", handler.ListLeads)
		api.POST("/leads", handler.CreateLead)

		api.GET("/map", handler.MapView)
	}
}
