// Package router provides gitnar service routing.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/gitnar/internal/gitnar/biz"
	"github.com/kart-io/gitnar/internal/gitnar/handler"
)

// Register registers all gitnar routes on the engine.
func Register(engine *gin.Engine, service *biz.Service) {
	logger.Info("Registering gitnar routes...")

	qaHandler := handler.NewQAHandler(service)
	repoHandler := handler.NewRepoHandler(service)
	groupHandler := handler.NewGroupHandler(service)
	statsHandler := handler.NewStatsHandler(service)

	engine.GET("/health", statsHandler.Health)
	engine.GET("/metrics", statsHandler.Metrics)

	v1 := engine.Group("/api/v1")
	{
		qa := v1.Group("/qa")
		{
			qa.POST("/repo", qaHandler.AskRepo)
			qa.POST("/group", qaHandler.AskGroup)
			qa.GET("/sessions/:id/history", qaHandler.History)
		}

		repos := v1.Group("/repos")
		{
			repos.POST("", repoHandler.Register)
			repos.GET("", repoHandler.List)
			repos.GET("/:id", repoHandler.Get)
			repos.DELETE("/:id", repoHandler.Delete)
			repos.POST("/:id/reindex", repoHandler.Reindex)
			repos.GET("/:id/outline", repoHandler.Outline)
		}

		groups := v1.Group("/groups")
		{
			groups.POST("", groupHandler.Create)
			groups.GET("", groupHandler.List)
			groups.GET("/:id", groupHandler.Get)
			groups.DELETE("/:id", groupHandler.Delete)
		}

		v1.GET("/stats", statsHandler.Stats)
	}

	logger.Info("HTTP routes registered")
}
