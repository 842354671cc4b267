package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/import/:kind", handler.ImportRoster)
		v1.POST("/import/:kind/jobs", handler.CreateImportJob)
		v1.GET("/import/jobs/:id", handler.GetImportJob)

		v1.GET("/students/:id", handler.GetStudent)
		v1.GET("/teachers/:id", handler.GetTeacher)
	}
}
