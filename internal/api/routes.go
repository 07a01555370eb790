package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/spreadsheets", handler.IngestSpreadsheet)
		v1.PUT("/spreadsheets/:spreadsheet_id/visible-columns", handler.SetVisibleColumns)

		classes := v1.Group("/classes/:class_id")
		classes.PUT("/spreadsheet", handler.UpdateSpreadsheet)
		classes.POST("/imports", handler.QueueImport)
		classes.PUT("/grading-scheme", handler.UpdateGradingScheme)
		classes.GET("/grades", handler.GetClassGrades)
		classes.GET("/roster", handler.GetRoster)
		classes.GET("/analytics", handler.GetAnalytics)
		classes.GET("/students/:student_id/grade", handler.GetStudentGrade)
		classes.GET("/students/:student_id/view", handler.GetStudentView)
	}
}

// NewRouter builds a gin engine with the service middleware and routes.
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(RecoveryMiddleware())
	router.Use(CORSMiddleware())
	router.Use(LoggingMiddleware())
	router.MaxMultipartMemory = handler.cfg.Server.MaxUploadBytes

	SetupRoutes(router, handler)
	return router
}
