package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/http/handlers"
	httpMW "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/http/middleware"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    string
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	ActivityHandler   *httpH.ActivityHandler
	StructureHandler  *httpH.StructureHandler
	ResponseHandler   *httpH.ResponseHandler
	EvaluationHandler *httpH.EvaluationHandler
	BackupHandler     *httpH.BackupHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	protected := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Pages and activity instances
		if h := cfg.ActivityHandler; h != nil {
			protected.GET("/view", h.View)
			protected.GET("/index", h.Index)
			protected.GET("/courses/:id/activities", h.IndexByPath)
			protected.POST("/courses/:id/activities", h.Create)
			protected.GET("/activities/:id", h.Get)
			protected.PATCH("/activities/:id", h.Update)
			protected.DELETE("/activities/:id", h.Delete)
			protected.GET("/activities/:id/view", h.ViewByPath)
		}

		// Sections and items
		if h := cfg.StructureHandler; h != nil {
			protected.GET("/activities/:id/sections", h.Tree)
			protected.POST("/activities/:id/sections", h.CreateSection)
			protected.PATCH("/sections/:id", h.UpdateSection)
			protected.DELETE("/sections/:id", h.DeleteSection)
			protected.POST("/sections/:id/items", h.CreateItem)
			protected.GET("/items/:id", h.GetItem)
			protected.PATCH("/items/:id", h.UpdateItem)
			protected.DELETE("/items/:id", h.DeleteItem)
			protected.PUT("/items/:id/configs", h.ReplaceConfigs)
		}

		// Responses
		if h := cfg.ResponseHandler; h != nil {
			protected.PUT("/items/:id/responses/:userid", h.Save)
			protected.GET("/items/:id/responses/:userid/files", h.ListFiles)
			protected.POST("/items/:id/responses/:userid/files", h.Upload)
			protected.GET("/items/:id/responses/:userid/files/:fileid", h.Download)
			protected.DELETE("/items/:id/responses/:userid/files/:fileid", h.DeleteFile)
		}

		// Evaluations and completion
		if h := cfg.EvaluationHandler; h != nil {
			protected.GET("/activities/:id/completion/:userid", h.Completion)
			protected.GET("/activities/:id/evaluations/:userid", h.List)
			protected.GET("/activities/:id/evaluations/:userid/:version", h.Version)
			protected.POST("/activities/:id/evaluations/:userid/finalise", h.Finalise)
			protected.POST("/activities/:id/evaluations/:userid/new", h.NewRound)
		}

		// Backup and restore
		if h := cfg.BackupHandler; h != nil {
			protected.GET("/activities/:id/backup", h.Download)
			protected.POST("/courses/:id/restore", h.Restore)
			protected.POST("/activities/:id/backup-runs", h.EnqueueBackup)
			protected.POST("/courses/:id/restore-runs", h.EnqueueRestore)
			protected.GET("/backup-runs/:id", h.GetRun)
			protected.GET("/backup-runs/:id/archive", h.RunArchive)
		}
	}

	return r
}
