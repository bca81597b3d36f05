// Package web gin server
package web

import (
	"net/http"

	ginMw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/minidrive/storage/internal/web/drive/controller"
	"github.com/minidrive/storage/library/log"
)

var (
	server = gin.New()
)

func RunServer(addr string) {
	server.Use(
		gin.Recovery(),
		ginMw.NewLoggerMiddleware(
			ginMw.WithLoggerMwColored(),
			ginMw.WithLevel(log.Logger.Level().String()),
			ginMw.WithLogger(log.Logger.Named("gin")),
		),
	)
	if !gconfig.Shared.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := ginMw.EnableMetric(server); err != nil {
		log.Logger.Panic("enable metric server", zap.Error(err))
	}

	server.Any("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "hello, world")
	})

	registerDriveRoutes(server)

	log.Logger.Info("listening on http", zap.String("addr", addr))
	log.Logger.Panic("httpServer exit", zap.Error(server.Run(addr)))
}

func registerDriveRoutes(server *gin.Engine) {
	api := server.Group("/api/v1")

	api.POST("/folders", controller.Instance.CreateFolder)

	files := api.Group("/files")
	files.GET("", controller.Instance.ListFiles)
	files.POST("/upload", controller.Instance.UploadFiles)
	files.GET("/shared-with-me", controller.Instance.SharedWithMe)
	files.GET("/download/:requestId/status", controller.Instance.DownloadStatus)
	files.GET("/download/:requestId/file", controller.Instance.DownloadArchive)
	files.GET("/:fileId", controller.Instance.FileDetails)
	files.DELETE("/:fileId", controller.Instance.DeleteFile)
	files.GET("/:fileId/download", controller.Instance.DownloadFile)
	files.POST("/:fileId/download-folder", controller.Instance.InitiateFolderDownload)
	files.POST("/:fileId/share", controller.Instance.Share)
	files.DELETE("/:fileId/share", controller.Instance.Revoke)
	files.GET("/:fileId/shares", controller.Instance.ListShares)

	api.GET("/analytics/usage", controller.Instance.UsageStats)
}
