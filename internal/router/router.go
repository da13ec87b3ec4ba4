// Package router wires all HTTP routes.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/routervault/routervault/internal/config"
	"github.com/routervault/routervault/internal/handlers"
	"github.com/routervault/routervault/internal/middleware"
	"github.com/routervault/routervault/internal/mikrotik"
	"github.com/routervault/routervault/internal/services"
	"github.com/routervault/routervault/internal/version"
)

func New(
	cfg *config.Config,
	devices *services.DeviceService,
	backups *services.BackupService,
	alerts *services.AlertService,
	settings *services.SettingsService,
	scheduler *services.Scheduler,
	clients mikrotik.Factory,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	deviceHandler := handlers.NewDeviceHandler(devices, backups, scheduler, clients)
	backupHandler := handlers.NewBackupHandler(backups, devices, scheduler, cfg.Storage.Path)
	alertHandler := handlers.NewAlertHandler(alerts)
	settingsHandler := handlers.NewSettingsHandler(settings)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/download/:device/:subdir/:file", backupHandler.Download)

	api := r.Group("/api")
	{
		api.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Info())
		})

		api.GET("/devices", deviceHandler.List)
		api.POST("/devices", deviceHandler.Create)
		api.GET("/devices/:id", deviceHandler.Get)
		api.PUT("/devices/:id", deviceHandler.Update)
		api.DELETE("/devices/:id", deviceHandler.Delete)
		api.POST("/devices/:id/test", deviceHandler.Test)
		api.POST("/devices/:id/backup", deviceHandler.Backup)
		api.GET("/devices/:id/backups", deviceHandler.Backups)
		api.GET("/devices/:id/logs", deviceHandler.Logs)

		api.GET("/backups/:id", backupHandler.Get)
		api.PUT("/backups/:id/important", backupHandler.SetImportant)
		api.DELETE("/backups/:id", backupHandler.Delete)
		api.POST("/backups/:id/restore", backupHandler.Restore)

		api.GET("/alerts", alertHandler.List)
		api.POST("/alerts/viewed", alertHandler.MarkViewed)

		api.GET("/settings", settingsHandler.Get)
		api.PUT("/settings", settingsHandler.Update)
	}

	return r
}
