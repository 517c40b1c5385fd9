package core

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/veloria/phototheque/config"
	handlerAlbums "github.com/veloria/phototheque/web/handler/albums"
	handlerFiles "github.com/veloria/phototheque/web/handler/files"
	"github.com/veloria/phototheque/web/middleware"
)

var startTime = time.Now()

// registerRoutes wires every page, action and asset route.
func registerRoutes(router *gin.Engine, deps *ServerDependencies, pageLimiter, imageLimiter *middleware.IPRateLimiter) {
	registerBasicRoutes(router, deps)

	albumHandler := handlerAlbums.NewHandler(deps.Container.AlbumsService, deps.Container.ThumbsService, deps.Flash)
	fileHandler := handlerFiles.NewHandler(deps.Container.GetStorageProvider(), deps.Container.ThumbsService)

	pages := router.Group("/")
	pages.Use(pageLimiter.Middleware())
	{
		pages.GET("/", albumHandler.Home)
		pages.GET("/albums", albumHandler.ListAlbums)
		pages.GET("/albums/create", albumHandler.NewAlbumForm)
		pages.POST("/albums/create", albumHandler.CreateAlbum)
		pages.GET("/albums/:idAlbum", albumHandler.ShowAlbum)
		pages.POST("/albums/:idAlbum", albumHandler.UploadImage)
		pages.GET("/albums/:idAlbum/delete", albumHandler.DeleteAlbum)
		pages.GET("/albums/:idAlbum/delete/:idImage", albumHandler.DeleteImage)
	}

	uploads := router.Group("/uploads")
	uploads.Use(imageLimiter.Middleware())
	{
		uploads.GET("/:idAlbum/:filename", fileHandler.GetUpload)
	}

	thumbnails := router.Group("/thumbnails")
	thumbnails.Use(imageLimiter.Middleware())
	{
		thumbnails.GET("/:idAlbum/:filename", fileHandler.GetThumbnail)
	}

	router.NoRoute(albumHandler.NotFound)
}

// registerBasicRoutes wires the operational endpoints.
func registerBasicRoutes(router *gin.Engine, deps *ServerDependencies) {
	router.GET("/health", func(c *gin.Context) {
		health := gin.H{
			"status":  "ok",
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"version": config.Version,
			"checks": gin.H{
				"database": checkDatabaseHealth(deps),
				"cache":    checkCacheHealth(c, deps),
				"storage":  checkStorageHealth(c, deps),
			},
		}
		httpStatus := http.StatusOK
		for _, checkResult := range health["checks"].(gin.H) {
			if result, ok := checkResult.(string); ok && result != "ok" {
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}
		c.JSON(httpStatus, health)
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})

	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, middleware.GetMetrics())
	})
}

func checkDatabaseHealth(deps *ServerDependencies) string {
	provider := deps.Container.GetDatabaseProvider()
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Ping(); err != nil {
		return err.Error()
	}
	return "ok"
}

func checkCacheHealth(c *gin.Context, deps *ServerDependencies) string {
	provider := deps.Container.GetCacheProvider()
	if provider == nil {
		return "not initialized"
	}
	if _, err := provider.Exists(c.Request.Context(), "health:probe"); err != nil {
		return err.Error()
	}
	return "ok"
}

func checkStorageHealth(c *gin.Context, deps *ServerDependencies) string {
	provider := deps.Container.GetStorageProvider()
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Health(c.Request.Context()); err != nil {
		return err.Error()
	}
	return "ok"
}
