package core

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/veloria/phototheque/config"
	"github.com/veloria/phototheque/internal/app"
	"github.com/veloria/phototheque/web/flash"
	"github.com/veloria/phototheque/web/middleware"
	"github.com/veloria/phototheque/web/templates"
)

// ServerDependencies holds what the web layer needs from the rest of
// the application.
type ServerDependencies struct {
	Container *app.Container
	Flash     *flash.Store
}

// setupRouter builds the gin engine with the full middleware chain and
// route table. The returned cleanup stops the rate limiters.
func setupRouter(deps *ServerDependencies) (*gin.Engine, func()) {
	cfg := deps.Container.GetConfig()
	router := gin.New()

	// gin request logging only in development builds
	if config.IsDevelopment() {
		router.Use(gin.Logger())
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.BaseURL()},
		AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.SetTrustedProxies(nil)
	router.SetHTMLTemplate(templates.Load())

	router.MaxMultipartMemory = int64(cfg.UploadMaxSizeMB) << 20
	router.Use(middleware.MaxBytesReader(int64(cfg.UploadMaxSizeMB) * 2 << 20))
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())

	pageLimiter := middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.RateLimitExpireTime)
	imageLimiter := middleware.NewIPRateLimiter(cfg.RateLimitRPS*4, cfg.RateLimitBurst*4, cfg.RateLimitExpireTime)
	cleanup := func() {
		pageLimiter.StopCleanup()
		imageLimiter.StopCleanup()
	}

	registerRoutes(router, deps, pageLimiter, imageLimiter)

	return router, cleanup
}

// StartServer builds the http.Server around the configured router.
func StartServer(deps *ServerDependencies) (*http.Server, func()) {
	cfg := deps.Container.GetConfig()
	router, clean := setupRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
