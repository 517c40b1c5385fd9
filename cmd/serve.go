package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/veloria/phototheque/config"
	"github.com/veloria/phototheque/internal/app"
	"github.com/veloria/phototheque/web/core"
	"github.com/veloria/phototheque/web/flash"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	config.InitConfig()
	cfg := config.Get()

	if err := os.MkdirAll("./data", os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	if cfg.StorageType == "local" {
		if err := os.MkdirAll(cfg.StorageLocalPath, os.ModePerm); err != nil {
			log.Fatalf("Failed to create upload directory: %v", err)
		}
	}

	container := app.NewContainer(cfg)
	if err := container.Init(); err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	initDatabase(container)

	container.StartReconciler()

	deps := &core.ServerDependencies{
		Container: container,
		Flash:     flash.NewStore(container.GetCacheProvider(), cfg.FlashTTL),
	}

	server, cleanup := core.StartServer(deps)
	go func() {
		log.Printf("Server started on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cleanup != nil {
		cleanup()
		log.Println("Cleanup tasks finished.")
	}

	if err := container.Close(); err != nil {
		log.Printf("Error closing container: %v", err)
	}

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited successfully")
}

// initDatabase applies the schema on startup.
func initDatabase(container *app.Container) {
	log.Printf("Initializing database, database type: %s", container.GetDatabaseProvider().Name())

	if err := container.AutoMigrate(); err != nil {
		log.Fatalf("Failed to auto migrate database: %v", err)
	}

	log.Println("Database initialized successfully")
}
