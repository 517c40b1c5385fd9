package app

import (
	"fmt"
	"log"

	"github.com/veloria/phototheque/cache"
	"github.com/veloria/phototheque/config"
	"github.com/veloria/phototheque/database"
	albumsRepo "github.com/veloria/phototheque/database/repo/albums"
	"github.com/veloria/phototheque/internal/albums"
	"github.com/veloria/phototheque/internal/reconcile"
	"github.com/veloria/phototheque/internal/thumbs"
	"github.com/veloria/phototheque/storage"
)

// Container wires the application's components and owns their
// lifecycle. The database handle and cache backend are opened in Init
// and released in Close; nothing here is package-global.
type Container struct {
	config          *config.Config
	databaseFactory *database.Factory
	storageProvider storage.Provider
	cacheProvider   cache.Provider
	reconciler      *reconcile.Scanner

	AlbumsRepo    *albumsRepo.Repository
	AlbumsService *albums.Service
	ThumbsService *thumbs.Service
}

// NewContainer creates an uninitialized container.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// Init opens the database, the file store and the cache, then builds
// the services on top of them.
func (c *Container) Init() error {
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := c.initStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := c.initCache(); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	c.AlbumsRepo = albumsRepo.NewRepository(c.databaseFactory.GetProvider())
	c.AlbumsService = albums.NewService(c.AlbumsRepo, c.storageProvider)
	c.ThumbsService = thumbs.NewService(c.storageProvider, c.cacheProvider, c.config.ThumbnailMaxWidth)

	return nil
}

func (c *Container) initDatabase() error {
	factory, err := database.NewFactory(c.config)
	if err != nil {
		return err
	}
	c.databaseFactory = factory
	log.Printf("[App] Database initialized (%s)", factory.GetProvider().Name())
	return nil
}

func (c *Container) initStorage() error {
	provider, err := storage.NewProviderFromConfig(c.config)
	if err != nil {
		return err
	}
	c.storageProvider = provider
	log.Printf("[App] Storage initialized (%s)", provider.Name())
	return nil
}

func (c *Container) initCache() error {
	provider, err := cache.NewProviderFromConfig(c.config)
	if err != nil {
		return err
	}
	c.cacheProvider = provider
	log.Printf("[App] Cache initialized (%s)", provider.Name())
	return nil
}

// AutoMigrate applies the schema.
func (c *Container) AutoMigrate() error {
	return c.databaseFactory.AutoMigrate()
}

// StartReconciler launches the periodic record/file-store scan. A
// non-positive interval disables it.
func (c *Container) StartReconciler() {
	if c.config.ReconcileInterval <= 0 {
		log.Println("[App] Reconciler disabled")
		return
	}
	c.reconciler = reconcile.StartScanner(
		c.AlbumsRepo,
		c.storageProvider,
		c.config.ReconcileInterval,
		c.config.ReconcileRepair,
	)
}

// GetConfig returns the loaded configuration.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetDatabaseProvider returns the database handle.
func (c *Container) GetDatabaseProvider() database.Provider {
	if c.databaseFactory == nil {
		return nil
	}
	return c.databaseFactory.GetProvider()
}

// GetStorageProvider returns the file store backend.
func (c *Container) GetStorageProvider() storage.Provider {
	return c.storageProvider
}

// GetCacheProvider returns the cache backend.
func (c *Container) GetCacheProvider() cache.Provider {
	return c.cacheProvider
}

// Close stops background work and releases every backend.
func (c *Container) Close() error {
	if c.reconciler != nil {
		c.reconciler.Stop()
	}

	if c.cacheProvider != nil {
		if err := c.cacheProvider.Close(); err != nil {
			log.Printf("[App] Error closing cache: %v", err)
		}
	}

	if c.databaseFactory != nil {
		if err := c.databaseFactory.Close(); err != nil {
			log.Printf("[App] Error closing database: %v", err)
		}
	}

	log.Println("[App] Container closed")
	return nil
}
