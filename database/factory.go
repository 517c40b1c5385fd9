package database

import (
	"fmt"
	"log"

	"github.com/veloria/phototheque/config"
	"github.com/veloria/phototheque/database/models"
)

// Factory creates and owns the database provider.
type Factory struct {
	provider Provider
}

// NewFactory builds a provider from the configuration.
func NewFactory(cfg *config.Config) (*Factory, error) {
	log.Println("Initializing database provider...")

	provider, err := NewGormProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database provider: %w", err)
	}

	log.Printf("Database provider '%s' initialized successfully", provider.Name())

	return &Factory{provider: provider}, nil
}

// GetProvider returns the active provider.
func (f *Factory) GetProvider() Provider {
	return f.provider
}

// AutoMigrate migrates all persistent models.
func (f *Factory) AutoMigrate() error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}

	modelsToMigrate := []interface{}{
		&models.Album{},
		&models.AlbumImage{},
	}

	log.Println("Running database auto migration...")
	if err := f.provider.AutoMigrate(modelsToMigrate...); err != nil {
		return fmt.Errorf("failed to auto migrate database: %w", err)
	}
	log.Println("Database auto migration completed.")
	return nil
}

// Close closes the underlying connection.
func (f *Factory) Close() error {
	if f.provider != nil {
		return f.provider.Close()
	}
	return nil
}

// Ping checks the connection.
func (f *Factory) Ping() error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}
	return f.provider.Ping()
}
