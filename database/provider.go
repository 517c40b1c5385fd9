package database

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// TxFunc is the function signature executed inside a transaction.
type TxFunc func(tx *gorm.DB) error

// Provider abstracts the record store connection. There is intentionally
// no package-global handle: a Provider is constructed at startup, passed
// down, and closed at shutdown.
type Provider interface {
	// DB returns the underlying *gorm.DB.
	DB() *gorm.DB

	// WithContext returns a *gorm.DB bound to ctx.
	WithContext(ctx context.Context) *gorm.DB

	// Transaction runs fn inside a transaction.
	Transaction(fn TxFunc) error

	// TransactionWithContext runs fn inside a transaction bound to ctx.
	TransactionWithContext(ctx context.Context, fn TxFunc) error

	// AutoMigrate migrates the given models.
	AutoMigrate(models ...interface{}) error

	// SQLDB returns the underlying sql.DB.
	SQLDB() (*sql.DB, error)

	// Ping checks the connection.
	Ping() error

	// Close closes the connection.
	Close() error

	// Name returns the backing database type.
	Name() string
}
