package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/veloria/phototheque/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormProvider implements Provider on top of GORM.
type GormProvider struct {
	db     *gorm.DB
	dbType string
}

// NewGormProvider opens a connection according to the configuration.
// Supported backends: sqlite (default) and postgres.
func NewGormProvider(cfg *config.Config) (*GormProvider, error) {
	dbType := cfg.DBType

	logLevel := logger.Silent
	colorful := false
	if config.IsDevelopment() {
		logLevel = logger.Info
		colorful = true
	}
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  colorful,
		},
	)

	var db *gorm.DB
	var err error

	switch dbType {
	case "sqlite", "sqlite3", "":
		path := cfg.DBFilePath
		if path == "" {
			path = "./data/phototheque.db"
		}
		dsn := fmt.Sprintf("%s?_journal_mode=WAL", path)
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
			Logger:                 gormLogger,
			PrepareStmt:            true,
			SkipDefaultTransaction: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite3 database: %w", err)
		}
		dbType = "sqlite"
		log.Printf("Using SQLite database file: %s", path)

	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.DBHost, cfg.DBPort, cfg.DBUsername, cfg.DBPassword, cfg.DBName)
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:                 gormLogger,
			PrepareStmt:            true,
			SkipDefaultTransaction: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
		}
		dbType = "postgres"
		log.Printf("Connected to PostgreSQL database on %s:%d", cfg.DBHost, cfg.DBPort)

	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns := cfg.DBMaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 100
	}
	maxIdleConns := cfg.DBMaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = 10
	}
	connMaxLifetime := cfg.DBConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = 3600
	}

	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)

	return &GormProvider{
		db:     db,
		dbType: dbType,
	}, nil
}

func (p *GormProvider) DB() *gorm.DB {
	return p.db
}

func (p *GormProvider) WithContext(ctx context.Context) *gorm.DB {
	return p.db.WithContext(ctx)
}

func (p *GormProvider) Transaction(fn TxFunc) error {
	return p.db.Transaction(fn)
}

func (p *GormProvider) TransactionWithContext(ctx context.Context, fn TxFunc) error {
	return p.db.WithContext(ctx).Transaction(fn)
}

func (p *GormProvider) AutoMigrate(models ...interface{}) error {
	return p.db.AutoMigrate(models...)
}

func (p *GormProvider) SQLDB() (*sql.DB, error) {
	return p.db.DB()
}

func (p *GormProvider) Ping() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (p *GormProvider) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	log.Println("Closing database connection...")
	return sqlDB.Close()
}

func (p *GormProvider) Name() string {
	return p.dbType
}
