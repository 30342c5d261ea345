// Package postgres stores mount tables in a PostgreSQL table through GORM.
//
// Each scope is one row keyed by its scope string ("global" or
// "user:<owner>"); the table is kept as a jsonb document in the legacy
// mount.json format.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/extmounts/internal/logger"
	"github.com/marmos91/extmounts/pkg/mount"
	"github.com/marmos91/extmounts/pkg/store"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Config holds the PostgreSQL store options.
type Config struct {
	// DSN is a libpq connection string or postgres:// URL.
	DSN string `mapstructure:"dsn"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// AutoMigrate creates the mount_tables table when missing.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// MountTable is the row holding one scope's table.
type MountTable struct {
	Scope     string `gorm:"primaryKey;size:512"`
	Data      string `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (MountTable) TableName() string { return "mount_tables" }

// Store reads and writes mount tables as rows.
type Store struct {
	db *gorm.DB

	mu     sync.RWMutex
	closed bool
}

// New opens a connection pool to cfg.DSN.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres store: dsn is required")
	}

	db, err := gorm.Open(gormpostgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access postgres pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(&MountTable{}); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate mount_tables: %w", err)
		}
	}

	logger.Debug("Connected to postgres mount store")
	return NewWithDB(db), nil
}

// NewWithDB returns a store using an open GORM handle.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Key returns the primary key of scope's row.
func Key(scope mount.Scope) (string, error) {
	if scope.IsPersonal() {
		if err := store.ValidateOwner(scope.Owner); err != nil {
			return "", err
		}
	}
	return scope.String(), nil
}

func (s *Store) ReadRaw(ctx context.Context, scope mount.Scope) (mount.RawMountTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	key, err := Key(scope)
	if err != nil {
		return nil, err
	}

	var row MountTable
	err = s.db.WithContext(ctx).Where("scope = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return mount.RawMountTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mount table %s: %w", key, err)
	}

	table, err := mount.UnmarshalTable([]byte(row.Data))
	if err != nil {
		return nil, fmt.Errorf("mount table %s: %w", key, err)
	}
	return table, nil
}

func (s *Store) WriteRaw(ctx context.Context, scope mount.Scope, table mount.RawMountTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}

	key, err := Key(scope)
	if err != nil {
		return err
	}

	data, err := mount.MarshalTable(table)
	if err != nil {
		return err
	}

	row := MountTable{Scope: key, Data: string(data), UpdatedAt: time.Now().UTC()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write mount table %s: %w", key, err)
	}
	return nil
}

// Scopes lists the scope keys that have a stored row.
func (s *Store) Scopes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	var scopes []string
	err := s.db.WithContext(ctx).Model(&MountTable{}).Order("scope").Pluck("scope", &scopes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list mount tables: %w", err)
	}
	return scopes, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access postgres pool: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close postgres: %w", err)
	}
	return nil
}
