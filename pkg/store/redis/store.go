// Package redis stores mount tables as JSON strings in Redis.
//
// Each scope is one key: <prefix>global or <prefix>user:<owner>. Values use
// the legacy JSON format of the filesystem store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/marmos91/extmounts/internal/logger"
	"github.com/marmos91/extmounts/pkg/mount"
	"github.com/marmos91/extmounts/pkg/store"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces the keys written by the store.
const DefaultPrefix = "extmounts:mount:"

// API is the subset of *redis.Client used by the store.
type API interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Config holds the Redis store options.
type Config struct {
	Addr         string        `mapstructure:"addr"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Prefix       string        `mapstructure:"prefix"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Store reads and writes mount tables as Redis strings.
type Store struct {
	client API
	prefix string
	close  func() error
	closed atomic.Bool
}

// New connects to the server at cfg.Addr and checks it answers PING.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis store: addr is required")
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 3 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 3 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	logger.Debug("Connected to redis at %s (db %d)", cfg.Addr, cfg.DB)

	s := NewWithClient(client, cfg.Prefix)
	s.close = client.Close
	return s, nil
}

// NewWithClient returns a store using an existing client. An empty prefix
// selects DefaultPrefix.
func NewWithClient(client API, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Key returns the key holding the table of scope.
func (s *Store) Key(scope mount.Scope) (string, error) {
	if scope.IsPersonal() {
		if err := store.ValidateOwner(scope.Owner); err != nil {
			return "", err
		}
	}
	return s.prefix + scope.String(), nil
}

func (s *Store) ReadRaw(ctx context.Context, scope mount.Scope) (mount.RawMountTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, store.ErrClosed
	}

	key, err := s.Key(scope)
	if err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return mount.RawMountTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redis key %s: %w", key, err)
	}

	table, err := mount.UnmarshalTable(data)
	if err != nil {
		return nil, fmt.Errorf("redis key %s: %w", key, err)
	}
	return table, nil
}

func (s *Store) WriteRaw(ctx context.Context, scope mount.Scope, table mount.RawMountTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return store.ErrClosed
	}

	key, err := s.Key(scope)
	if err != nil {
		return err
	}

	data, err := mount.MarshalTable(table)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set redis key %s: %w", key, err)
	}
	return nil
}

// Close releases the connection pool when the store created it.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.close != nil {
		if err := s.close(); err != nil {
			return fmt.Errorf("failed to close redis client: %w", err)
		}
	}
	return nil
}
