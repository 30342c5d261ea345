package config

import (
	"context"
	"fmt"

	"github.com/marmos91/extmounts/pkg/metrics"
	"github.com/marmos91/extmounts/pkg/store"
	storeBadger "github.com/marmos91/extmounts/pkg/store/badger"
	storeFs "github.com/marmos91/extmounts/pkg/store/filesystem"
	storeMemory "github.com/marmos91/extmounts/pkg/store/memory"
	storePostgres "github.com/marmos91/extmounts/pkg/store/postgres"
	storeRedis "github.com/marmos91/extmounts/pkg/store/redis"
	storeS3 "github.com/marmos91/extmounts/pkg/store/s3"
	"github.com/mitchellh/mapstructure"
)

// CreateConfigStore creates the config store selected by cfg.Type.
//
// The type-specific section is decoded into the store's own Config type.
// Every call on the returned store is recorded in m.
//
// Supported types:
//   - "memory": process local, nothing persisted
//   - "filesystem": legacy mount.json files under datadir
//   - "badger": embedded BadgerDB database at db_path
//   - "s3": JSON objects in an S3 compatible bucket
//   - "redis": JSON strings in a Redis database
//   - "postgres": jsonb rows in a PostgreSQL table
func CreateConfigStore(ctx context.Context, cfg *StoreConfig, m metrics.MountMetrics) (store.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		s   store.Store
		err error
	)
	switch cfg.Type {
	case "memory":
		s = storeMemory.New()
	case "filesystem":
		s, err = createFilesystemStore(ctx, cfg.Filesystem)
	case "badger":
		s, err = createBadgerStore(ctx, cfg.Badger)
	case "s3":
		s, err = createS3Store(ctx, cfg.S3)
	case "redis":
		s, err = createRedisStore(ctx, cfg.Redis)
	case "postgres":
		s, err = createPostgresStore(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown config store type: %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	return store.WithMetrics(s, cfg.Type, m), nil
}

// decodeOptions decodes a type-specific section into result.
func decodeOptions(options map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}

// createFilesystemStore creates the legacy mount.json store.
func createFilesystemStore(ctx context.Context, options map[string]any) (store.Store, error) {
	var storeCfg storeFs.Config
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem store config: %w", err)
	}

	if storeCfg.DataDir == "" {
		return nil, fmt.Errorf("filesystem store: datadir is required")
	}

	s, err := storeFs.New(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem store: %w", err)
	}
	return s, nil
}

// createBadgerStore creates a BadgerDB store.
func createBadgerStore(ctx context.Context, options map[string]any) (store.Store, error) {
	var storeCfg storeBadger.Config
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger store config: %w", err)
	}

	s, err := storeBadger.New(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger store: %w", err)
	}
	return s, nil
}

// createS3Store creates an S3 store.
func createS3Store(ctx context.Context, options map[string]any) (store.Store, error) {
	var storeCfg storeS3.Config
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}

	s, err := storeS3.New(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}
	return s, nil
}

// createRedisStore creates a Redis store.
func createRedisStore(ctx context.Context, options map[string]any) (store.Store, error) {
	var storeCfg storeRedis.Config
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode redis store config: %w", err)
	}

	s, err := storeRedis.New(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis store: %w", err)
	}
	return s, nil
}

// createPostgresStore creates a PostgreSQL store.
func createPostgresStore(ctx context.Context, options map[string]any) (store.Store, error) {
	storeCfg := storePostgres.Config{AutoMigrate: true}
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode postgres store config: %w", err)
	}

	s, err := storePostgres.New(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres store: %w", err)
	}
	return s, nil
}
