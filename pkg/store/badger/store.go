// Package badger stores mount tables in an embedded BadgerDB database.
//
// Each scope is one key:
//
//	mnt:global        global mounts
//	mnt:user:<user>   personal mounts of <user>
//
// Values are the CBOR encoding of mount.RawMountTable.
package badger

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/fxamacker/cbor/v2"
	"github.com/marmos91/extmounts/pkg/mount"
	"github.com/marmos91/extmounts/pkg/store"
)

const prefixMounts = "mnt:"

// Config holds the BadgerDB store options.
type Config struct {
	// DBPath is the database directory. Ignored when InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps everything in RAM; nothing is persisted.
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 16).
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 8).
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// Store keeps mount tables in BadgerDB.
//
// Thread safety:
// BadgerDB transactions are isolated; WriteRaw replaces a scope's table in a
// single transaction.
type Store struct {
	db  *badger.DB
	enc cbor.EncMode
	dec cbor.DecMode

	closeOnce sync.Once
	closeErr  error
}

// New opens (or creates) the database described by cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.DBPath == "" && !cfg.InMemory {
		return nil, errors.New("badger store: db_path is required")
	}

	opts := badger.DefaultOptions(cfg.DBPath)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	// Mount tables are tiny; keep caches small and skip compression.
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := cfg.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 16
	}
	indexCacheMB := cfg.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 8
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR decoder: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

func keyMounts(scope mount.Scope) []byte {
	return []byte(prefixMounts + scope.String())
}

func (s *Store) ReadRaw(ctx context.Context, scope mount.Scope) (mount.RawMountTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.db.IsClosed() {
		return nil, store.ErrClosed
	}
	if scope.IsPersonal() {
		if err := store.ValidateOwner(scope.Owner); err != nil {
			return nil, err
		}
	}

	table := mount.RawMountTable{}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyMounts(scope))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return s.dec.Unmarshal(val, &table)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s mount table: %w", scope, err)
	}
	if table == nil {
		table = mount.RawMountTable{}
	}
	return table, nil
}

func (s *Store) WriteRaw(ctx context.Context, scope mount.Scope, table mount.RawMountTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return store.ErrClosed
	}
	if scope.IsPersonal() {
		if err := store.ValidateOwner(scope.Owner); err != nil {
			return err
		}
	}

	if table == nil {
		table = mount.RawMountTable{}
	}
	data, err := s.enc.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to encode %s mount table: %w", scope, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyMounts(scope), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write %s mount table: %w", scope, err)
	}
	return nil
}

// Scopes lists every scope that has a stored table.
func (s *Store) Scopes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var scopes []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixMounts)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			scopes = append(scopes, string(it.Item().Key()[len(prefixMounts):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}
	return scopes, nil
}

// Close closes the database. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if err := s.db.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close BadgerDB: %w", err)
		}
	})
	return s.closeErr
}
