// Package store holds the mount.ConfigStore implementations and the pieces
// they share.
//
// Implementations:
//   - memory: process local, for tests and ephemeral setups
//   - filesystem: the legacy mount.json files
//   - badger: an embedded BadgerDB database
//   - s3: objects in an S3 compatible bucket
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/marmos91/extmounts/pkg/metrics"
	"github.com/marmos91/extmounts/pkg/mount"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("config store is closed")

// Store is a mount.ConfigStore owning resources that must be released.
type Store interface {
	mount.ConfigStore
	io.Closer
}

// ValidateOwner rejects user ids that cannot be used as a path segment or
// object key component.
func ValidateOwner(owner string) error {
	switch {
	case owner == "":
		return errors.New("user id must not be empty")
	case owner == "." || owner == "..":
		return fmt.Errorf("invalid user id %q", owner)
	case strings.ContainsAny(owner, "/\\\x00"):
		return fmt.Errorf("user id %q contains a path separator", owner)
	}
	return nil
}

// Metered records the latency and outcome of every call into metrics.
type Metered struct {
	next      Store
	storeType string
	metrics   metrics.MountMetrics
}

// WithMetrics wraps next. A nil m returns next unchanged.
func WithMetrics(next Store, storeType string, m metrics.MountMetrics) Store {
	if m == nil {
		return next
	}
	return &Metered{next: next, storeType: storeType, metrics: m}
}

func (s *Metered) ReadRaw(ctx context.Context, scope mount.Scope) (mount.RawMountTable, error) {
	start := time.Now()
	table, err := s.next.ReadRaw(ctx, scope)
	s.metrics.RecordStoreOperation(s.storeType, "read", time.Since(start), err)
	return table, err
}

func (s *Metered) WriteRaw(ctx context.Context, scope mount.Scope, table mount.RawMountTable) error {
	start := time.Now()
	err := s.next.WriteRaw(ctx, scope, table)
	s.metrics.RecordStoreOperation(s.storeType, "write", time.Since(start), err)
	return err
}

func (s *Metered) Close() error {
	return s.next.Close()
}
