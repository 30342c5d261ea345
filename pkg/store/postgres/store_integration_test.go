//go:build integration
// +build integration

package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/marmos91/extmounts/pkg/store"
	storetesting "github.com/marmos91/extmounts/pkg/store/testing"
	"github.com/stretchr/testify/require"
)

// TestPostgresStore_Integration runs the store suite against PostgreSQL.
//
// Prerequisites:
//   - PostgreSQL reachable through POSTGRES_DSN (defaults to a local server)
//   - Run with: go test -tags=integration ./pkg/store/postgres/...
//
// To start PostgreSQL:
//
//	docker run --rm -p 5432:5432 -e POSTGRES_PASSWORD=test postgres:16
func TestPostgresStore_Integration(t *testing.T) {
	ctx := context.Background()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=test dbname=postgres sslmode=disable"
	}

	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.Store {
			s, err := New(ctx, Config{DSN: dsn, AutoMigrate: true})
			require.NoError(t, err, "is PostgreSQL reachable with %q?", dsn)

			// Each test starts from an empty table.
			require.NoError(t, s.db.Exec("DELETE FROM mount_tables").Error)
			return s
		},
	}
	suite.Run(t)
}
