// Package testing provides a conformance suite shared by every
// mount.ConfigStore implementation.
//
// Example:
//
//	func TestMemoryStore(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) store.Store { return memory.New() },
//	    }
//	    suite.Run(t)
//	}
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/marmos91/extmounts/pkg/mount"
	"github.com/marmos91/extmounts/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite runs the same tests against any store.Store.
type StoreTestSuite struct {
	// NewStore returns a fresh, empty store. The suite closes it.
	NewStore func(t *testing.T) store.Store
}

// Run executes every test group.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("ReadWrite", suite.RunReadWriteTests)
	t.Run("Scopes", suite.RunScopeTests)
	t.Run("Service", suite.RunServiceTests)
	t.Run("Lifecycle", suite.RunLifecycleTests)
}

func (suite *StoreTestSuite) newStore(t *testing.T) store.Store {
	t.Helper()
	s := suite.NewStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// sampleTable returns a table with two configs, one shared by a user and a
// group.
func sampleTable() mount.RawMountTable {
	priority := 100
	shared := mount.StorageOptions{
		ID:       2,
		Class:    "smb",
		Options:  map[string]any{"host": "nas.example.com", "share": "team"},
		Priority: &priority,
	}
	return mount.RawMountTable{
		mount.MountTypeUser: {
			mount.ApplicableAll: {
				"/$user/files/everyone": {ID: 1, Class: "local", Options: map[string]any{"datadir": "/srv/data"}},
			},
			"alice": {"/$user/files/team": shared},
		},
		mount.MountTypeGroup: {
			"admins": {"/$user/files/team": shared},
		},
	}
}

// RunReadWriteTests covers the basic table round trip.
func (suite *StoreTestSuite) RunReadWriteTests(t *testing.T) {
	ctx := context.Background()

	t.Run("UnwrittenScopeIsEmpty", func(t *testing.T) {
		s := suite.newStore(t)

		table, err := s.ReadRaw(ctx, mount.GlobalScope())
		require.NoError(t, err)
		assert.Empty(t, table)
	})

	t.Run("WriteThenRead", func(t *testing.T) {
		s := suite.newStore(t)

		require.NoError(t, s.WriteRaw(ctx, mount.GlobalScope(), sampleTable()))

		table, err := s.ReadRaw(ctx, mount.GlobalScope())
		require.NoError(t, err)
		assert.Equal(t, sampleTable(), table)
	})

	t.Run("WriteReplacesTable", func(t *testing.T) {
		s := suite.newStore(t)

		require.NoError(t, s.WriteRaw(ctx, mount.GlobalScope(), sampleTable()))

		replacement := mount.RawMountTable{
			mount.MountTypeUser: {
				mount.ApplicableAll: {"/$user/files/other": {ID: 5, Class: "dav"}},
			},
		}
		require.NoError(t, s.WriteRaw(ctx, mount.GlobalScope(), replacement))

		table, err := s.ReadRaw(ctx, mount.GlobalScope())
		require.NoError(t, err)
		assert.Equal(t, replacement, table)
	})

	t.Run("WriteEmptyTable", func(t *testing.T) {
		s := suite.newStore(t)

		require.NoError(t, s.WriteRaw(ctx, mount.GlobalScope(), sampleTable()))
		require.NoError(t, s.WriteRaw(ctx, mount.GlobalScope(), mount.RawMountTable{}))

		table, err := s.ReadRaw(ctx, mount.GlobalScope())
		require.NoError(t, err)
		assert.Empty(t, table)
	})

	t.Run("ReadReturnsCopy", func(t *testing.T) {
		s := suite.newStore(t)

		require.NoError(t, s.WriteRaw(ctx, mount.GlobalScope(), sampleTable()))

		first, err := s.ReadRaw(ctx, mount.GlobalScope())
		require.NoError(t, err)
		delete(first, mount.MountTypeGroup)
		first[mount.MountTypeUser][mount.ApplicableAll]["/$user/files/everyone"].Options["datadir"] = "/tmp"

		second, err := s.ReadRaw(ctx, mount.GlobalScope())
		require.NoError(t, err)
		assert.Equal(t, sampleTable(), second)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		s := suite.newStore(t)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := s.ReadRaw(cancelled, mount.GlobalScope())
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, s.WriteRaw(cancelled, mount.GlobalScope(), sampleTable()), context.Canceled)
	})
}

// RunScopeTests checks that scopes never see each other's tables.
func (suite *StoreTestSuite) RunScopeTests(t *testing.T) {
	ctx := context.Background()

	t.Run("Isolation", func(t *testing.T) {
		s := suite.newStore(t)

		personal := mount.RawMountTable{
			mount.MountTypeUser: {
				"alice": {"/alice/files/dav": {ID: 1, Class: "dav", Options: map[string]any{"host": "dav.example.com"}}},
			},
		}

		require.NoError(t, s.WriteRaw(ctx, mount.GlobalScope(), sampleTable()))
		require.NoError(t, s.WriteRaw(ctx, mount.UserScope("alice"), personal))

		global, err := s.ReadRaw(ctx, mount.GlobalScope())
		require.NoError(t, err)
		assert.Equal(t, sampleTable(), global)

		alice, err := s.ReadRaw(ctx, mount.UserScope("alice"))
		require.NoError(t, err)
		assert.Equal(t, personal, alice)

		bob, err := s.ReadRaw(ctx, mount.UserScope("bob"))
		require.NoError(t, err)
		assert.Empty(t, bob)
	})

	t.Run("ConcurrentScopes", func(t *testing.T) {
		s := suite.newStore(t)

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := range 10 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				user := fmt.Sprintf("user%d", i)
				table := mount.RawMountTable{
					mount.MountTypeUser: {
						user: {fmt.Sprintf("/%s/files/m", user): {ID: i + 1, Class: "smb"}},
					},
				}
				errs <- s.WriteRaw(ctx, mount.UserScope(user), table)
			}(i)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		for i := range 10 {
			user := fmt.Sprintf("user%d", i)
			table, err := s.ReadRaw(ctx, mount.UserScope(user))
			require.NoError(t, err)
			assert.Equal(t, i+1, table[mount.MountTypeUser][user][fmt.Sprintf("/%s/files/m", user)].ID)
		}
	})
}

// RunServiceTests drives a mount.Service on top of the store.
func (suite *StoreTestSuite) RunServiceTests(t *testing.T) {
	ctx := context.Background()

	t.Run("GlobalLifecycle", func(t *testing.T) {
		s := suite.newStore(t)

		service, err := mount.NewGlobalService(mount.ServiceConfig{Store: s})
		require.NoError(t, err)

		added, err := service.Add(ctx, &mount.MountConfig{
			MountPoint:      "/team",
			BackendClass:    "smb",
			BackendOptions:  map[string]any{"host": "nas"},
			ApplicableUsers: []string{"alice", "bob"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, added.ID)

		// A second service instance sees the persisted record.
		reopened, err := mount.NewGlobalService(mount.ServiceConfig{Store: s})
		require.NoError(t, err)

		got, err := reopened.Get(ctx, added.ID)
		require.NoError(t, err)
		assert.Equal(t, "team", got.MountPoint)
		assert.Equal(t, []string{"alice", "bob"}, got.ApplicableUsers)

		require.NoError(t, reopened.Remove(ctx, added.ID))

		list, err := service.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("PersonalLifecycle", func(t *testing.T) {
		s := suite.newStore(t)

		service, err := mount.NewUserService("alice", mount.ServiceConfig{Store: s})
		require.NoError(t, err)

		added, err := service.Add(ctx, &mount.MountConfig{MountPoint: "dav", BackendClass: "dav"})
		require.NoError(t, err)

		updated := added.Clone()
		updated.BackendOptions = map[string]any{"host": "dav.example.com"}
		_, err = service.Update(ctx, updated)
		require.NoError(t, err)

		got, err := service.Get(ctx, added.ID)
		require.NoError(t, err)
		assert.Equal(t, "dav.example.com", got.BackendOptions["host"])

		global, err := s.ReadRaw(ctx, mount.GlobalScope())
		require.NoError(t, err)
		assert.Empty(t, global)
	})
}

// RunLifecycleTests covers Close.
func (suite *StoreTestSuite) RunLifecycleTests(t *testing.T) {
	t.Run("UseAfterClose", func(t *testing.T) {
		s := suite.NewStore(t)
		require.NoError(t, s.Close())

		_, err := s.ReadRaw(context.Background(), mount.GlobalScope())
		assert.ErrorIs(t, err, store.ErrClosed)
	})
}
