package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/extmounts/pkg/mount"
	"github.com/marmos91/extmounts/pkg/store"
	storetesting "github.com/marmos91/extmounts/pkg/store/testing"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps string values in memory.
type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	default:
		return redis.NewStatusResult("", fmt.Errorf("unsupported value type %T", value))
	}
	return redis.NewStatusResult("OK", nil)
}

func TestRedisStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.Store {
			return NewWithClient(newFakeRedis(), "")
		},
	}
	suite.Run(t)
}

func TestKeys(t *testing.T) {
	s := NewWithClient(newFakeRedis(), "")

	key, err := s.Key(mount.GlobalScope())
	require.NoError(t, err)
	assert.Equal(t, "extmounts:mount:global", key)

	key, err = s.Key(mount.UserScope("alice"))
	require.NoError(t, err)
	assert.Equal(t, "extmounts:mount:user:alice", key)

	_, err = s.Key(mount.UserScope("a/b"))
	assert.Error(t, err)

	key, err = NewWithClient(newFakeRedis(), "tenant1:").Key(mount.GlobalScope())
	require.NoError(t, err)
	assert.Equal(t, "tenant1:global", key)
}

func TestStoresLegacyJSON(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	s := NewWithClient(fake, "")

	table := mount.RawMountTable{
		mount.MountTypeGroup: {
			"admins": {"/$user/files/backup": {ID: 3, Class: "sftp", Options: map[string]any{"host": "backup"}}},
		},
	}
	require.NoError(t, s.WriteRaw(ctx, mount.GlobalScope(), table))

	decoded, err := mount.UnmarshalTable([]byte(fake.values["extmounts:mount:global"]))
	require.NoError(t, err)
	assert.Equal(t, table, decoded)
}

func TestReadErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("server error", func(t *testing.T) {
		fake := newFakeRedis()
		fake.getErr = errors.New("LOADING dataset in memory")

		_, err := NewWithClient(fake, "").ReadRaw(ctx, mount.GlobalScope())
		assert.ErrorContains(t, err, "LOADING")
	})

	t.Run("corrupt value", func(t *testing.T) {
		fake := newFakeRedis()
		fake.values["extmounts:mount:global"] = "{not json"

		_, err := NewWithClient(fake, "").ReadRaw(ctx, mount.GlobalScope())
		assert.Error(t, err)
	})
}

func TestNewRequiresAddr(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}
