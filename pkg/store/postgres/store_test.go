package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/extmounts/pkg/mount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func TestKeys(t *testing.T) {
	key, err := Key(mount.GlobalScope())
	require.NoError(t, err)
	assert.Equal(t, "global", key)

	key, err = Key(mount.UserScope("alice"))
	require.NoError(t, err)
	assert.Equal(t, "user:alice", key)

	_, err = Key(mount.UserScope(".."))
	assert.Error(t, err)
}

func TestUpsertStatement(t *testing.T) {
	db, err := gorm.Open(gormpostgres.Open("host=localhost dbname=extmounts"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	row := MountTable{Scope: "global", Data: "{}", UpdatedAt: time.Now()}
	stmt := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, `INSERT INTO "mount_tables"`)
	assert.Contains(t, sql, `ON CONFLICT ("scope") DO UPDATE SET`)
	assert.Contains(t, sql, `"data"="excluded"."data"`)
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}
