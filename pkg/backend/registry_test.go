package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{"dav", "ftp", "local", "s3", "sftp", "smb", "swift"}, r.Classes())

	personal, ok := r.Lookup(ClassLocal)
	assert.True(t, ok)
	assert.False(t, personal)

	personal, ok = r.Lookup(ClassSMB)
	assert.True(t, ok)
	assert.True(t, personal)

	_, ok = r.Lookup("floppy")
	assert.False(t, ok)
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(Definition{Class: "custom"}))
	assert.Error(t, r.Register(Definition{Class: "custom"}))
	assert.Error(t, r.Register(Definition{}))

	def, ok := r.Get("custom")
	require.True(t, ok)
	assert.Equal(t, "custom", def.Class)
}

func TestRegistryRestrict(t *testing.T) {
	r := DefaultRegistry()

	restricted, err := r.Restrict([]string{ClassSMB, ClassDAV})
	require.NoError(t, err)
	assert.Equal(t, []string{"dav", "smb"}, restricted.Classes())

	_, err = r.Restrict([]string{"floppy"})
	assert.Error(t, err)
}

func TestRegistrySetPersonalAllowed(t *testing.T) {
	r := DefaultRegistry()

	require.NoError(t, r.SetPersonalAllowed(ClassLocal, true))
	personal, _ := r.Lookup(ClassLocal)
	assert.True(t, personal)

	assert.Error(t, r.SetPersonalAllowed("floppy", true))
}
