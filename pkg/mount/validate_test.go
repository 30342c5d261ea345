package mount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackends maps a backend class to whether personal mounts may use it.
type stubBackends map[string]bool

func (b stubBackends) Lookup(class string) (bool, bool) {
	personal, ok := b[class]
	return personal, ok
}

func TestValidate(t *testing.T) {
	v := NewValidator(stubBackends{"local": false, "smb": true})

	tests := []struct {
		name  string
		cfg   *MountConfig
		scope Scope
		code  ErrorCode
		ok    bool
	}{
		{
			name:  "valid global",
			cfg:   &MountConfig{MountPoint: "ext", BackendClass: "local"},
			scope: GlobalScope(),
			ok:    true,
		},
		{
			name:  "empty mount point",
			cfg:   &MountConfig{MountPoint: "", BackendClass: "local"},
			scope: GlobalScope(),
			code:  ErrInvalidMountPoint,
		},
		{
			name:  "root mount point",
			cfg:   &MountConfig{MountPoint: "/", BackendClass: "local"},
			scope: GlobalScope(),
			code:  ErrInvalidMountPoint,
		},
		{
			name:  "missing backend",
			cfg:   &MountConfig{MountPoint: "ext"},
			scope: GlobalScope(),
			code:  ErrInvalidBackend,
		},
		{
			name:  "unknown backend",
			cfg:   &MountConfig{MountPoint: "ext", BackendClass: "floppy"},
			scope: GlobalScope(),
			code:  ErrInvalidBackend,
		},
		{
			name:  "backend not allowed for personal mounts",
			cfg:   &MountConfig{MountPoint: "ext", BackendClass: "local"},
			scope: UserScope("alice"),
			code:  ErrInvalidBackend,
		},
		{
			name:  "personal backend",
			cfg:   &MountConfig{MountPoint: "ext", BackendClass: "smb"},
			scope: UserScope("alice"),
			ok:    true,
		},
		{
			name:  "all is not a user",
			cfg:   &MountConfig{MountPoint: "ext", BackendClass: "smb", ApplicableUsers: []string{"all"}},
			scope: GlobalScope(),
			code:  ErrInvalidArgument,
		},
		{
			name:  "empty group name",
			cfg:   &MountConfig{MountPoint: "ext", BackendClass: "smb", ApplicableGroups: []string{""}},
			scope: GlobalScope(),
			code:  ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.cfg, tt.scope)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, mustCode(t, err))
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestValidateWithoutRegistryAcceptsAnyBackend(t *testing.T) {
	v := NewValidator(nil)
	assert.NoError(t, v.Validate(&MountConfig{MountPoint: "x", BackendClass: "anything"}, UserScope("bob")))
}

func TestNormalize(t *testing.T) {
	cfg := &MountConfig{MountPoint: "//a/./b/", BackendClass: "local"}
	normalized := Normalize(cfg)

	assert.Equal(t, "a/b", normalized.MountPoint)
	assert.Equal(t, "//a/./b/", cfg.MountPoint, "input must not be modified")
}
