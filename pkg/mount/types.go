package mount

import (
	"maps"
	"slices"
)

// MountType identifies which kind of entity an applicable refers to.
//
// The values double as the top-level keys of the legacy mount table.
type MountType string

const (
	// MountTypeUser marks an applicable that is a user id (or the "all" sentinel).
	MountTypeUser MountType = "user"

	// MountTypeGroup marks an applicable that is a group id.
	MountTypeGroup MountType = "group"
)

// ApplicableAll is the pseudo user meaning "every user".
const ApplicableAll = "all"

// StatusCode reports the last known reachability of a mount's backend.
type StatusCode int

const (
	// StatusSuccess means the backend answered the last check.
	StatusSuccess StatusCode = 0

	// StatusError means the backend could not be reached or rejected the options.
	StatusError StatusCode = 1

	// StatusIndeterminate means no check could be performed (e.g. throttled).
	StatusIndeterminate StatusCode = 2
)

// String returns a human readable status name.
func (s StatusCode) String() string {
	switch s {
	case StatusSuccess:
		return "ok"
	case StatusError:
		return "error"
	case StatusIndeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// MountConfig is the normalized, in-memory representation of one external
// storage mount.
//
// Instances are ephemeral: they are rebuilt from the stored table on every
// read and written back in full on every mutation.
type MountConfig struct {
	// ID is unique within a scope. Zero means the config has not been saved yet.
	ID int `json:"id,omitempty" yaml:"id,omitempty"`

	// MountPoint is the normalized path below the user's file root, without
	// leading slash (e.g. "backups/smb").
	MountPoint string `json:"mountPoint" yaml:"mountPoint" validate:"required"`

	// BackendClass names the storage backend implementation.
	BackendClass string `json:"backendClass" yaml:"backendClass" validate:"required"`

	// BackendOptions are the backend specific options. May contain secrets
	// (e.g. "password") in plain text; encryption happens on write.
	BackendOptions map[string]any `json:"backendOptions" yaml:"backendOptions"`

	// Priority orders mounts sharing a mount point. Nil when unset.
	Priority *int `json:"priority,omitempty" yaml:"priority,omitempty"`

	// ApplicableUsers lists the users this mount applies to (global scope only).
	ApplicableUsers []string `json:"applicableUsers,omitempty" yaml:"applicableUsers,omitempty" validate:"dive,required,ne=all"`

	// ApplicableGroups lists the groups this mount applies to (global scope only).
	ApplicableGroups []string `json:"applicableGroups,omitempty" yaml:"applicableGroups,omitempty" validate:"dive,required"`

	// Status is computed on read and never persisted.
	Status *StatusCode `json:"status,omitempty" yaml:"status,omitempty"`
}

// Applicable is one (mount type, entity) pair a config applies to.
type Applicable struct {
	Type   MountType
	Entity string
}

// AppliesToAll reports whether the config has no explicit applicable and
// therefore applies to every user.
func (c *MountConfig) AppliesToAll() bool {
	return len(c.ApplicableUsers) == 0 && len(c.ApplicableGroups) == 0
}

// Applicables expands the config's applicable sets: users first, then groups.
// A config without applicables expands to the single user "all".
func (c *MountConfig) Applicables() []Applicable {
	if c.AppliesToAll() {
		return []Applicable{{Type: MountTypeUser, Entity: ApplicableAll}}
	}

	result := make([]Applicable, 0, len(c.ApplicableUsers)+len(c.ApplicableGroups))
	for _, user := range c.ApplicableUsers {
		result = append(result, Applicable{Type: MountTypeUser, Entity: user})
	}
	for _, group := range c.ApplicableGroups {
		result = append(result, Applicable{Type: MountTypeGroup, Entity: group})
	}
	return result
}

// SetStatus attaches a status code.
func (c *MountConfig) SetStatus(status StatusCode) {
	c.Status = &status
}

// Clone returns a deep copy of the config. Nested option values that are maps
// or slices are copied as well.
func (c *MountConfig) Clone() *MountConfig {
	if c == nil {
		return nil
	}

	clone := *c
	clone.BackendOptions = cloneOptions(c.BackendOptions)
	clone.ApplicableUsers = slices.Clone(c.ApplicableUsers)
	clone.ApplicableGroups = slices.Clone(c.ApplicableGroups)
	if c.Priority != nil {
		priority := *c.Priority
		clone.Priority = &priority
	}
	if c.Status != nil {
		status := *c.Status
		clone.Status = &status
	}
	return &clone
}

// cloneOptions deep copies a backend option map.
func cloneOptions(options map[string]any) map[string]any {
	if options == nil {
		return nil
	}

	clone := make(map[string]any, len(options))
	for key, value := range options {
		clone[key] = cloneValue(value)
	}
	return clone
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneOptions(v)
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = cloneValue(v[i])
		}
		return out
	case map[string]string:
		return maps.Clone(v)
	case []string:
		return slices.Clone(v)
	default:
		return v
	}
}
