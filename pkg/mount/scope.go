package mount

import (
	"slices"
)

// GlobalRootEntity is the placeholder user segment used in the root mount
// paths of global configs; it is substituted per user at mount time.
const GlobalRootEntity = "$user"

// ScopeKind tells global and per-user scopes apart.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeUser
)

// String returns "global" or "user".
func (k ScopeKind) String() string {
	if k == ScopeUser {
		return "user"
	}
	return "global"
}

// Scope is the strategy value that parametrizes the codec and the service.
//
// It holds the few behaviours that differ between global and personal
// mounts: the root path entity, the applicable set written to the table, the
// visibility filter applied on read and the public shape of records.
type Scope struct {
	// Kind is ScopeGlobal or ScopeUser.
	Kind ScopeKind

	// Owner is the owning user id for ScopeUser, empty for ScopeGlobal.
	Owner string

	// rootEntity is the first segment of every root mount path.
	rootEntity string

	// effective returns the applicable set written to the table for cfg.
	effective func(cfg *MountConfig) []Applicable

	// internal converts a public record into the form used for diffing and
	// encoding (per-user: applicable users = {owner}).
	internal func(cfg *MountConfig) *MountConfig

	// visible filters decoded records.
	visible func(cfg *MountConfig) bool

	// public strips fields the scope does not expose.
	public func(cfg *MountConfig) *MountConfig
}

// GlobalScope returns the scope of administrator managed mounts.
func GlobalScope() Scope {
	return Scope{
		Kind:       ScopeGlobal,
		rootEntity: GlobalRootEntity,
		effective: func(cfg *MountConfig) []Applicable {
			return cfg.Applicables()
		},
		internal: func(cfg *MountConfig) *MountConfig { return cfg },
		visible:  func(*MountConfig) bool { return true },
		public:   func(cfg *MountConfig) *MountConfig { return cfg },
	}
}

// UserScope returns the scope of the personal mounts owned by user.
func UserScope(user string) Scope {
	return Scope{
		Kind:       ScopeUser,
		Owner:      user,
		rootEntity: user,
		effective: func(*MountConfig) []Applicable {
			return []Applicable{{Type: MountTypeUser, Entity: user}}
		},
		internal: func(cfg *MountConfig) *MountConfig {
			owned := cfg.Clone()
			owned.ApplicableUsers = []string{user}
			owned.ApplicableGroups = nil
			return owned
		},
		visible: func(cfg *MountConfig) bool {
			return slices.Contains(cfg.ApplicableUsers, user)
		},
		public: func(cfg *MountConfig) *MountConfig {
			stripped := cfg.Clone()
			stripped.ApplicableUsers = nil
			stripped.ApplicableGroups = nil
			return stripped
		},
	}
}

// IsGlobal reports whether this is the global scope.
func (s Scope) IsGlobal() bool {
	return s.Kind == ScopeGlobal
}

// IsPersonal reports whether this is a per-user scope.
func (s Scope) IsPersonal() bool {
	return s.Kind == ScopeUser
}

// RootEntity returns the first segment of the scope's root mount paths.
func (s Scope) RootEntity() string {
	return s.resolved().rootEntity
}

// String returns "global" or "user:<owner>"; stores use it as a key.
func (s Scope) String() string {
	if s.Kind == ScopeUser {
		return "user:" + s.Owner
	}
	return "global"
}

// Effective returns the applicable set cfg is written under in this scope.
func (s Scope) Effective(cfg *MountConfig) []Applicable {
	return s.resolved().effective(cfg)
}

// Internal returns the scope's internal view of cfg, used for diffing.
func (s Scope) Internal(cfg *MountConfig) *MountConfig {
	return s.resolved().internal(cfg)
}

// Visible reports whether a decoded record belongs to this scope.
func (s Scope) Visible(cfg *MountConfig) bool {
	return s.resolved().visible(cfg)
}

// Public returns cfg in the shape exposed to callers of this scope.
func (s Scope) Public(cfg *MountConfig) *MountConfig {
	return s.resolved().public(cfg)
}

// resolved returns s with its behaviour filled in. A Scope literal built
// without GlobalScope or UserScope behaves like the constructor for its Kind.
func (s Scope) resolved() Scope {
	if s.effective != nil {
		return s
	}
	if s.Kind == ScopeUser {
		return UserScope(s.Owner)
	}
	return GlobalScope()
}
