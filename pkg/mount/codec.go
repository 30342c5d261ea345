package mount

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Codec translates between the legacy RawMountTable and normalized
// MountConfig records. It performs no I/O.
type Codec struct {
	// Secrets is applied to backend options: Decrypt after decoding,
	// Encrypt before encoding. Nil means options are stored as-is.
	Secrets SecretTransform
}

// NewCodec returns a codec using the given secret transform.
func NewCodec(secrets SecretTransform) *Codec {
	if secrets == nil {
		secrets = PlainSecrets{}
	}
	return &Codec{Secrets: secrets}
}

func (c *Codec) secrets() SecretTransform {
	if c == nil || c.Secrets == nil {
		return PlainSecrets{}
	}
	return c.Secrets
}

// Decode groups the leaves of raw by config id and rebuilds one MountConfig
// per id.
//
// Leaves that failed to parse, and leaves whose root mount path cannot be
// split into entity, "files" and a mount point, are skipped. One
// ErrMalformedRecord error per skipped leaf is returned alongside the decoded
// configs so the caller can log them.
//
// Traversal order is deterministic ("user" before "group", then sorted
// applicables and paths) so rebuilt applicable lists are stable.
func (c *Codec) Decode(raw RawMountTable) (map[int]*MountConfig, []error) {
	configs := make(map[int]*MountConfig)
	var malformed []error

	for _, mountType := range sortedMountTypes(raw) {
		applicables := raw[mountType]
		for _, applicable := range slices.Sorted(maps.Keys(applicables)) {
			paths := applicables[applicable]
			for _, rootPath := range slices.Sorted(maps.Keys(paths)) {
				options := paths[rootPath]

				if options.decodeErr != nil {
					malformed = append(malformed, &Error{
						Code:    ErrMalformedRecord,
						Message: fmt.Sprintf("could not parse storage options: %v", options.decodeErr),
						ID:      options.ID,
						Path:    rootPath,
					})
					continue
				}

				_, mountPoint, ok := splitRootMountPath(rootPath)
				if !ok {
					malformed = append(malformed, &Error{
						Code:    ErrMalformedRecord,
						Message: fmt.Sprintf("could not parse mount point of storage %d", options.ID),
						ID:      options.ID,
						Path:    rootPath,
					})
					continue
				}

				cfg, seen := configs[options.ID]
				if !seen {
					cfg = &MountConfig{
						ID:         options.ID,
						MountPoint: mountPoint,
					}
					configs[options.ID] = cfg
				}

				cfg.BackendClass = options.Class
				cfg.BackendOptions = options.Options
				if options.Priority != nil {
					priority := *options.Priority
					cfg.Priority = &priority
				}

				switch mountType {
				case MountTypeUser:
					if applicable != ApplicableAll && !slices.Contains(cfg.ApplicableUsers, applicable) {
						cfg.ApplicableUsers = append(cfg.ApplicableUsers, applicable)
					}
				case MountTypeGroup:
					if !slices.Contains(cfg.ApplicableGroups, applicable) {
						cfg.ApplicableGroups = append(cfg.ApplicableGroups, applicable)
					}
				}
			}
		}
	}

	secrets := c.secrets()
	for _, cfg := range configs {
		cfg.BackendOptions = secrets.Decrypt(cfg.BackendOptions)
	}

	return configs, malformed
}

// Encode expands every config into one leaf per applicable of the scope's
// effective applicable set. Backend options are encrypted once per config and
// shared by all of its leaves.
func (c *Codec) Encode(configs map[int]*MountConfig, scope Scope) RawMountTable {
	table := make(RawMountTable)
	secrets := c.secrets()

	for _, id := range slices.Sorted(maps.Keys(configs)) {
		cfg := configs[id]

		options := StorageOptions{
			ID:      cfg.ID,
			Class:   cfg.BackendClass,
			Options: secrets.Encrypt(cfg.BackendOptions),
		}
		if cfg.Priority != nil {
			priority := *cfg.Priority
			options.Priority = &priority
		}

		rootPath := rootMountPath(scope.RootEntity(), cfg.MountPoint)
		for _, applicable := range scope.Effective(cfg) {
			table.add(applicable.Type, applicable.Entity, rootPath, options)
		}
	}

	return table
}

// sortedMountTypes lists the table's mount types: user, group, then any
// unknown type in lexical order.
func sortedMountTypes(raw RawMountTable) []MountType {
	rank := func(t MountType) int {
		switch t {
		case MountTypeUser:
			return 0
		case MountTypeGroup:
			return 1
		default:
			return 2
		}
	}

	types := slices.Collect(maps.Keys(raw))
	slices.SortFunc(types, func(a, b MountType) int {
		if r := cmp.Compare(rank(a), rank(b)); r != 0 {
			return r
		}
		return cmp.Compare(a, b)
	})
	return types
}
