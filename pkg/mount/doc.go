// Package mount implements the external storage mount configuration engine.
//
// A mount config attaches an external storage backend (SMB, FTP, S3, ...) to a
// path below a user's file root. Configs live in one of two scopes:
//
//   - Global: managed by administrators, applicable to a set of users and
//     groups, or to every user when no applicable is set.
//   - Per-user: personal mounts, implicitly owned by a single user.
//
// Both scopes persist into the legacy nested table format (see RawMountTable)
// through a ConfigStore. The package is split into three layers:
//
//   - Codec: pure translation between RawMountTable and normalized MountConfig
//     records.
//   - Diff: computation of the mount-changed notifications produced by a
//     create, update or delete.
//   - Service: read-modify-write orchestration for one Scope, including id
//     assignment, status attachment and notification emission.
//
// Collaborators (storage, secret encryption, backend status probing and
// notification delivery) are consumed through the small interfaces declared in
// interfaces.go.
package mount
