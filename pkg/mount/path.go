package mount

import (
	"strings"
)

// NormalizePath normalizes a slash separated path.
//
// Duplicate separators and "." segments are removed, a leading slash is
// enforced and trailing slashes are stripped. The root normalizes to "/".
// ".." segments are kept as-is: mount points are never resolved against a
// real filesystem, so there is nothing to climb out of.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")

	segments := strings.Split(path, "/")
	kept := segments[:0]
	for _, segment := range segments {
		if segment == "" || segment == "." {
			continue
		}
		kept = append(kept, segment)
	}

	return "/" + strings.Join(kept, "/")
}

// NormalizeMountPoint returns the canonical stored form of a mount point:
// the normalized path without its leading slash. The root yields "".
func NormalizeMountPoint(mountPoint string) string {
	return strings.TrimPrefix(NormalizePath(mountPoint), "/")
}

// rootMountPath builds the legacy "/<entity>/files/<mountPoint>" key.
func rootMountPath(entity, mountPoint string) string {
	return "/" + entity + "/files/" + strings.TrimLeft(mountPoint, "/")
}

// splitRootMountPath extracts the mount point from a legacy root mount path.
//
// The first two segments (scope entity and "files") are dropped; the rest,
// slashes included, is the mount point. ok is false when fewer than three
// segments remain after trimming the outer separators.
func splitRootMountPath(rootPath string) (entity, mountPoint string, ok bool) {
	parts := strings.SplitN(strings.Trim(rootPath, "/"), "/", 3)
	if len(parts) < 3 {
		return "", "", false
	}
	return parts[0], parts[2], true
}
