package mount

import (
	"context"
)

// ConfigStore reads and writes the raw legacy table of one scope.
//
// Implementations own the persistence format and location. A scope that was
// never written reads as an empty table (not an error). WriteRaw replaces the
// whole table; there are no partial writes.
//
// The legacy format has no locking: two processes writing the same scope can
// overwrite each other.
type ConfigStore interface {
	ReadRaw(ctx context.Context, scope Scope) (RawMountTable, error)
	WriteRaw(ctx context.Context, scope Scope, table RawMountTable) error
}

// SecretTransform protects secrets inside backend options.
//
// Decrypt must be the inverse of Encrypt. Encrypt must tolerate options that
// are already encrypted and leave them unchanged. Neither call may mutate its
// argument.
type SecretTransform interface {
	Encrypt(options map[string]any) map[string]any
	Decrypt(options map[string]any) map[string]any
}

// StatusProbe checks whether a backend is reachable with the given options.
//
// Check never fails: problems degrade to a non-success status code.
type StatusProbe interface {
	Check(ctx context.Context, backendClass string, options map[string]any, personal bool) StatusCode
}

// NotificationSink receives mount-changed events.
//
// Notify is fire-and-forget; the service neither waits for nor inspects the
// outcome of delivery.
type NotificationSink interface {
	Notify(event ChangeEvent)
}

// BackendRegistry answers whether a backend class is known and whether it may
// be used for personal mounts.
type BackendRegistry interface {
	Lookup(backendClass string) (personalAllowed bool, ok bool)
}

// PlainSecrets is a SecretTransform that leaves options untouched.
type PlainSecrets struct{}

func (PlainSecrets) Encrypt(options map[string]any) map[string]any { return cloneOptions(options) }
func (PlainSecrets) Decrypt(options map[string]any) map[string]any { return cloneOptions(options) }

// StaticProbe is a StatusProbe that always returns the same code.
type StaticProbe StatusCode

func (p StaticProbe) Check(context.Context, string, map[string]any, bool) StatusCode {
	return StatusCode(p)
}

// DiscardSink drops every notification.
type DiscardSink struct{}

func (DiscardSink) Notify(ChangeEvent) {}
