package mount

import (
	"slices"
)

// Signal is the kind of mount change announced to a NotificationSink.
type Signal int

const (
	// SignalCreated announces that a mount became visible to an entity.
	SignalCreated Signal = iota

	// SignalDeleted announces that a mount is no longer visible to an entity.
	SignalDeleted
)

// String returns the hook name used by the file service.
func (s Signal) String() string {
	switch s {
	case SignalCreated:
		return "create_mount"
	case SignalDeleted:
		return "delete_mount"
	default:
		return "unknown"
	}
}

// ChangeEvent is one notification tuple.
type ChangeEvent struct {
	Signal     Signal
	MountPoint string
	MountType  MountType
	Entity     string
}

// CreationEvents announces cfg to every applicable of its expanded set.
func CreationEvents(cfg *MountConfig) []ChangeEvent {
	return applicableEvents(SignalCreated, cfg)
}

// DeletionEvents withdraws cfg from every applicable of its expanded set.
func DeletionEvents(cfg *MountConfig) []ChangeEvent {
	return applicableEvents(SignalDeleted, cfg)
}

func applicableEvents(signal Signal, cfg *MountConfig) []ChangeEvent {
	applicables := cfg.Applicables()
	events := make([]ChangeEvent, 0, len(applicables))
	for _, applicable := range applicables {
		events = append(events, ChangeEvent{
			Signal:     signal,
			MountPoint: cfg.MountPoint,
			MountType:  applicable.Type,
			Entity:     applicable.Entity,
		})
	}
	return events
}

// Diff computes the notifications that turn old into updated.
//
// A changed mount point is a full replacement: every applicable of old is
// deleted, then every applicable of updated is created. Otherwise only the
// applicable delta is announced, in this order:
//
//  1. delete "all" if old applied to everybody
//  2. delete removed users, then removed groups
//  3. create added users, then added groups
//  4. create "all" if updated applies to everybody
func Diff(old, updated *MountConfig) []ChangeEvent {
	if old.MountPoint != updated.MountPoint {
		return append(DeletionEvents(old), CreationEvents(updated)...)
	}

	mountPoint := updated.MountPoint
	var events []ChangeEvent
	emit := func(signal Signal, mountType MountType, entities []string) {
		for _, entity := range entities {
			events = append(events, ChangeEvent{
				Signal:     signal,
				MountPoint: mountPoint,
				MountType:  mountType,
				Entity:     entity,
			})
		}
	}

	userAdditions := difference(updated.ApplicableUsers, old.ApplicableUsers)
	userDeletions := difference(old.ApplicableUsers, updated.ApplicableUsers)
	groupAdditions := difference(updated.ApplicableGroups, old.ApplicableGroups)
	groupDeletions := difference(old.ApplicableGroups, updated.ApplicableGroups)

	if old.AppliesToAll() {
		emit(SignalDeleted, MountTypeUser, []string{ApplicableAll})
	}

	emit(SignalDeleted, MountTypeUser, userDeletions)
	emit(SignalDeleted, MountTypeGroup, groupDeletions)

	emit(SignalCreated, MountTypeUser, userAdditions)
	emit(SignalCreated, MountTypeGroup, groupAdditions)

	if updated.AppliesToAll() {
		emit(SignalCreated, MountTypeUser, []string{ApplicableAll})
	}

	return events
}

// difference returns the elements of a missing from b, in a's order and
// without duplicates.
func difference(a, b []string) []string {
	var result []string
	for _, item := range a {
		if slices.Contains(b, item) || slices.Contains(result, item) {
			continue
		}
		result = append(result, item)
	}
	return result
}
