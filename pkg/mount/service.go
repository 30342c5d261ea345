package mount

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/marmos91/extmounts/internal/logger"
	"github.com/marmos91/extmounts/pkg/metrics"
)

// ServiceConfig wires a Service to its collaborators.
//
// Only Store is required. The other fields default to: plain (unencrypted)
// options, a probe reporting success, a sink discarding notifications, a
// validator accepting any backend class and no-op metrics.
type ServiceConfig struct {
	Store     ConfigStore
	Secrets   SecretTransform
	Probe     StatusProbe
	Sink      NotificationSink
	Validator *Validator
	Metrics   metrics.MountMetrics
}

// Service manages the mount configs of one scope.
//
// Every mutating operation is a single read-modify-write of the whole
// stored table: load, change, persist, then notify. Nothing is cached
// between calls, so each operation sees the latest persisted state.
//
// Operations of one Service are serialized by a mutex. Two Services (or two
// processes) writing the same scope are not coordinated; see ConfigStore.
type Service struct {
	scope     Scope
	store     ConfigStore
	codec     *Codec
	probe     StatusProbe
	sink      NotificationSink
	validator *Validator
	metrics   metrics.MountMetrics

	mu sync.Mutex
}

// NewService creates a Service for scope.
//
// Returns an error if a per-user scope has no owner or if no store is
// configured.
func NewService(scope Scope, config ServiceConfig) (*Service, error) {
	scope = scope.resolved()
	if scope.IsPersonal() && scope.Owner == "" {
		return nil, &Error{Code: ErrInvalidArgument, Message: "per-user scope requires an owner"}
	}
	if config.Store == nil {
		return nil, errors.New("mount service requires a config store")
	}

	s := &Service{
		scope:     scope,
		store:     config.Store,
		codec:     NewCodec(config.Secrets),
		probe:     config.Probe,
		sink:      config.Sink,
		validator: config.Validator,
		metrics:   config.Metrics,
	}
	if s.probe == nil {
		s.probe = StaticProbe(StatusSuccess)
	}
	if s.sink == nil {
		s.sink = DiscardSink{}
	}
	if s.validator == nil {
		s.validator = NewValidator(nil)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewNoopMountMetrics()
	}

	return s, nil
}

// NewGlobalService creates a Service for the administrator managed mounts.
func NewGlobalService(config ServiceConfig) (*Service, error) {
	return NewService(GlobalScope(), config)
}

// NewUserService creates a Service for the personal mounts of user.
func NewUserService(user string, config ServiceConfig) (*Service, error) {
	return NewService(UserScope(user), config)
}

// Scope returns the scope the service operates on.
func (s *Service) Scope() Scope {
	return s.scope
}

// Get returns the config with the given id, with its live backend status
// attached.
//
// Returns an ErrNotFound *Error if id is not live in the scope.
func (s *Service) Get(ctx context.Context, id int) (cfg *MountConfig, err error) {
	defer s.record("Get", time.Now(), &err)

	configs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	stored, ok := configs[id]
	if !ok {
		return nil, NewNotFoundError(id)
	}

	return s.withStatus(ctx, stored), nil
}

// List returns every config of the scope sorted by id, each with its live
// backend status attached.
func (s *Service) List(ctx context.Context) (result []*MountConfig, err error) {
	defer s.record("List", time.Now(), &err)

	configs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	sorted := slices.SortedFunc(maps.Values(configs), func(a, b *MountConfig) int {
		return cmp.Compare(a.ID, b.ID)
	})

	result = make([]*MountConfig, 0, len(sorted))
	for _, cfg := range sorted {
		result = append(result, s.withStatus(ctx, cfg))
	}
	return result, nil
}

// Add stores cfg under a newly generated id and announces it to every
// applicable entity.
//
// Any id set on cfg is ignored. The returned config carries the new id and
// StatusSuccess. Validation errors are returned before the stored table is
// read.
func (s *Service) Add(ctx context.Context, cfg *MountConfig) (added *MountConfig, err error) {
	defer s.record("Add", time.Now(), &err)

	candidate, err := s.prepare(cfg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	candidate.ID = nextID(configs)
	internal := s.scope.Internal(candidate)
	configs[candidate.ID] = internal

	if err := s.persist(ctx, configs); err != nil {
		return nil, err
	}

	logger.Info("%s: added mount %d at /%s (backend %s)", s.scope, candidate.ID, candidate.MountPoint, candidate.BackendClass)
	s.emit(CreationEvents(internal))

	added = s.scope.Public(internal).Clone()
	added.SetStatus(StatusSuccess)
	return added, nil
}

// Update replaces the stored config having cfg.ID with cfg.
//
// The update is a full overwrite: fields left empty in cfg are cleared. The
// notifications needed to move every entity from the old to the new
// visibility are emitted, and the freshly reloaded config is returned.
//
// Returns an ErrNotFound *Error if cfg.ID is zero or not live.
func (s *Service) Update(ctx context.Context, cfg *MountConfig) (updated *MountConfig, err error) {
	defer s.record("Update", time.Now(), &err)

	if cfg == nil {
		return nil, &Error{Code: ErrInvalidArgument, Message: "mount config is required"}
	}
	if cfg.ID <= 0 {
		return nil, NewNotFoundError(cfg.ID)
	}

	candidate, err := s.prepare(cfg)
	if err != nil {
		return nil, err
	}

	if err := s.replace(ctx, candidate); err != nil {
		return nil, err
	}

	return s.Get(ctx, candidate.ID)
}

func (s *Service) replace(ctx context.Context, candidate *MountConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.load(ctx)
	if err != nil {
		return err
	}

	old, ok := configs[candidate.ID]
	if !ok {
		return NewNotFoundError(candidate.ID)
	}

	internal := s.scope.Internal(candidate)
	configs[candidate.ID] = internal

	if err := s.persist(ctx, configs); err != nil {
		return err
	}

	logger.Info("%s: updated mount %d at /%s", s.scope, candidate.ID, candidate.MountPoint)
	s.emit(Diff(s.scope.Internal(old), internal))
	return nil
}

// Remove deletes the config with the given id and withdraws it from every
// entity it applied to.
//
// Returns an ErrNotFound *Error if id is not live.
func (s *Service) Remove(ctx context.Context, id int) (err error) {
	defer s.record("Remove", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.load(ctx)
	if err != nil {
		return err
	}

	old, ok := configs[id]
	if !ok {
		return NewNotFoundError(id)
	}
	delete(configs, id)

	if err := s.persist(ctx, configs); err != nil {
		return err
	}

	logger.Info("%s: removed mount %d at /%s", s.scope, id, old.MountPoint)
	s.emit(DeletionEvents(s.scope.Internal(old)))
	return nil
}

// prepare normalizes and validates a caller supplied config. Per-user
// scopes ignore applicable fields.
func (s *Service) prepare(cfg *MountConfig) (*MountConfig, error) {
	if cfg == nil {
		return nil, &Error{Code: ErrInvalidArgument, Message: "mount config is required"}
	}

	candidate := Normalize(cfg)
	candidate.Status = nil
	if s.scope.IsPersonal() {
		candidate.ApplicableUsers = nil
		candidate.ApplicableGroups = nil
	}

	if err := s.validator.Validate(candidate, s.scope); err != nil {
		return nil, err
	}
	return candidate, nil
}

// load reads and decodes the scope's table. Malformed leaves are logged and
// skipped; records not visible in the scope are dropped.
func (s *Service) load(ctx context.Context) (map[int]*MountConfig, error) {
	raw, err := s.store.ReadRaw(ctx, s.scope)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s mount table: %w", s.scope, err)
	}

	configs, malformed := s.codec.Decode(raw)
	for _, decodeErr := range malformed {
		logger.Warn("%s: skipping stored mount: %v", s.scope, decodeErr)
		s.metrics.RecordMalformedRecord(s.scope.Kind.String())
	}

	for id, cfg := range configs {
		if !s.scope.Visible(cfg) {
			delete(configs, id)
		}
	}

	s.metrics.SetMountCount(s.scope.Kind.String(), len(configs))
	return configs, nil
}

func (s *Service) persist(ctx context.Context, configs map[int]*MountConfig) error {
	table := s.codec.Encode(configs, s.scope)
	if err := s.store.WriteRaw(ctx, s.scope, table); err != nil {
		return fmt.Errorf("failed to write %s mount table: %w", s.scope, err)
	}

	s.metrics.SetMountCount(s.scope.Kind.String(), len(configs))
	return nil
}

// withStatus returns the public form of cfg with the probe's status.
func (s *Service) withStatus(ctx context.Context, cfg *MountConfig) *MountConfig {
	public := s.scope.Public(cfg).Clone()
	public.SetStatus(s.probe.Check(ctx, cfg.BackendClass, cfg.BackendOptions, s.scope.IsPersonal()))
	return public
}

func (s *Service) emit(events []ChangeEvent) {
	for _, event := range events {
		logger.Debug("%s: %s /%s for %s %q", s.scope, event.Signal, event.MountPoint, event.MountType, event.Entity)
		s.metrics.RecordNotification(event.Signal.String(), string(event.MountType))
		s.sink.Notify(event)
	}
}

func (s *Service) record(operation string, start time.Time, err *error) {
	s.metrics.RecordOperation(s.scope.Kind.String(), operation, time.Since(start), *err)
}
