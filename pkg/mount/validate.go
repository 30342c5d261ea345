package mount

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator checks configs before any read-modify-write cycle starts.
type Validator struct {
	// Backends lists the known backend classes. Nil accepts any class.
	Backends BackendRegistry

	validate *validator.Validate
}

// NewValidator returns a validator checking backend classes against backends.
func NewValidator(backends BackendRegistry) *Validator {
	return &Validator{
		Backends: backends,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Normalize returns a copy of cfg with its mount point normalized.
func Normalize(cfg *MountConfig) *MountConfig {
	normalized := cfg.Clone()
	normalized.MountPoint = NormalizeMountPoint(cfg.MountPoint)
	return normalized
}

// Validate checks an already normalized config for use in scope.
//
// Returns an *Error with code ErrInvalidMountPoint, ErrInvalidBackend or
// ErrInvalidArgument.
func (v *Validator) Validate(cfg *MountConfig, scope Scope) error {
	if cfg.MountPoint == "" || cfg.MountPoint == "/" {
		return &Error{
			Code:    ErrInvalidMountPoint,
			Message: "invalid mount point",
			ID:      cfg.ID,
			Path:    cfg.MountPoint,
		}
	}

	if err := v.validate.Struct(cfg); err != nil {
		return translateValidationError(cfg, err)
	}

	if v.Backends == nil {
		return nil
	}

	personalAllowed, ok := v.Backends.Lookup(cfg.BackendClass)
	if !ok {
		return &Error{
			Code:    ErrInvalidBackend,
			Message: fmt.Sprintf("invalid storage backend %q", cfg.BackendClass),
			ID:      cfg.ID,
		}
	}
	if scope.IsPersonal() && !personalAllowed {
		return &Error{
			Code:    ErrInvalidBackend,
			Message: fmt.Sprintf("storage backend %q is not allowed for personal mounts", cfg.BackendClass),
			ID:      cfg.ID,
		}
	}

	return nil
}

// translateValidationError maps the first struct tag failure to a domain error.
func translateValidationError(cfg *MountConfig, err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return &Error{Code: ErrInvalidArgument, Message: err.Error(), ID: cfg.ID}
	}

	first := validationErrs[0]
	code := ErrInvalidArgument
	switch first.StructField() {
	case "MountPoint":
		code = ErrInvalidMountPoint
	case "BackendClass":
		code = ErrInvalidBackend
	}

	return &Error{
		Code:    code,
		Message: fmt.Sprintf("%s: validation failed on '%s' tag (value: %v)", first.Namespace(), first.Tag(), first.Value()),
		ID:      cfg.ID,
	}
}
