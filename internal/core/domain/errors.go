package domain

import "go.trai.ch/zerr"

var (
	// ErrConfig is returned for malformed options files, Bubfiles, unknown
	// rules and bad build-command classifications.
	ErrConfig = zerr.New("configuration error")

	// ErrRuleViolation is returned when a declared or discovered dependency
	// breaks the visibility or ordering rules.
	ErrRuleViolation = zerr.New("rule violation")

	// ErrUnknownEntity is returned when a reference names a file, library or
	// trail that does not exist in the project.
	ErrUnknownEntity = zerr.New("unknown entity")

	// ErrActionFailure is returned when a worker reports a non-zero exit.
	ErrActionFailure = zerr.New("action failed")

	// ErrSchedulerStalled is returned when all workers are idle but
	// outstanding files remain. It indicates an internal inconsistency.
	ErrSchedulerStalled = zerr.New("scheduler stalled with outstanding files")

	// ErrCircularReference is returned when a reference walk exceeds the
	// depth bound.
	// It wraps ErrRuleViolation.
	ErrCircularReference = zerr.Wrap(ErrRuleViolation, "circular reference")

	// ErrDuplicateDefinition is returned when a trail, path or variable is
	// defined twice. It wraps ErrConfig.
	ErrDuplicateDefinition = zerr.Wrap(ErrConfig, "duplicate definition")

	// ErrBuildFailed names a build that ends with built files outstanding.
	// The planner's Build does not return this sentinel: it wraps the
	// underlying failure with the same message, so errors.Is matches that
	// failure's own sentinel.
	ErrBuildFailed = zerr.New("build failed")
)
