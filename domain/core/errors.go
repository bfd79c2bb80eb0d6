package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrConfigNotFound = fmt.Errorf("%w: attribute configuration", ErrNotFound)

	// Configuration errors
	ErrConfigParse      = errors.New("malformed attribute configuration")
	ErrInvalidConfig    = errors.New("invalid attribute configuration")
	ErrUnknownAttribute = fmt.Errorf("%w: unknown attribute", ErrInvalidConfig)
	ErrUnknownLevel     = fmt.Errorf("%w: unknown level", ErrInvalidConfig)

	// Dimensionality errors
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// Input errors
	ErrInvalidPosterior       = errors.New("invalid posterior distribution")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrInsufficientCandidates = errors.New("insufficient candidate pairs")
	ErrForeignProfile         = errors.New("profile does not belong to this profile space")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, resource, id)
}

func NewConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, reason)
}

func NewDimensionError(what string, got, want int) error {
	return fmt.Errorf("%w: %s has length %d, ontology has %d dimensions", ErrDimensionMismatch, what, got, want)
}

func NewArgumentError(arg string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidArgument, arg, reason)
}

func NewPosteriorError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPosterior, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigParse) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrConfigNotFound)
}

func IsDimensionError(err error) bool {
	return errors.Is(err, ErrDimensionMismatch)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidPosterior) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInsufficientCandidates) ||
		errors.Is(err, ErrForeignProfile)
}
