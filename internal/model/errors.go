package model

import (
	"errors"

	"github.com/rotisserie/eris"
)

// ErrKind partitions pipeline failures into the four handling classes.
type ErrKind string

const (
	// KindValidation: extraction output never conformed to schema after
	// exhausting retries.
	KindValidation ErrKind = "validation"
	// KindUpstream: transport, HTTP, or credential failure from the model or
	// embedding endpoint.
	KindUpstream ErrKind = "upstream"
	// KindNotFound: a referenced asset, revision, or file is missing.
	KindNotFound ErrKind = "not_found"
	// KindPermission: the caller lacks the required role. No external call is
	// made, no cost is incurred.
	KindPermission ErrKind = "permission"
)

// PipelineError tags an underlying error with an ErrKind so callers can
// branch on the class without parsing messages.
type PipelineError struct {
	Kind ErrKind
	Err  error
}

func (e *PipelineError) Error() string { return string(e.Kind) + ": " + e.Err.Error() }

func (e *PipelineError) Unwrap() error { return e.Err }

// NewError creates a tagged pipeline error with a fresh message.
func NewError(kind ErrKind, msg string) error {
	return &PipelineError{Kind: kind, Err: eris.New(msg)}
}

// WrapError tags err with kind, annotating it with msg.
func WrapError(kind ErrKind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &PipelineError{Kind: kind, Err: eris.Wrap(err, msg)}
}

// KindOf returns the ErrKind of err, or "" when err carries no tag.
func KindOf(err error) ErrKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
