// Package errors provides error handling for brick-api.
//
// This package re-exports github.com/cockroachdb/errors, providing stack
// traces, wrapping and user-facing hints, plus the sentinel errors shared
// by the graph store, the service facade and the HTTP boundary.
//
// Usage:
//
//	if err := store.Load(ctx, files); err != nil {
//	    return errors.Wrap(err, "failed to load building graph")
//	}
//
//	if errors.Is(err, errors.ErrInvalidIdentifier) {
//	    // reject the request
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint       = crdb.WithHint
	WithHintf      = crdb.WithHintf
	WithDetail     = crdb.WithDetail
	WithDetailf    = crdb.WithDetailf
	GetAllHints    = crdb.GetAllHints
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinel errors. Wrap these with errors.Wrap() to add context while
// preserving errors.Is() matching.
var (
	// ErrInvalidIdentifier indicates a building, floor or device id that
	// cannot be interpolated into a query.
	ErrInvalidIdentifier = New("invalid identifier")

	// ErrNotReady indicates the graph has not finished loading.
	ErrNotReady = New("graph not loaded")

	// ErrAlreadyLoaded indicates a second load against an immutable store.
	ErrAlreadyLoaded = New("graph already loaded")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrInvalidConfig indicates configuration that cannot be used
	ErrInvalidConfig = New("invalid configuration")
)
