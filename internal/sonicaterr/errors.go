// Package sonicaterr defines the error kinds used across Sonicat workers and
// the scheduler (see §7 of the design: Config/Validation/External/Schema/
// Invariant). Kind determines whether a Task fails softly (recorded, no
// ledger row, retried at the next make_tasks pass) or the process exits.
package sonicaterr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by its propagation policy.
type Kind int

const (
	// KindValidation means a Task precheck failed (bad cname, asset already
	// exists, target missing on disk). Recorded as task failure; retried.
	KindValidation Kind = iota
	// KindExternal means a network/subprocess/DSP failure. Recorded as task
	// failure; retried, with no per-asset retry cap (see DESIGN.md).
	KindExternal
	// KindConfig is fatal at startup only: bad YAML, missing key, unknown app.
	KindConfig
	// KindSchema is fatal: the on-disk store schema doesn't match expectations.
	KindSchema
	// KindInvariant is fatal: an invariant the process can't safely continue
	// past was violated (e.g. survey produced zero files after a passing
	// precheck).
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindExternal:
		return "external"
	case KindConfig:
		return "config"
	case KindSchema:
		return "schema"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Fatal reports whether errors of this kind should terminate the process
// rather than be recorded as a failed Task outcome.
func (k Kind) Fatal() bool {
	switch k {
	case KindConfig, KindSchema, KindInvariant:
		return true
	default:
		return false
	}
}

// Error is a Sonicat error carrying a Kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "catalog.NewAsset"
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given kind and operation label. Returns nil if err
// is nil, so it composes with the usual `if err := ...; err != nil` idiom.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation, External, Config, Schema, Invariant are convenience
// constructors for the corresponding Kind.
func Validation(op string, err error) error { return New(KindValidation, op, err) }
func External(op string, err error) error   { return New(KindExternal, op, err) }
func Config(op string, err error) error     { return New(KindConfig, op, err) }
func Schema(op string, err error) error     { return New(KindSchema, op, err) }
func Invariant(op string, err error) error  { return New(KindInvariant, op, err) }

// KindOf extracts the Kind from err, defaulting to KindExternal for errors
// that were never classified (e.g. a raw I/O error bubbling out of a Worker).
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindExternal
}

// IsFatal reports whether err should cause the owning process to exit.
func IsFatal(err error) bool {
	return KindOf(err).Fatal()
}
