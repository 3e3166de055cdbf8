// Package errtag provides the small error taxonomy used across the
// ingestion pipeline so callers can classify a failure with errors.Is
// without a third-party errors package. The corpus this repo is modeled on
// universally wraps plain stdlib errors (see e.g. stellar-postgres-ingester's
// config loader), so this package follows suit rather than reaching for
// something like pkg/errors or cockroachdb/errors.
package errtag

import "errors"

// Tag is a sentinel identifying one class of failure in the taxonomy
// described by the ingestion pipeline's error handling design. Wrap a tag
// with fmt.Errorf("...: %w", ErrParse) and test with errors.Is(err, errtag.ErrParse).
type Tag struct {
	name string
}

func (t *Tag) Error() string { return t.name }

var (
	// ErrParse marks a malformed manifest, bad JSON, or unrecognized
	// bytecode payload. Scope: one record or one file. Callers log and
	// skip the record, never abort the loop.
	ErrParse = &Tag{"parse error"}

	// ErrMissingResource marks an account blob lacking an expected
	// resource. Callers substitute defaults rather than failing.
	ErrMissingResource = &Tag{"missing resource"}

	// ErrOrderingViolation marks a balance-replay update whose timestamp
	// is older than the account's most recent snapshot. The update is
	// rejected; the snapshot is not mutated.
	ErrOrderingViolation = &Tag{"ordering violation"}

	// ErrTransport marks a graph query failure. Callers log and skip the
	// batch; the queue entry is left incomplete so a later run retries.
	ErrTransport = &Tag{"transport error"}

	// ErrContractViolation marks a tx-info hash disagreeing with its
	// transaction hash. Informational: the record is still emitted.
	ErrContractViolation = &Tag{"contract violation"}

	// ErrFatal marks a failure that aborts the process: an unreadable
	// root directory, credential resolution failure, or a missing
	// manifest for load-one.
	ErrFatal = &Tag{"fatal error"}
)

// Is implements errors.Is matching for the sentinel Tags.
func (t *Tag) Is(target error) bool {
	other, ok := target.(*Tag)
	return ok && other == t
}

// Classify reports which Tag, if any, an error chain carries.
func Classify(err error) (*Tag, bool) {
	for _, t := range []*Tag{ErrParse, ErrMissingResource, ErrOrderingViolation, ErrTransport, ErrContractViolation, ErrFatal} {
		if errors.Is(err, t) {
			return t, true
		}
	}
	return nil, false
}
