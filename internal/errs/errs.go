// Package errs defines the error taxonomy shared by the repository core.
// All errors cross package boundaries as values; callers branch with
// errors.As rather than string matching.
package errs

import "fmt"

// TransportError reports a network or timeout failure during a fetch or
// download. Previous on-disk state is always preserved by the caller.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IntegrityError reports a checksum mismatch for a downloaded artifact.
type IntegrityError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// ParseError reports malformed manifest or config data.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NotFoundError reports a script id absent from the current manifest.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("script %q not found in manifest", e.ID)
}
