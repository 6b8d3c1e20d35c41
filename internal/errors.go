package internal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSpecifier   = errors.New("invalid commit specifier")
	ErrBackendUnavailable = errors.New("git backend unavailable")
	ErrBackendQueryFailed = errors.New("git query failed")
	ErrMalformedDiff      = errors.New("malformed diff output")
	ErrConfigInvalid      = errors.New("invalid config")
	ErrConfigNotFound     = errors.New("config file does not exist")
	ErrPathStripMismatch  = errors.New("rule pattern is not a prefix of path")
	ErrSourceNotExist     = errors.New("source folder does not exist")
	ErrNotGitRepo         = errors.New("source is not a git repository")
	ErrDestinationInvalid = errors.New("invalid destination")
	ErrSelectionInvalid   = errors.New("invalid selection")
	ErrCancelled          = errors.New("update cancelled")
)

// QueryError describes one failed backend invocation.
type QueryError struct {
	Op       string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *QueryError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Op)
	if len(e.Args) > 0 {
		fmt.Fprintf(&b, " %s", strings.Join(e.Args, " "))
	}
	if e.ExitCode > 0 {
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", stderr)
	}
	return b.String()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// SpecError ties a failure to the commit specifier that caused it.
type SpecError struct {
	Spec string
	Err  error
}

func (e *SpecError) Error() string {
	if e.Spec == "" {
		return fmt.Sprintf("working tree: %v", e.Err)
	}
	return fmt.Sprintf("commit %q: %v", e.Spec, e.Err)
}

func (e *SpecError) Unwrap() error {
	return e.Err
}
