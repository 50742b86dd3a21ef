package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories of the process-access layer.
var (
	// ErrLaunchFailure indicates the git executable could not be started.
	ErrLaunchFailure = errors.New("failed to launch git")

	// ErrNonZeroExit indicates git ran but reported failure.
	ErrNonZeroExit = errors.New("git exited with non-zero status")

	// ErrParse indicates git output did not match the expected format.
	ErrParse = errors.New("unexpected git output")

	// ErrInvalidState indicates API misuse such as starting a process twice.
	ErrInvalidState = errors.New("invalid state")
)

// Domain errors produced by classification and by the object model.
var (
	// ErrRepositoryNotFound indicates the path is not inside a git working tree.
	ErrRepositoryNotFound = errors.New("git repository not found at specified path")

	// ErrNotRepository indicates git itself refused to run outside a repository.
	ErrNotRepository = errors.New("not a git repository")

	// ErrUnknownRevision indicates git could not resolve a revision expression.
	ErrUnknownRevision = errors.New("unknown revision")

	// ErrInvalidConfigKey indicates a malformed configuration key.
	ErrInvalidConfigKey = errors.New("invalid configuration key")

	// ErrConfigLocked indicates the configuration file could not be locked for writing.
	ErrConfigLocked = errors.New("configuration file is locked")

	// ErrConfigKeyNotFound indicates git config --unset found nothing to remove.
	ErrConfigKeyNotFound = errors.New("configuration key not found")

	// ErrConfigFileNotFound indicates the requested configuration file does not exist.
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFile indicates git could not parse a configuration file.
	ErrInvalidConfigFile = errors.New("invalid configuration file")

	// ErrParameterNotFound indicates a parameter is not present in the cache.
	ErrParameterNotFound = errors.New("parameter not found")

	// ErrParameterExists indicates CreateParameter was called for an existing name.
	ErrParameterExists = errors.New("parameter already exists")

	// ErrInvalidHash indicates a revision hash is not a full 40-character hex string.
	ErrInvalidHash = errors.New("invalid revision hash")
)

// LaunchError reports a git executable that could not be started.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrLaunchFailure, e.Path, e.Err)
}

// Unwrap returns the underlying start error.
func (e *LaunchError) Unwrap() error { return e.Err }

// Is reports ErrLaunchFailure as a match.
func (e *LaunchError) Is(target error) bool { return target == ErrLaunchFailure }

// ExitError reports a git invocation that completed with a failure status.
// Output has already been delivered to the receivers.
type ExitError struct {
	// Command is the git subcommand, e.g. "config".
	Command string

	// Args is the full argument vector passed to git.
	Args []string

	// Code is the process exit code.
	Code int

	// Stderr is the captured standard error text.
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("git %s exited with code %d", e.Command, e.Code)
	}
	return fmt.Sprintf("git %s exited with code %d: %s", e.Command, e.Code, msg)
}

// Is reports ErrNonZeroExit as a match.
func (e *ExitError) Is(target error) bool { return target == ErrNonZeroExit }

// ParseError reports output that does not match the expected format.
type ParseError struct {
	// Format names the output format being parsed, e.g. "config --list".
	Format string

	// Record is the zero-based index of the offending record, or -1.
	Record int

	// Reason describes what was missing or malformed.
	Reason string
}

func (e *ParseError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("%s: %s: %s", ErrParse, e.Format, e.Reason)
	}
	return fmt.Sprintf("%s: %s record %d: %s", ErrParse, e.Format, e.Record, e.Reason)
}

// Is reports ErrParse as a match.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// NewParseError creates a ParseError for the given record.
func NewParseError(format string, record int, reason string) *ParseError {
	return &ParseError{Format: format, Record: record, Reason: reason}
}
