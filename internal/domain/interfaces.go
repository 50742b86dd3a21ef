package domain

import (
	"context"
)

// QueryConfigParameters selects the configuration file to list.
type QueryConfigParameters struct {
	ConfigFile ConfigFile

	// FileName is required when ConfigFile is ConfigFileOther.
	FileName string
}

// SetConfigValueParameters describes a git config write.
type SetConfigValueParameters struct {
	Name       string
	Value      string
	ConfigFile ConfigFile
	FileName   string
}

// UnsetConfigValueParameters describes a git config --unset.
type UnsetConfigValueParameters struct {
	Name       string
	ConfigFile ConfigFile
	FileName   string
}

// QueryRevisionParameters selects a single revision.
type QueryRevisionParameters struct {
	// Revision is a hash or any revision expression git understands.
	Revision string
}

// QueryRevisionsParameters selects a page of history.
type QueryRevisionsParameters struct {
	// Since is the starting revision expression; empty means HEAD.
	Since string

	// All walks every reference instead of Since.
	All bool

	// MaxCount limits the number of revisions; zero means no limit.
	MaxCount int
}

// QueryReferencesParameters selects which reference namespaces to list.
// All three false means all references.
type QueryReferencesParameters struct {
	Heads   bool
	Remotes bool
	Tags    bool
}

// ConfigAccessor reads and writes git configuration through the git binary.
type ConfigAccessor interface {
	// QueryConfig lists all parameters of one configuration file.
	QueryConfig(ctx context.Context, params QueryConfigParameters) ([]ConfigParameterData, error)

	// SetConfigValue writes one parameter.
	SetConfigValue(ctx context.Context, params SetConfigValueParameters) error

	// UnsetConfigValue removes one parameter.
	UnsetConfigValue(ctx context.Context, params UnsetConfigValueParameters) error
}

// RevisionAccessor reads commits through the git binary.
type RevisionAccessor interface {
	// QueryRevision returns a single revision.
	// Returns ErrUnknownRevision when git cannot resolve it.
	QueryRevision(ctx context.Context, params QueryRevisionParameters) (*RevisionData, error)

	// QueryRevisions returns a page of history, newest first.
	QueryRevisions(ctx context.Context, params QueryRevisionsParameters) ([]RevisionData, error)
}

// ReferenceAccessor lists references through the git binary.
type ReferenceAccessor interface {
	QueryReferences(ctx context.Context, params QueryReferencesParameters) ([]ReferenceData, error)
}

// RepositoryAccessor is everything a repository object model needs.
type RepositoryAccessor interface {
	ConfigAccessor
	RevisionAccessor
	ReferenceAccessor
}

// ErrorClassifier maps a failed git invocation onto a domain error.
// Implementations receive the command that failed, its exit code and the
// captured standard error, and return the error to surface to the caller.
// The returned error should wrap exitErr so callers can still inspect it.
type ErrorClassifier interface {
	Classify(exitErr *ExitError) error
}

// RepositoryLocator finds git working trees on disk.
type RepositoryLocator interface {
	// IsValidFor reports whether path is inside a git working tree.
	IsValidFor(path string) bool

	// WorkingTree returns the root of the working tree enclosing path.
	// Returns ErrRepositoryNotFound if there is none.
	WorkingTree(path string) (string, error)
}
