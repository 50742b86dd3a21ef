// Package domain defines the records, accessor contracts and error taxonomy
// shared by the git process-access layer and the repository object model.
package domain

import "time"

// ConfigFile identifies which git configuration file an operation targets.
type ConfigFile int

const (
	// ConfigFileRepository is the repository-local .git/config.
	ConfigFileRepository ConfigFile = iota

	// ConfigFileSystem is the system-wide configuration (git config --system).
	ConfigFileSystem

	// ConfigFileUser is the current user's configuration (git config --global).
	ConfigFileUser

	// ConfigFileOther is an explicit file passed with --file.
	ConfigFileOther
)

// String returns the scope name used in logs and output.
func (f ConfigFile) String() string {
	switch f {
	case ConfigFileRepository:
		return "repository"
	case ConfigFileSystem:
		return "system"
	case ConfigFileUser:
		return "user"
	case ConfigFileOther:
		return "file"
	default:
		return "unknown"
	}
}

// ReferenceType classifies a git reference.
type ReferenceType int

const (
	// ReferenceTypeRevision is a bare revision (no symbolic name).
	ReferenceTypeRevision ReferenceType = iota

	// ReferenceTypeLocalBranch is a branch under refs/heads/.
	ReferenceTypeLocalBranch

	// ReferenceTypeRemoteBranch is a remote-tracking branch under refs/remotes/.
	ReferenceTypeRemoteBranch

	// ReferenceTypeTag is a tag under refs/tags/.
	ReferenceTypeTag

	// ReferenceTypeOther is any other reference (notes, stash, ...).
	ReferenceTypeOther
)

// String returns the reference type name.
func (t ReferenceType) String() string {
	switch t {
	case ReferenceTypeRevision:
		return "revision"
	case ReferenceTypeLocalBranch:
		return "branch"
	case ReferenceTypeRemoteBranch:
		return "remote"
	case ReferenceTypeTag:
		return "tag"
	default:
		return "other"
	}
}

// ConfigParameterData is one parameter reported by git config --list.
type ConfigParameterData struct {
	// Name is the fully qualified key, e.g. "user.name" or "remote.origin.url".
	Name string `yaml:"name"`

	// Value is the raw value. Value-less boolean keys carry an empty string.
	Value string `yaml:"value"`

	// ConfigFile is the scope the parameter was read from.
	ConfigFile ConfigFile `yaml:"-"`

	// FileName is set when ConfigFile is ConfigFileOther.
	FileName string `yaml:"file,omitempty"`
}

// UserData identifies an author or committer.
type UserData struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// Key returns the identity key used by the user registry.
func (u UserData) Key() string {
	return u.Name + " <" + u.Email + ">"
}

// RevisionData is a parsed snapshot of one commit.
type RevisionData struct {
	// Hash is the full 40-character commit hash.
	Hash string `yaml:"hash"`

	// TreeHash is the hash of the commit's root tree.
	TreeHash string `yaml:"tree"`

	// Parents are the parent commit hashes in git order.
	Parents []string `yaml:"parents,omitempty"`

	Author     UserData  `yaml:"author"`
	AuthorDate time.Time `yaml:"author_date"`

	Committer  UserData  `yaml:"committer"`
	CommitDate time.Time `yaml:"commit_date"`

	// Subject is the first paragraph of the message joined into one line.
	Subject string `yaml:"subject"`

	// Body is the remainder of the message.
	Body string `yaml:"body,omitempty"`
}

// ReferenceData is a parsed snapshot of one reference.
type ReferenceData struct {
	// FullName is the complete reference name, e.g. "refs/heads/main".
	FullName string `yaml:"name"`

	// Type classifies the reference.
	Type ReferenceType `yaml:"-"`

	// Hash is the commit the reference points to. Annotated tags are peeled.
	Hash string `yaml:"hash"`

	// ObjectHash is the object named by the reference before peeling.
	// It differs from Hash only for annotated tags.
	ObjectHash string `yaml:"object,omitempty"`
}

// IsAnnotated reports whether the reference is an annotated tag.
func (r ReferenceData) IsAnnotated() bool {
	return r.ObjectHash != "" && r.ObjectHash != r.Hash
}
