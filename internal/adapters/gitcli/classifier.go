package gitcli

import (
	"fmt"
	"strings"

	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// ClassificationRule maps a failed invocation onto a domain error.
// Zero-valued fields match anything.
type ClassificationRule struct {
	// Command restricts the rule to one git subcommand.
	Command string

	// ExitCode restricts the rule to one exit code; zero matches any.
	ExitCode int

	// Contains is matched case-insensitively against stderr.
	Contains string

	// Err is the domain error to wrap around the *domain.ExitError.
	Err error
}

func (r ClassificationRule) matches(e *domain.ExitError, stderr string) bool {
	if r.Command != "" && r.Command != e.Command {
		return false
	}
	if r.ExitCode != 0 && r.ExitCode != e.Code {
		return false
	}
	if r.Contains != "" && !strings.Contains(stderr, strings.ToLower(r.Contains)) {
		return false
	}
	return true
}

// PatternClassifier classifies failures by exit code and known stderr text.
// Git's messages vary by version and locale, so an unmatched failure is
// returned as the bare *domain.ExitError rather than guessed at.
type PatternClassifier struct {
	rules []ClassificationRule
}

// DefaultRules are the failures this layer knows how to name.
// git config documents its exit codes; everything else is matched on text.
func DefaultRules() []ClassificationRule {
	return []ClassificationRule{
		{Contains: "not a git repository", Err: domain.ErrNotRepository},
		{Command: "config", Contains: "unable to read config file", Err: domain.ErrConfigFileNotFound},
		{Command: "config", Contains: "could not lock config file", Err: domain.ErrConfigLocked},
		{Command: "config", ExitCode: 5, Err: domain.ErrConfigKeyNotFound},
		{Command: "config", ExitCode: 3, Err: domain.ErrInvalidConfigFile},
		{Command: "config", ExitCode: 1, Contains: "invalid key", Err: domain.ErrInvalidConfigKey},
		{Command: "config", ExitCode: 1, Contains: "does not contain a section", Err: domain.ErrInvalidConfigKey},
		{Command: "config", ExitCode: 2, Contains: "does not contain a section", Err: domain.ErrInvalidConfigKey},
		{Contains: "unknown revision", Err: domain.ErrUnknownRevision},
		{Contains: "bad revision", Err: domain.ErrUnknownRevision},
		{Contains: "bad object", Err: domain.ErrUnknownRevision},
		{Contains: "ambiguous argument", Err: domain.ErrUnknownRevision},
	}
}

// NewPatternClassifier creates a classifier; with no rules it uses DefaultRules.
func NewPatternClassifier(rules ...ClassificationRule) *PatternClassifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &PatternClassifier{rules: rules}
}

// Classify returns the first matching domain error wrapped around exitErr,
// or exitErr itself.
func (c *PatternClassifier) Classify(exitErr *domain.ExitError) error {
	stderr := strings.ToLower(exitErr.Stderr)
	for _, r := range c.rules {
		if r.matches(exitErr, stderr) {
			return fmt.Errorf("%w: %w", r.Err, exitErr)
		}
	}
	return exitErr
}
