package gitcli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/encoding"

	"github.com/MyCarrier-DevOps/gitter/internal/async"
	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// DefaultGitPath is used when Options.GitPath is empty; it is resolved
// against PATH at launch.
const DefaultGitPath = "git"

// defaultGlobalOptions keep output stable regardless of user configuration.
var defaultGlobalOptions = []string{
	"-c", "core.quotepath=false",
	"-c", "color.ui=false",
	"-c", "log.showSignature=false",
}

// Options configures an Accessor.
type Options struct {
	// GitPath is the git executable. Defaults to DefaultGitPath.
	GitPath string

	// WorkingDirectory is the working tree git runs in.
	WorkingDirectory string

	// Encoding decodes git output. Defaults to UTF-8.
	Encoding encoding.Encoding

	// Environment holds extra variables for every invocation.
	Environment map[string]string

	// Timeout bounds each invocation; zero waits for git to exit.
	Timeout time.Duration

	// Classifier names failures. Defaults to NewPatternClassifier().
	Classifier domain.ErrorClassifier

	// Logger receives process lifecycle events. May be nil.
	Logger Logger
}

// Accessor implements domain.RepositoryAccessor by running git.
// It is safe for concurrent use; every call gets its own Executor.
type Accessor struct {
	opts Options
}

var _ domain.RepositoryAccessor = (*Accessor)(nil)

// NewAccessor creates an accessor, filling in defaults.
func NewAccessor(opts Options) *Accessor {
	if opts.GitPath == "" {
		opts.GitPath = DefaultGitPath
	}
	if opts.Classifier == nil {
		opts.Classifier = NewPatternClassifier()
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	return &Accessor{opts: opts}
}

// WithWorkingDirectory returns a copy of the accessor bound to dir.
func (a *Accessor) WithWorkingDirectory(dir string) *Accessor {
	opts := a.opts
	opts.WorkingDirectory = dir
	return &Accessor{opts: opts}
}

// WorkingDirectory returns the directory git runs in.
func (a *Accessor) WorkingDirectory() string { return a.opts.WorkingDirectory }

// QueryConfig lists one configuration file. A missing system or user file
// is reported as an empty list.
func (a *Accessor) QueryConfig(ctx context.Context, params domain.QueryConfigParameters) ([]domain.ConfigParameterData, error) {
	scope, err := configScopeArgs(params.ConfigFile, params.FileName)
	if err != nil {
		return nil, err
	}
	args := append(scope, "--list", "--null")

	out := NewRawReceiver()
	err = a.run(ctx, a.input("config", args...), out)
	if err != nil {
		if errors.Is(err, domain.ErrConfigFileNotFound) &&
			(params.ConfigFile == domain.ConfigFileSystem || params.ConfigFile == domain.ConfigFileUser) {
			return nil, nil
		}
		return nil, err
	}
	return ParseConfig(out.String(), params.ConfigFile, params.FileName)
}

// SetConfigValue writes one parameter.
func (a *Accessor) SetConfigValue(ctx context.Context, params domain.SetConfigValueParameters) error {
	if err := checkConfigKey(params.Name); err != nil {
		return err
	}
	scope, err := configScopeArgs(params.ConfigFile, params.FileName)
	if err != nil {
		return err
	}
	args := append(scope, params.Name, params.Value)
	return a.run(ctx, a.input("config", args...), nil)
}

// UnsetConfigValue removes one parameter.
func (a *Accessor) UnsetConfigValue(ctx context.Context, params domain.UnsetConfigValueParameters) error {
	if err := checkConfigKey(params.Name); err != nil {
		return err
	}
	scope, err := configScopeArgs(params.ConfigFile, params.FileName)
	if err != nil {
		return err
	}
	args := append(scope, "--unset", params.Name)
	return a.run(ctx, a.input("config", args...), nil)
}

// QueryRevision returns the commit named by params.Revision.
func (a *Accessor) QueryRevision(ctx context.Context, params domain.QueryRevisionParameters) (*domain.RevisionData, error) {
	if params.Revision == "" {
		return nil, fmt.Errorf("%w: empty revision", domain.ErrUnknownRevision)
	}
	var parser RevisionParser
	in := a.input("log", "-z", "--no-walk", "-n", "1", "--format="+revisionFormat, params.Revision, "--")
	if err := a.run(ctx, in, NewRecordReceiver(0, parser.Feed)); err != nil {
		return nil, err
	}
	revs, err := parser.Records()
	if err != nil {
		return nil, err
	}
	if len(revs) != 1 {
		return nil, domain.NewParseError(revisionLogFormat, -1,
			"expected exactly one revision, got "+strconv.Itoa(len(revs)))
	}
	return &revs[0], nil
}

// QueryRevisions returns a page of history, newest first. Records are
// parsed as they stream in.
func (a *Accessor) QueryRevisions(ctx context.Context, params domain.QueryRevisionsParameters) ([]domain.RevisionData, error) {
	args := []string{"-z", "--format=" + revisionFormat}
	if params.MaxCount > 0 {
		args = append(args, "-n", strconv.Itoa(params.MaxCount))
	}
	switch {
	case params.All:
		args = append(args, "--all")
	case params.Since != "":
		args = append(args, params.Since)
	default:
		args = append(args, "HEAD")
	}
	args = append(args, "--")

	var parser RevisionParser
	if err := a.run(ctx, a.input("log", args...), NewRecordReceiver(0, parser.Feed)); err != nil {
		return nil, err
	}
	return parser.Records()
}

// QueryReferences lists references in the selected namespaces.
func (a *Accessor) QueryReferences(ctx context.Context, params domain.QueryReferencesParameters) ([]domain.ReferenceData, error) {
	args := []string{"--format=" + referenceFormat}
	if params.Heads {
		args = append(args, "refs/heads")
	}
	if params.Remotes {
		args = append(args, "refs/remotes")
	}
	if params.Tags {
		args = append(args, "refs/tags")
	}

	var parser ReferenceParser
	if err := a.run(ctx, a.input("for-each-ref", args...), NewLineReceiver(parser.Feed)); err != nil {
		return nil, err
	}
	return parser.Records()
}

// QueryConfigAsync runs QueryConfig on a worker goroutine.
func (a *Accessor) QueryConfigAsync(ctx context.Context, params domain.QueryConfigParameters) *async.Future[[]domain.ConfigParameterData] {
	return async.Go(func() ([]domain.ConfigParameterData, error) { return a.QueryConfig(ctx, params) })
}

// QueryRevisionsAsync runs QueryRevisions on a worker goroutine.
func (a *Accessor) QueryRevisionsAsync(ctx context.Context, params domain.QueryRevisionsParameters) *async.Future[[]domain.RevisionData] {
	return async.Go(func() ([]domain.RevisionData, error) { return a.QueryRevisions(ctx, params) })
}

// QueryReferencesAsync runs QueryReferences on a worker goroutine.
func (a *Accessor) QueryReferencesAsync(ctx context.Context, params domain.QueryReferencesParameters) *async.Future[[]domain.ReferenceData] {
	return async.Go(func() ([]domain.ReferenceData, error) { return a.QueryReferences(ctx, params) })
}

func (a *Accessor) input(command string, args ...string) CommandInput {
	return NewCommandInput(command,
		WithGlobalOptions(defaultGlobalOptions...),
		WithArguments(args...),
		WithWorkingDirectory(a.opts.WorkingDirectory),
		WithEncoding(a.opts.Encoding),
		WithEnvironment(a.opts.Environment),
	)
}

// run executes in with stdout going to out and classifies a non-zero exit.
func (a *Accessor) run(ctx context.Context, in CommandInput, out OutputReceiver) error {
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	stderr := NewRawReceiver()
	exec, err := NewExecutor(a.opts.GitPath, out, stderr, a.opts.Logger)
	if err != nil {
		return err
	}
	code, err := exec.Execute(ctx, in)
	if err != nil {
		return err
	}
	if code != 0 {
		return a.opts.Classifier.Classify(&domain.ExitError{
			Command: in.Command(),
			Args:    in.Arguments(),
			Code:    code,
			Stderr:  stderr.String(),
		})
	}
	return nil
}

func configScopeArgs(scope domain.ConfigFile, fileName string) ([]string, error) {
	switch scope {
	case domain.ConfigFileRepository:
		return []string{"--local"}, nil
	case domain.ConfigFileSystem:
		return []string{"--system"}, nil
	case domain.ConfigFileUser:
		return []string{"--global"}, nil
	case domain.ConfigFileOther:
		if fileName == "" {
			return nil, fmt.Errorf("%w: file name is required for %s scope", domain.ErrInvalidConfigFile, scope)
		}
		return []string{"--file", fileName}, nil
	default:
		return nil, fmt.Errorf("%w: unknown scope %d", domain.ErrInvalidConfigFile, int(scope))
	}
}

func checkConfigKey(name string) error {
	if reason := validateConfigKey(name); reason != "" {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfigKey, reason)
	}
	return nil
}
