// Package cmd provides the CLI commands for gitter.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// Logger defines the logging interface used by the commands.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Locator finds working trees and their checked-out branch.
type Locator interface {
	WorkingTree(path string) (string, error)
	CurrentBranch(ctx context.Context, path string) (string, error)
}

// OutputWriter renders command results.
type OutputWriter interface {
	WriteParameters(params []domain.ConfigParameterData) error
	WriteValue(param domain.ConfigParameterData) error
	WriteRevisions(revs []domain.RevisionData) error
	WriteRevision(rev domain.RevisionData, refs []domain.ReferenceData) error
	WriteReferences(refs []domain.ReferenceData, current string) error
}

// Dependencies holds all injectable dependencies for the commands.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance.
	LoggerFactory func() Logger

	// ConfigLoader loads application configuration.
	ConfigLoader func() (*AppConfig, error)

	// LocatorFactory creates the working tree locator.
	LocatorFactory func(log Logger) Locator

	// AccessorFactory creates a git accessor running in dir.
	AccessorFactory func(cfg *AppConfig, dir string, log Logger) (domain.RepositoryAccessor, error)

	// OutputWriterFactory creates an OutputWriter for the given format.
	OutputWriterFactory func(w io.Writer, format string) (OutputWriter, error)

	// Stdout is the writer for command results.
	Stdout io.Writer

	// Stderr is the writer for warnings and errors.
	Stderr io.Writer
}

// AppConfig holds application configuration loaded by ConfigLoader.
type AppConfig struct {
	// GitPath is the git executable.
	GitPath string

	// Encoding is the encoding git output is decoded from.
	Encoding string

	// CommandTimeout bounds each git invocation; zero means no limit.
	CommandTimeout time.Duration

	// Environment holds extra variables for every git process.
	Environment map[string]string

	// LogLevel is the log level setting.
	LogLevel string

	// LogAppName is the application name for logging.
	LogAppName string
}

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	directory string
	format    string
	verbose   bool
}

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for gitter.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "gitter",
		Short: "Inspect git repositories through the git executable",
		Long: `gitter reads configuration, history and references of a git repository
by running the git executable and parsing its output.

Examples:
  # List the repository configuration
  gitter config list

  # Set a value in the global configuration
  gitter config set --global user.name "Ann Example"

  # Show the last ten commits of another repository as YAML
  gitter -C /path/to/repo -o yaml log -n 10

  # Show one commit with the references pointing at it
  gitter show v1.0

  # List branches and tags, marking the current branch
  gitter refs`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.directory, "directory", "C", ".",
		"Run as if gitter was started in this directory")
	rootCmd.PersistentFlags().StringVarP(&opts.format, "output", "o", "text",
		"Output format (text or yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable verbose/debug logging")

	rootCmd.AddCommand(
		newConfigCmd(deps, opts),
		newLogCmd(deps, opts),
		newShowCmd(deps, opts),
		newRefsCmd(deps, opts),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session is the per-invocation state every subcommand starts from.
type session struct {
	ctx    context.Context
	deps   *Dependencies
	opts   *globalOptions
	log    Logger
	cfg    *AppConfig
	stdout io.Writer
	stderr io.Writer
}

// newSession loads configuration and creates the logger.
func newSession(cmd *cobra.Command, deps *Dependencies, opts *globalOptions) (*session, error) {
	if deps == nil {
		return nil, errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s := &session{ctx: ctx, deps: deps, opts: opts, stdout: deps.Stdout, stderr: deps.Stderr}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}

	// Set log level based on verbose flag (best-effort)
	if opts.verbose {
		if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
			writeWarningf(s.stderr, "warning: could not set log level: %v\n", err)
		}
	}

	s.log = deps.LoggerFactory()
	s.log.Debug(ctx, "starting gitter", map[string]interface{}{
		"command":   cmd.CommandPath(),
		"directory": opts.directory,
		"output":    opts.format,
	})

	cfg, err := deps.ConfigLoader()
	if err != nil {
		s.log.Error(ctx, "failed to load configuration", err, nil)
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	s.cfg = cfg
	return s, nil
}

// workingTree resolves the repository root enclosing the -C directory.
func (s *session) workingTree() (string, error) {
	root, err := s.deps.LocatorFactory(s.log).WorkingTree(s.opts.directory)
	if err != nil {
		s.log.Error(s.ctx, "failed to locate git repository", err, map[string]interface{}{
			"path": s.opts.directory,
		})
		return "", describeError(err, s.opts.directory)
	}
	return root, nil
}

// accessor creates a git accessor running in dir.
func (s *session) accessor(dir string) (domain.RepositoryAccessor, error) {
	acc, err := s.deps.AccessorFactory(s.cfg, dir, s.log)
	if err != nil {
		s.log.Error(s.ctx, "failed to create git accessor", err, nil)
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return acc, nil
}

// writer creates the output writer for the -o format.
func (s *session) writer() (OutputWriter, error) {
	w, err := s.deps.OutputWriterFactory(s.stdout, s.opts.format)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// fail logs err and returns it translated for the terminal.
func (s *session) fail(msg string, err error, fields map[string]interface{}) error {
	s.log.Error(s.ctx, msg, err, fields)
	return describeError(err, s.opts.directory)
}

// describeError adds a user-facing explanation to the errors a user can act on.
func describeError(err error, path string) error {
	switch {
	case errors.Is(err, domain.ErrRepositoryNotFound), errors.Is(err, domain.ErrNotRepository):
		return fmt.Errorf("not a git repository: %s: %w", path, err)
	case errors.Is(err, domain.ErrLaunchFailure):
		return fmt.Errorf("git could not be started; set GITTER_GIT_PATH: %w", err)
	case errors.Is(err, domain.ErrConfigLocked):
		return fmt.Errorf("configuration file is locked by another process: %w", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("git timed out; raise GITTER_COMMAND_TIMEOUT: %w", err)
	default:
		return err
	}
}

// writeWarningf writes a warning message to the given writer.
// Errors are ignored: there is no recovery action if stderr writes fail.
func writeWarningf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		return
	}
}
