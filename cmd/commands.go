package cmd

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/gitter/internal/domain"
	"github.com/MyCarrier-DevOps/gitter/internal/repository"
)

// scopeOptions select the configuration file a config subcommand works on.
type scopeOptions struct {
	system bool
	global bool
	file   string
}

func newConfigCmd(deps *Dependencies, opts *globalOptions) *cobra.Command {
	scope := &scopeOptions{}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write git configuration",
		Long: `Read and write git configuration parameters.

Without a scope flag the repository's .git/config is used.`,
	}
	configCmd.PersistentFlags().BoolVar(&scope.system, "system", false, "Use the system-wide configuration")
	configCmd.PersistentFlags().BoolVar(&scope.global, "global", false, "Use the current user's configuration")
	configCmd.PersistentFlags().StringVar(&scope.file, "file", "", "Use the given configuration file")
	configCmd.MarkFlagsMutuallyExclusive("system", "global", "file")

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all parameters",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runConfig(cmd, deps, opts, scope, func(s *session, f *repository.ConfigurationFile, w OutputWriter) error {
					params := f.Parameters()
					snapshots := make([]domain.ConfigParameterData, 0, len(params))
					for _, p := range params {
						snapshots = append(snapshots, p.Snapshot())
					}
					return w.WriteParameters(snapshots)
				})
			},
		},
		&cobra.Command{
			Use:   "get <name>",
			Short: "Print the value of one parameter",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfig(cmd, deps, opts, scope, func(s *session, f *repository.ConfigurationFile, w OutputWriter) error {
					p, err := f.Get(args[0])
					if err != nil {
						return fmt.Errorf("%s is not set in the %s configuration: %w", args[0], f.Scope(), err)
					}
					return w.WriteValue(p.Snapshot())
				})
			},
		},
		&cobra.Command{
			Use:   "set <name> <value>",
			Short: "Write one parameter",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfig(cmd, deps, opts, scope, func(s *session, f *repository.ConfigurationFile, _ OutputWriter) error {
					if _, err := f.SetValue(s.ctx, args[0], args[1]); err != nil {
						return s.fail("failed to set configuration value", err, map[string]interface{}{"name": args[0]})
					}
					s.log.Info(s.ctx, "configuration value set", map[string]interface{}{
						"name":  args[0],
						"scope": f.Scope().String(),
					})
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "unset <name>",
			Short: "Remove one parameter",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfig(cmd, deps, opts, scope, func(s *session, f *repository.ConfigurationFile, _ OutputWriter) error {
					if err := f.Unset(s.ctx, args[0]); err != nil {
						if errors.Is(err, domain.ErrParameterNotFound) {
							return fmt.Errorf("%s is not set in the %s configuration: %w", args[0], f.Scope(), err)
						}
						return s.fail("failed to unset configuration value", err, map[string]interface{}{"name": args[0]})
					}
					s.log.Info(s.ctx, "configuration value removed", map[string]interface{}{
						"name":  args[0],
						"scope": f.Scope().String(),
					})
					return nil
				})
			},
		},
	)

	return configCmd
}

// runConfig opens the selected configuration file and hands it to fn.
func runConfig(
	cmd *cobra.Command,
	deps *Dependencies,
	opts *globalOptions,
	scope *scopeOptions,
	fn func(s *session, f *repository.ConfigurationFile, w OutputWriter) error,
) error {
	s, err := newSession(cmd, deps, opts)
	if err != nil {
		return err
	}
	w, err := s.writer()
	if err != nil {
		return err
	}

	dir := opts.directory
	if !scope.system && !scope.global && scope.file == "" {
		if dir, err = s.workingTree(); err != nil {
			return err
		}
	}
	acc, err := s.accessor(dir)
	if err != nil {
		return err
	}

	var f *repository.ConfigurationFile
	switch {
	case scope.system:
		f, err = repository.OpenSystemFile(s.ctx, acc, s.log)
	case scope.global:
		f, err = repository.OpenCurrentUserFile(s.ctx, acc, s.log)
	case scope.file != "":
		f, err = repository.OpenFile(s.ctx, acc, scope.file, s.log)
	default:
		f, err = repository.OpenRepositoryFile(s.ctx, acc, s.log)
	}
	if err != nil {
		return s.fail("failed to read configuration", err, map[string]interface{}{"file": scope.file})
	}
	return fn(s, f, w)
}

func newLogCmd(deps *Dependencies, opts *globalOptions) *cobra.Command {
	var (
		maxCount int
		all      bool
	)

	logCmd := &cobra.Command{
		Use:   "log [revision]",
		Short: "Show commit history",
		Long: `Show commit history starting at a revision (HEAD by default),
or at every reference with --all.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("--all cannot be combined with a revision")
			}
			if maxCount < 0 {
				return fmt.Errorf("--max-count must not be negative: %d", maxCount)
			}

			params := domain.QueryRevisionsParameters{All: all, MaxCount: maxCount}
			if len(args) > 0 {
				params.Since = args[0]
			}
			return runRepository(cmd, deps, opts, false, func(s *session, repo *repository.Repository, w OutputWriter) error {
				revs, err := repo.QueryRevisions(s.ctx, params)
				if err != nil {
					return s.fail("failed to query revisions", err, map[string]interface{}{"since": params.Since})
				}
				snapshots := make([]domain.RevisionData, 0, len(revs))
				for _, rev := range revs {
					snapshots = append(snapshots, rev.Snapshot())
				}
				return w.WriteRevisions(snapshots)
			})
		},
	}
	logCmd.Flags().IntVarP(&maxCount, "max-count", "n", 0, "Limit the number of commits (0 means no limit)")
	logCmd.Flags().BoolVar(&all, "all", false, "Walk every reference instead of one revision")

	return logCmd
}

func newShowCmd(deps *Dependencies, opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [revision]",
		Short: "Show one commit and the references pointing at it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := "HEAD"
			if len(args) > 0 {
				expr = args[0]
			}
			return runRepository(cmd, deps, opts, true, func(s *session, repo *repository.Repository, w OutputWriter) error {
				rev, err := repo.LoadRevision(s.ctx, expr)
				if err != nil {
					if errors.Is(err, domain.ErrUnknownRevision) {
						return fmt.Errorf("unknown revision %q: %w", expr, err)
					}
					return s.fail("failed to load revision", err, map[string]interface{}{"revision": expr})
				}
				return w.WriteRevision(rev.Snapshot(), referenceSnapshots(rev.References()))
			})
		},
	}
}

func newRefsCmd(deps *Dependencies, opts *globalOptions) *cobra.Command {
	var filter domain.QueryReferencesParameters

	refsCmd := &cobra.Command{
		Use:   "refs",
		Short: "List branches, remote branches and tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepository(cmd, deps, opts, true, func(s *session, repo *repository.Repository, w OutputWriter) error {
				current, err := s.deps.LocatorFactory(s.log).CurrentBranch(s.ctx, repo.WorkingDirectory())
				if err != nil {
					s.log.Warn(s.ctx, "could not determine current branch", map[string]interface{}{
						"error": err.Error(),
					})
				}

				refs := repo.References().Find(func(r *repository.Reference) bool {
					return matchesFilter(r.Type(), filter)
				})
				return w.WriteReferences(referenceSnapshots(refs), current)
			})
		},
	}
	refsCmd.Flags().BoolVar(&filter.Heads, "heads", false, "List local branches")
	refsCmd.Flags().BoolVar(&filter.Remotes, "remotes", false, "List remote-tracking branches")
	refsCmd.Flags().BoolVar(&filter.Tags, "tags", false, "List tags")

	return refsCmd
}

// runRepository resolves the working tree, builds the object model and
// hands it to fn. With open set, configuration and references are loaded
// first. The repository is closed afterwards.
func runRepository(
	cmd *cobra.Command,
	deps *Dependencies,
	opts *globalOptions,
	open bool,
	fn func(s *session, repo *repository.Repository, w OutputWriter) error,
) error {
	s, err := newSession(cmd, deps, opts)
	if err != nil {
		return err
	}
	w, err := s.writer()
	if err != nil {
		return err
	}
	root, err := s.workingTree()
	if err != nil {
		return err
	}
	acc, err := s.accessor(root)
	if err != nil {
		return err
	}

	var repo *repository.Repository
	if open {
		if repo, err = repository.Open(s.ctx, root, acc, s.log); err != nil {
			return s.fail("failed to open repository", err, map[string]interface{}{"path": root})
		}
	} else {
		repo = repository.New(root, acc, s.log)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			s.log.Warn(s.ctx, "failed to close repository", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()
	return fn(s, repo, w)
}

// matchesFilter reports whether a reference of type t is selected.
// An empty filter selects everything.
func matchesFilter(t domain.ReferenceType, f domain.QueryReferencesParameters) bool {
	if !f.Heads && !f.Remotes && !f.Tags {
		return true
	}
	switch t {
	case domain.ReferenceTypeLocalBranch:
		return f.Heads
	case domain.ReferenceTypeRemoteBranch:
		return f.Remotes
	case domain.ReferenceTypeTag:
		return f.Tags
	default:
		return false
	}
}

// referenceSnapshots returns the records of refs sorted by full name.
func referenceSnapshots(refs []*repository.Reference) []domain.ReferenceData {
	out := make([]domain.ReferenceData, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Snapshot())
	}
	slices.SortFunc(out, func(a, b domain.ReferenceData) int {
		return strings.Compare(a.FullName, b.FullName)
	})
	return out
}
