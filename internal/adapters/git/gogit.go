// Package git locates working trees on disk using go-git/v5.
// It implements domain.RepositoryLocator without spawning the git binary.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// Logger defines the logging interface for the git adapter.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// Locator implements domain.RepositoryLocator using go-git/v5.
type Locator struct {
	logger Logger
}

var _ domain.RepositoryLocator = (*Locator)(nil)

// NewLocator creates a locator.
func NewLocator(log Logger) *Locator {
	return &Locator{logger: log}
}

// IsValidFor reports whether path is inside a non-bare git working tree.
func (l *Locator) IsValidFor(path string) bool {
	_, err := l.WorkingTree(path)
	return err == nil
}

// WorkingTree returns the root of the working tree enclosing path,
// searching parent directories the way git does.
// Returns domain.ErrRepositoryNotFound if there is none.
func (l *Locator) WorkingTree(path string) (string, error) {
	repo, err := openRepository(path)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrRepositoryNotFound, path, err)
	}
	return wt.Filesystem.Root(), nil
}

// CurrentBranch returns the full name of the branch HEAD points at, or ""
// when HEAD is detached or unborn.
func (l *Locator) CurrentBranch(ctx context.Context, path string) (string, error) {
	repo, err := openRepository(path)
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		l.logger.Debug(ctx, "HEAD is unborn", map[string]interface{}{"path": path})
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}

	if !head.Name().IsBranch() {
		l.logger.Warn(ctx, "HEAD is detached; no current branch", map[string]interface{}{
			"head_sha": head.Hash().String(),
			"path":     path,
		})
		return "", nil
	}
	return head.Name().String(), nil
}

func openRepository(path string) (*git.Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrRepositoryNotFound, path, err)
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}
	return repo, nil
}
