package gitcli

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// setupTestRepo creates a repository with two commits, a branch and an
// annotated tag.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}

	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "Initial commit")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("two"), 0o644))
	runGit(t, dir, "commit", "-am", "Second commit", "-m", "With a body\nover two lines")

	runGit(t, dir, "branch", "feature")
	runGit(t, dir, "tag", "-a", "v1.0", "-m", "release")
	return dir
}

// runGit executes a git command in the given directory.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_NOSYSTEM=1", "HOME="+dir, "XDG_CONFIG_HOME="+dir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\nOutput: %s", args, err, output)
	}
	return strings.TrimSpace(string(output))
}

func newTestAccessor(dir string) *Accessor {
	return NewAccessor(Options{
		WorkingDirectory: dir,
		Environment:      map[string]string{"GIT_CONFIG_NOSYSTEM": "1", "HOME": dir, "XDG_CONFIG_HOME": dir},
		Timeout:          30 * time.Second,
	})
}

func TestAccessor_QueryRevisions(t *testing.T) {
	dir := setupTestRepo(t)
	a := newTestAccessor(dir)

	revs, err := a.QueryRevisions(context.Background(), domain.QueryRevisionsParameters{})
	require.NoError(t, err)
	require.Len(t, revs, 2)

	assert.Equal(t, runGit(t, dir, "rev-parse", "HEAD"), revs[0].Hash)
	assert.Equal(t, "Second commit", revs[0].Subject)
	assert.Equal(t, "With a body\nover two lines", revs[0].Body)
	assert.Equal(t, []string{revs[1].Hash}, revs[0].Parents)
	assert.Equal(t, "Test User", revs[0].Author.Name)
	assert.Equal(t, "test@example.com", revs[0].Committer.Email)
	assert.Empty(t, revs[1].Parents)

	limited, err := a.QueryRevisions(context.Background(), domain.QueryRevisionsParameters{MaxCount: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAccessor_QueryRevision(t *testing.T) {
	dir := setupTestRepo(t)
	a := newTestAccessor(dir)

	rev, err := a.QueryRevision(context.Background(), domain.QueryRevisionParameters{Revision: "HEAD~1"})
	require.NoError(t, err)
	assert.Equal(t, "Initial commit", rev.Subject)

	_, err = a.QueryRevision(context.Background(), domain.QueryRevisionParameters{Revision: "does-not-exist"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownRevision), "got %v", err)
	assert.True(t, errors.Is(err, domain.ErrNonZeroExit))
}

func TestAccessor_QueryReferences(t *testing.T) {
	dir := setupTestRepo(t)
	a := newTestAccessor(dir)

	refs, err := a.QueryReferences(context.Background(), domain.QueryReferencesParameters{})
	require.NoError(t, err)

	byName := map[string]domain.ReferenceData{}
	for _, r := range refs {
		byName[r.FullName] = r
	}
	head := runGit(t, dir, "rev-parse", "HEAD")

	require.Contains(t, byName, "refs/heads/main")
	require.Contains(t, byName, "refs/heads/feature")
	require.Contains(t, byName, "refs/tags/v1.0")
	assert.Equal(t, domain.ReferenceTypeLocalBranch, byName["refs/heads/main"].Type)
	assert.Equal(t, head, byName["refs/tags/v1.0"].Hash)
	assert.True(t, byName["refs/tags/v1.0"].IsAnnotated())

	tags, err := a.QueryReferences(context.Background(), domain.QueryReferencesParameters{Tags: true})
	require.NoError(t, err)
	require.Len(t, tags, 1)
}

func TestAccessor_ConfigRoundTrip(t *testing.T) {
	dir := setupTestRepo(t)
	a := newTestAccessor(dir)
	ctx := context.Background()

	require.NoError(t, a.SetConfigValue(ctx, domain.SetConfigValueParameters{
		Name: "gitter.multi", Value: "line one\nline two",
	}))

	params, err := a.QueryConfig(ctx, domain.QueryConfigParameters{ConfigFile: domain.ConfigFileRepository})
	require.NoError(t, err)
	values := map[string]string{}
	for _, p := range params {
		values[p.Name] = p.Value
	}
	assert.Equal(t, "Test User", values["user.name"])
	assert.Equal(t, "line one\nline two", values["gitter.multi"])

	require.NoError(t, a.UnsetConfigValue(ctx, domain.UnsetConfigValueParameters{Name: "gitter.multi"}))

	err = a.UnsetConfigValue(ctx, domain.UnsetConfigValueParameters{Name: "gitter.multi"})
	assert.True(t, errors.Is(err, domain.ErrConfigKeyNotFound), "got %v", err)

	err = a.SetConfigValue(ctx, domain.SetConfigValueParameters{Name: "nosection", Value: "x"})
	assert.True(t, errors.Is(err, domain.ErrInvalidConfigKey))
}

func TestAccessor_QueryConfig_MissingUserFileIsEmpty(t *testing.T) {
	dir := setupTestRepo(t)
	a := newTestAccessor(dir).WithWorkingDirectory(dir)

	params, err := a.QueryConfig(context.Background(), domain.QueryConfigParameters{ConfigFile: domain.ConfigFileUser})
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestAccessor_QueryConfig_OtherFileRequiresName(t *testing.T) {
	a := NewAccessor(Options{})
	_, err := a.QueryConfig(context.Background(), domain.QueryConfigParameters{ConfigFile: domain.ConfigFileOther})
	assert.ErrorIs(t, err, domain.ErrInvalidConfigFile)
}

func TestAccessor_NotRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
	dir := t.TempDir()
	a := NewAccessor(Options{
		WorkingDirectory: dir,
		Environment:      map[string]string{"GIT_CEILING_DIRECTORIES": filepath.Dir(dir)},
	})

	_, err := a.QueryRevisions(context.Background(), domain.QueryRevisionsParameters{})
	assert.True(t, errors.Is(err, domain.ErrNotRepository), "got %v", err)
}

func TestAccessor_Async(t *testing.T) {
	dir := setupTestRepo(t)
	a := newTestAccessor(dir)
	ctx := context.Background()

	revs := a.QueryRevisionsAsync(ctx, domain.QueryRevisionsParameters{All: true})
	refs := a.QueryReferencesAsync(ctx, domain.QueryReferencesParameters{Heads: true})
	cfg := a.QueryConfigAsync(ctx, domain.QueryConfigParameters{})

	r, err := revs.Wait(ctx)
	require.NoError(t, err)
	assert.Len(t, r, 2)

	h, err := refs.Wait(ctx)
	require.NoError(t, err)
	assert.Len(t, h, 2)

	c, err := cfg.Wait(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, c)
}

func TestAccessor_LaunchFailure(t *testing.T) {
	a := NewAccessor(Options{GitPath: filepath.Join(t.TempDir(), "no-git")})
	_, err := a.QueryReferences(context.Background(), domain.QueryReferencesParameters{})
	assert.ErrorIs(t, err, domain.ErrLaunchFailure)
}
