package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/gitter/internal/adapters/output"
	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

const (
	hashMain = "1111111111111111111111111111111111111111"
	hashPrev = "2222222222222222222222222222222222222222"
	hashTree = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	hashTag  = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// mockLogger is a no-op logger that counts errors.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Info(context.Context, string, map[string]interface{})  {}
func (m *mockLogger) Debug(context.Context, string, map[string]interface{}) {}
func (m *mockLogger) Warn(context.Context, string, map[string]interface{})  {}
func (m *mockLogger) Error(_ context.Context, msg string, _ error, _ map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

// mockLocator resolves every path to root unless err is set.
type mockLocator struct {
	root    string
	branch  string
	err     error
	queried []string
}

func (m *mockLocator) WorkingTree(path string) (string, error) {
	m.queried = append(m.queried, path)
	if m.err != nil {
		return "", m.err
	}
	return m.root, nil
}

func (m *mockLocator) CurrentBranch(context.Context, string) (string, error) {
	return m.branch, nil
}

// mockAccessor serves canned records and records what was asked of it.
type mockAccessor struct {
	mu sync.Mutex

	config     map[domain.ConfigFile][]domain.ConfigParameterData
	revisions  []domain.RevisionData
	references []domain.ReferenceData
	writeErr   error

	sets        []domain.SetConfigValueParameters
	unsets      []domain.UnsetConfigValueParameters
	queryParams []domain.QueryRevisionsParameters
	fileNames   []string
}

func (m *mockAccessor) QueryConfig(_ context.Context, p domain.QueryConfigParameters) ([]domain.ConfigParameterData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileNames = append(m.fileNames, p.FileName)
	return m.config[p.ConfigFile], nil
}

func (m *mockAccessor) SetConfigValue(_ context.Context, p domain.SetConfigValueParameters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.sets = append(m.sets, p)
	return nil
}

func (m *mockAccessor) UnsetConfigValue(_ context.Context, p domain.UnsetConfigValueParameters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.unsets = append(m.unsets, p)
	return nil
}

func (m *mockAccessor) QueryRevision(_ context.Context, p domain.QueryRevisionParameters) (*domain.RevisionData, error) {
	for _, r := range m.revisions {
		if r.Hash == p.Revision || p.Revision == "HEAD" || p.Revision == "v1.0" {
			rec := r
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownRevision, p.Revision)
}

func (m *mockAccessor) QueryRevisions(_ context.Context, p domain.QueryRevisionsParameters) ([]domain.RevisionData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryParams = append(m.queryParams, p)
	if p.MaxCount > 0 && p.MaxCount < len(m.revisions) {
		return m.revisions[:p.MaxCount], nil
	}
	return m.revisions, nil
}

func (m *mockAccessor) QueryReferences(context.Context, domain.QueryReferencesParameters) ([]domain.ReferenceData, error) {
	return m.references, nil
}

func newMockAccessor() *mockAccessor {
	ann := domain.UserData{Name: "Ann", Email: "ann@example.com"}
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &mockAccessor{
		config: map[domain.ConfigFile][]domain.ConfigParameterData{
			domain.ConfigFileRepository: {
				{Name: "user.name", Value: "Ann"},
				{Name: "core.bare", Value: "false"},
			},
			domain.ConfigFileUser: {
				{Name: "core.editor", Value: "vim"},
			},
		},
		revisions: []domain.RevisionData{
			{
				Hash: hashMain, TreeHash: hashTree, Parents: []string{hashPrev},
				Author: ann, AuthorDate: date, Committer: ann, CommitDate: date,
				Subject: "Second commit",
			},
			{
				Hash: hashPrev, TreeHash: hashTree,
				Author: ann, AuthorDate: date, Committer: ann, CommitDate: date,
				Subject: "Initial commit",
			},
		},
		references: []domain.ReferenceData{
			{FullName: "refs/heads/main", Type: domain.ReferenceTypeLocalBranch, Hash: hashMain, ObjectHash: hashMain},
			{FullName: "refs/heads/feature", Type: domain.ReferenceTypeLocalBranch, Hash: hashPrev, ObjectHash: hashPrev},
			{FullName: "refs/tags/v1.0", Type: domain.ReferenceTypeTag, Hash: hashMain, ObjectHash: hashTag},
		},
	}
}

type testEnv struct {
	deps    *Dependencies
	acc     *mockAccessor
	locator *mockLocator
	log     *mockLogger
	stdout  *bytes.Buffer
	dirs    []string
}

func newTestEnv() *testEnv {
	env := &testEnv{
		acc:     newMockAccessor(),
		locator: &mockLocator{root: "/work/repo", branch: "refs/heads/main"},
		log:     &mockLogger{},
		stdout:  &bytes.Buffer{},
	}
	env.deps = &Dependencies{
		LoggerFactory: func() Logger { return env.log },
		ConfigLoader: func() (*AppConfig, error) {
			return &AppConfig{GitPath: "git", Encoding: "utf-8"}, nil
		},
		LocatorFactory: func(Logger) Locator { return env.locator },
		AccessorFactory: func(_ *AppConfig, dir string, _ Logger) (domain.RepositoryAccessor, error) {
			env.dirs = append(env.dirs, dir)
			return env.acc, nil
		},
		OutputWriterFactory: func(w io.Writer, format string) (OutputWriter, error) {
			f, err := output.ParseFormat(format)
			if err != nil {
				return nil, err
			}
			return output.NewWriterWithOutput(w, f), nil
		},
		Stdout: env.stdout,
		Stderr: io.Discard,
	}
	return env
}

func (env *testEnv) run(args ...string) error {
	root := NewRootCmdWithDeps(env.deps)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.Execute()
}

func TestConfigList(t *testing.T) {
	env := newTestEnv()

	require.NoError(t, env.run("-C", "/work/repo/sub", "config", "list"))

	assert.Equal(t, "core.bare=false\nuser.name=Ann\n", env.stdout.String())
	assert.Equal(t, []string{"/work/repo/sub"}, env.locator.queried)
	assert.Equal(t, []string{"/work/repo"}, env.dirs)
}

func TestConfigList_GlobalSkipsLocator(t *testing.T) {
	env := newTestEnv()
	env.locator.err = domain.ErrRepositoryNotFound

	require.NoError(t, env.run("-C", "/tmp", "config", "list", "--global"))

	assert.Equal(t, "core.editor=vim\n", env.stdout.String())
	assert.Empty(t, env.locator.queried)
	assert.Equal(t, []string{"/tmp"}, env.dirs)
}

func TestConfigList_File(t *testing.T) {
	env := newTestEnv()

	require.NoError(t, env.run("config", "list", "--file", "custom.cfg"))

	assert.Equal(t, []string{"custom.cfg"}, env.acc.fileNames)
}

func TestConfigGet(t *testing.T) {
	env := newTestEnv()

	require.NoError(t, env.run("config", "get", "user.name"))
	assert.Equal(t, "Ann\n", env.stdout.String())

	err := env.run("config", "get", "user.email")
	assert.ErrorIs(t, err, domain.ErrParameterNotFound)
}

func TestConfigSetAndUnset(t *testing.T) {
	env := newTestEnv()

	require.NoError(t, env.run("config", "set", "--global", "user.email", "ann@example.com"))
	require.Len(t, env.acc.sets, 1)
	assert.Equal(t, domain.SetConfigValueParameters{
		Name:       "user.email",
		Value:      "ann@example.com",
		ConfigFile: domain.ConfigFileUser,
	}, env.acc.sets[0])

	require.NoError(t, env.run("config", "unset", "user.name"))
	require.Len(t, env.acc.unsets, 1)
	assert.Equal(t, domain.ConfigFileRepository, env.acc.unsets[0].ConfigFile)

	err := env.run("config", "unset", "missing.key")
	assert.ErrorIs(t, err, domain.ErrParameterNotFound)
}

func TestConfigSet_Locked(t *testing.T) {
	env := newTestEnv()
	env.acc.writeErr = domain.ErrConfigLocked

	err := env.run("config", "set", "user.name", "Bob")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigLocked)
	assert.Contains(t, err.Error(), "locked by another process")
	assert.NotEmpty(t, env.log.errors)
}

func TestConfig_ScopeFlagsAreExclusive(t *testing.T) {
	env := newTestEnv()

	err := env.run("config", "list", "--system", "--global")

	assert.Error(t, err)
	assert.Empty(t, env.dirs)
}

func TestLog(t *testing.T) {
	env := newTestEnv()

	require.NoError(t, env.run("log", "-n", "1", "feature"))

	require.Len(t, env.acc.queryParams, 1)
	assert.Equal(t, domain.QueryRevisionsParameters{Since: "feature", MaxCount: 1}, env.acc.queryParams[0])
	assert.Contains(t, env.stdout.String(), hashMain[:12])
	assert.Contains(t, env.stdout.String(), "Second commit")
	assert.NotContains(t, env.stdout.String(), "Initial commit")
}

func TestLog_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "all with revision", args: []string{"log", "--all", "main"}},
		{name: "negative count", args: []string{"log", "-n", "-1"}},
		{name: "too many revisions", args: []string{"log", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			assert.Error(t, env.run(tt.args...))
			assert.Empty(t, env.acc.queryParams)
		})
	}
}

func TestShow(t *testing.T) {
	env := newTestEnv()

	require.NoError(t, env.run("show", "v1.0"))

	out := env.stdout.String()
	assert.Contains(t, out, "commit "+hashMain+" (main, tag: v1.0)")
	assert.Contains(t, out, "Author:    Ann <ann@example.com>")
	assert.Contains(t, out, "    Second commit")
}

func TestShow_UnknownRevision(t *testing.T) {
	env := newTestEnv()
	env.acc.revisions = nil

	err := env.run("show", "nope")

	assert.ErrorIs(t, err, domain.ErrUnknownRevision)
}

func TestRefs(t *testing.T) {
	env := newTestEnv()

	require.NoError(t, env.run("refs"))

	want := "  222222222222  branch  refs/heads/feature\n" +
		"* 111111111111  branch  refs/heads/main\n" +
		"  111111111111  tag     refs/tags/v1.0\n"
	assert.Equal(t, want, env.stdout.String())
}

func TestRefs_Filter(t *testing.T) {
	env := newTestEnv()

	require.NoError(t, env.run("-o", "yaml", "refs", "--tags"))

	out := env.stdout.String()
	assert.Contains(t, out, "name: refs/tags/v1.0")
	assert.Contains(t, out, "object: "+hashTag)
	assert.NotContains(t, out, "refs/heads/")
}

func TestMatchesFilter(t *testing.T) {
	tests := []struct {
		name   string
		typ    domain.ReferenceType
		filter domain.QueryReferencesParameters
		want   bool
	}{
		{"empty filter selects branch", domain.ReferenceTypeLocalBranch, domain.QueryReferencesParameters{}, true},
		{"empty filter selects other", domain.ReferenceTypeOther, domain.QueryReferencesParameters{}, true},
		{"heads only", domain.ReferenceTypeLocalBranch, domain.QueryReferencesParameters{Heads: true}, true},
		{"heads rejects tag", domain.ReferenceTypeTag, domain.QueryReferencesParameters{Heads: true}, false},
		{"remotes", domain.ReferenceTypeRemoteBranch, domain.QueryReferencesParameters{Remotes: true}, true},
		{"filter rejects other", domain.ReferenceTypeOther, domain.QueryReferencesParameters{Tags: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesFilter(tt.typ, tt.filter))
		})
	}
}

func TestRun_NotARepository(t *testing.T) {
	env := newTestEnv()
	env.locator.err = fmt.Errorf("%w: /tmp", domain.ErrRepositoryNotFound)

	err := env.run("-C", "/tmp", "log")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a git repository: /tmp")
	assert.ErrorIs(t, err, domain.ErrRepositoryNotFound)
	assert.Empty(t, env.dirs)
}

func TestRun_UnknownOutputFormat(t *testing.T) {
	env := newTestEnv()

	err := env.run("-o", "xml", "refs")

	assert.ErrorIs(t, err, output.ErrUnknownFormat)
}

func TestRun_ConfigLoaderError(t *testing.T) {
	env := newTestEnv()
	env.deps.ConfigLoader = func() (*AppConfig, error) {
		return nil, errors.New("bad timeout")
	}

	err := env.run("refs")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}

func TestRun_NilDependencies(t *testing.T) {
	root := NewRootCmdWithDeps(nil)
	root.SetArgs([]string{"refs"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependencies not configured")
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"not found", domain.ErrRepositoryNotFound, "not a git repository: /repo"},
		{"git refused", domain.ErrNotRepository, "not a git repository: /repo"},
		{"launch", &domain.LaunchError{Path: "git", Err: errors.New("not found")}, "GITTER_GIT_PATH"},
		{"locked", domain.ErrConfigLocked, "locked by another process"},
		{"timeout", context.DeadlineExceeded, "GITTER_COMMAND_TIMEOUT"},
		{"passthrough", domain.ErrInvalidConfigKey, domain.ErrInvalidConfigKey.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := describeError(tt.err, "/repo")
			assert.Contains(t, err.Error(), tt.contains)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestSetDefaultDependencies(t *testing.T) {
	original := defaultDeps
	defer func() { defaultDeps = original }()

	deps := newTestEnv().deps
	SetDefaultDependencies(deps)

	assert.Same(t, deps, defaultDeps)
	assert.Equal(t, "gitter", NewRootCmd().Use)
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmdWithDeps(newTestEnv().deps)

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"config", "log", "show", "refs"}, names)

	for _, flag := range []string{"directory", "output", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, "C", root.PersistentFlags().Lookup("directory").Shorthand)
}

func TestNewRootCmd_HelpOutput(t *testing.T) {
	root := NewRootCmdWithDeps(newTestEnv().deps)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())

	assert.Contains(t, buf.String(), "gitter reads configuration")
	assert.Contains(t, buf.String(), "--directory")
}

func TestRootCmd_VerboseSetsLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	env := newTestEnv()

	require.NoError(t, env.run("-v", "refs"))

	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
}

func TestRepositoryCommands_LoadState(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantConfigs int
	}{
		{name: "refs opens the repository", args: []string{"refs"}, wantConfigs: 1},
		{name: "show opens the repository", args: []string{"show"}, wantConfigs: 1},
		{name: "log reads history only", args: []string{"log"}, wantConfigs: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()

			require.NoError(t, env.run(tt.args...))

			assert.Len(t, env.acc.fileNames, tt.wantConfigs)
		})
	}
}
