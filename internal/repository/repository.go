// Package repository is the cache-coherent object model of one git
// repository: revisions, users, references and configuration parameters
// kept in identity-keyed registries and reconciled against git output.
//
// Entities are never replaced. A refresh updates them in place, creates the
// ones that appeared and marks the ones that vanished as deleted. Entities
// refer to each other by key and resolve through the owning Repository.
package repository

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"golang.org/x/sync/errgroup"

	"github.com/MyCarrier-DevOps/gitter/internal/async"
	"github.com/MyCarrier-DevOps/gitter/internal/cache"
	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// Logger defines the logging interface used by the object model.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

// Repository owns the registries of one working tree.
type Repository struct {
	dir string
	acc domain.RepositoryAccessor
	log Logger

	revisions  *cache.Registry[string, *Revision]
	users      *cache.Registry[string, *User]
	references *cache.Registry[string, *Reference]
	config     *ConfigurationFile
}

// New creates an empty repository bound to acc. Nothing is loaded.
func New(dir string, acc domain.RepositoryAccessor, log Logger) *Repository {
	if log == nil {
		log = nopLogger{}
	}
	r := &Repository{
		dir:        dir,
		acc:        acc,
		log:        log,
		revisions:  cache.NewRegistry[string, *Revision](),
		users:      cache.NewRegistry[string, *User](),
		references: cache.NewRegistry[string, *Reference](),
	}
	r.config = newConfigurationFile(acc, domain.ConfigFileRepository, "", log)
	return r
}

// Open creates a repository and loads its configuration and references.
func Open(ctx context.Context, dir string, acc domain.RepositoryAccessor, log Logger) (*Repository, error) {
	r := New(dir, acc, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.config.Refresh(gctx)
	})
	g.Go(func() error {
		_, err := r.RefreshReferences(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("open repository %s: %w", dir, err)
	}

	r.log.Info(ctx, "repository opened", map[string]interface{}{
		"dir":        dir,
		"parameters": r.config.Count(),
		"references": r.references.Count(),
	})
	return r, nil
}

// OpenAsync runs Open on a worker goroutine.
func OpenAsync(ctx context.Context, dir string, acc domain.RepositoryAccessor, log Logger) *async.Future[*Repository] {
	return async.Go(func() (*Repository, error) {
		return Open(ctx, dir, acc, log)
	})
}

// WorkingDirectory returns the working tree the repository was opened for.
func (r *Repository) WorkingDirectory() string { return r.dir }

// Config returns the repository-scoped configuration file.
func (r *Repository) Config() *ConfigurationFile { return r.config }

// Revisions returns the revision registry, keyed by full hash.
func (r *Repository) Revisions() *cache.Registry[string, *Revision] { return r.revisions }

// Users returns the user registry, keyed by "name <email>".
func (r *Repository) Users() *cache.Registry[string, *User] { return r.users }

// References returns the reference registry, keyed by full name.
func (r *Repository) References() *cache.Registry[string, *Reference] { return r.references }

// Revision returns the revision with the given full hash, registering an
// unloaded one if it is not cached yet.
func (r *Repository) Revision(hash string) (*Revision, error) {
	if !plumbing.IsHash(hash) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidHash, hash)
	}
	rev, _ := r.revisions.GetOrCreate(hash, func() *Revision {
		return newRevision(r, hash)
	})
	return rev, nil
}

// LoadRevision queries git for one revision and applies it to the cache.
// expr may be a hash or any revision expression.
func (r *Repository) LoadRevision(ctx context.Context, expr string) (*Revision, error) {
	rec, err := r.acc.QueryRevision(ctx, domain.QueryRevisionParameters{Revision: expr})
	if err != nil {
		return nil, err
	}
	revs, err := r.applyRevisions(ctx, []domain.RevisionData{*rec})
	if err != nil {
		return nil, err
	}
	return revs[0], nil
}

// QueryRevisions loads a page of history and returns the cached entities in
// git order. Revisions outside the page are left alone.
func (r *Repository) QueryRevisions(ctx context.Context, params domain.QueryRevisionsParameters) ([]*Revision, error) {
	recs, err := r.acc.QueryRevisions(ctx, params)
	if err != nil {
		return nil, err
	}
	return r.applyRevisions(ctx, recs)
}

// QueryRevisionsAsync runs QueryRevisions on a worker goroutine.
func (r *Repository) QueryRevisionsAsync(ctx context.Context, params domain.QueryRevisionsParameters) *async.Future[[]*Revision] {
	return async.Go(func() ([]*Revision, error) {
		return r.QueryRevisions(ctx, params)
	})
}

// RefreshReferences reloads all references. References that no longer
// exist are removed and marked deleted.
func (r *Repository) RefreshReferences(ctx context.Context) (cache.Stats, error) {
	recs, err := r.acc.QueryReferences(ctx, domain.QueryReferencesParameters{})
	if err != nil {
		return cache.Stats{}, err
	}
	stats, err := cache.Sync(r.references, recs, r.referenceSyncer())
	if err != nil {
		return stats, err
	}
	r.log.Debug(ctx, "references synchronized", statsFields(stats))
	return stats, nil
}

// Close empties every registry. Each entity is marked deleted and raises
// its registry's deleted event; the repository must not be used afterwards.
func (r *Repository) Close() error {
	revisions := r.revisionSyncer()
	revisions.RemoveStale = true
	if _, err := cache.Sync(r.revisions, nil, revisions); err != nil {
		return err
	}
	if _, err := cache.Sync(r.references, nil, r.referenceSyncer()); err != nil {
		return err
	}
	users := userSyncer
	users.RemoveStale = true
	if _, err := cache.Sync(r.users, nil, users); err != nil {
		return err
	}
	return r.config.clear()
}

// revisionSyncer keeps revisions outside the synchronized page.
func (r *Repository) revisionSyncer() cache.Syncer[string, *Revision, domain.RevisionData] {
	return cache.Syncer[string, *Revision, domain.RevisionData]{
		KeyOf: func(rec domain.RevisionData) string { return rec.Hash },
		Create: func(rec domain.RevisionData) (*Revision, error) {
			return newLoadedRevision(r, rec)
		},
		Update:    (*Revision).apply,
		OnDeleted: (*Revision).markDeleted,
	}
}

func (r *Repository) referenceSyncer() cache.Syncer[string, *Reference, domain.ReferenceData] {
	return cache.Syncer[string, *Reference, domain.ReferenceData]{
		KeyOf: func(rec domain.ReferenceData) string { return rec.FullName },
		Create: func(rec domain.ReferenceData) (*Reference, error) {
			return newReference(r, rec)
		},
		Update:      (*Reference).apply,
		OnDeleted:   (*Reference).markDeleted,
		RemoveStale: true,
	}
}

func (r *Repository) applyRevisions(ctx context.Context, recs []domain.RevisionData) ([]*Revision, error) {
	stats, err := cache.Sync(r.revisions, recs, r.revisionSyncer())
	if err != nil {
		return nil, err
	}

	users := make([]domain.UserData, 0, 2*len(recs))
	for _, rec := range recs {
		users = append(users, rec.Author, rec.Committer)
	}
	if _, err := cache.Sync(r.users, users, userSyncer); err != nil {
		return nil, err
	}

	out := make([]*Revision, 0, len(recs))
	for _, rec := range recs {
		if rev, ok := r.revisions.TryGet(rec.Hash); ok {
			out = append(out, rev)
		}
	}
	r.log.Debug(ctx, "revisions synchronized", statsFields(stats))
	return out, nil
}

// user returns the registered user for data, registering it if needed.
func (r *Repository) user(data domain.UserData) *User {
	u, _ := r.users.GetOrCreate(data.Key(), func() *User { return newUser(data) })
	return u
}

func statsFields(s cache.Stats) map[string]interface{} {
	return map[string]interface{}{
		"created": s.Created,
		"updated": s.Updated,
		"deleted": s.Deleted,
	}
}

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, map[string]interface{})  {}
func (nopLogger) Debug(context.Context, string, map[string]interface{}) {}
