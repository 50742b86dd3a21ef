package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// Revision is one commit. It may be known only by hash until loaded.
type Revision struct {
	repo *Repository
	hash string

	mu         sync.RWMutex
	loaded     bool
	deleted    bool
	treeHash   string
	parents    []string
	author     domain.UserData
	authorDate time.Time
	committer  domain.UserData
	commitDate time.Time
	subject    string
	body       string
}

func newRevision(repo *Repository, hash string) *Revision {
	return &Revision{repo: repo, hash: hash}
}

func newLoadedRevision(repo *Repository, rec domain.RevisionData) (*Revision, error) {
	if !plumbing.IsHash(rec.Hash) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidHash, rec.Hash)
	}
	rev := newRevision(repo, rec.Hash)
	rev.apply(rec)
	return rev, nil
}

// Hash returns the full commit hash.
func (r *Revision) Hash() string { return r.hash }

// IsLoaded reports whether the commit data has been read from git.
func (r *Revision) IsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// IsDeleted reports whether the revision was dropped from its registry.
func (r *Revision) IsDeleted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.deleted
}

// Load reads the commit from git and applies it in place. A deleted
// revision cannot be loaded.
func (r *Revision) Load(ctx context.Context) error {
	if r.IsDeleted() {
		return fmt.Errorf("%w: revision %s is deleted", domain.ErrInvalidState, r.hash)
	}
	loaded, err := r.repo.LoadRevision(ctx, r.hash)
	if err != nil {
		return err
	}
	if loaded != r {
		return fmt.Errorf("%w: revision %s was replaced while loading", domain.ErrInvalidState, r.hash)
	}
	return nil
}

// TreeHash returns the root tree hash.
func (r *Revision) TreeHash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.treeHash
}

// ParentHashes returns the parent hashes in git order.
func (r *Revision) ParentHashes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.parents)
}

// Parents resolves the parent revisions through the repository. Parents
// that were never loaded come back unloaded.
func (r *Revision) Parents() []*Revision {
	hashes := r.ParentHashes()
	parents := make([]*Revision, 0, len(hashes))
	for _, h := range hashes {
		if p, err := r.repo.Revision(h); err == nil {
			parents = append(parents, p)
		}
	}
	return parents
}

// Author returns the author, or nil before the revision is loaded.
func (r *Revision) Author() *User {
	r.mu.RLock()
	data, ok := r.author, r.loaded
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return r.repo.user(data)
}

// Committer returns the committer, or nil before the revision is loaded.
func (r *Revision) Committer() *User {
	r.mu.RLock()
	data, ok := r.committer, r.loaded
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return r.repo.user(data)
}

// AuthorDate returns the author timestamp.
func (r *Revision) AuthorDate() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.authorDate
}

// CommitDate returns the committer timestamp.
func (r *Revision) CommitDate() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commitDate
}

// Subject returns the first line of the message.
func (r *Revision) Subject() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subject
}

// Body returns the message after the subject.
func (r *Revision) Body() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.body
}

// References returns the cached references pointing at this revision.
func (r *Revision) References() []*Reference {
	return r.repo.references.Find(func(ref *Reference) bool {
		return ref.Hash() == r.hash
	})
}

// Snapshot returns the current field values as a record.
func (r *Revision) Snapshot() domain.RevisionData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.RevisionData{
		Hash:       r.hash,
		TreeHash:   r.treeHash,
		Parents:    slices.Clone(r.parents),
		Author:     r.author,
		AuthorDate: r.authorDate,
		Committer:  r.committer,
		CommitDate: r.commitDate,
		Subject:    r.subject,
		Body:       r.body,
	}
}

// apply copies rec into the revision field by field and reports whether
// any field changed. The first call always counts as a change.
func (r *Revision) apply(rec domain.RevisionData) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := !r.loaded
	r.loaded = true
	if r.treeHash != rec.TreeHash {
		r.treeHash = rec.TreeHash
		changed = true
	}
	if !slices.Equal(r.parents, rec.Parents) {
		r.parents = slices.Clone(rec.Parents)
		changed = true
	}
	if r.author != rec.Author {
		r.author = rec.Author
		changed = true
	}
	if !r.authorDate.Equal(rec.AuthorDate) {
		r.authorDate = rec.AuthorDate
		changed = true
	}
	if r.committer != rec.Committer {
		r.committer = rec.Committer
		changed = true
	}
	if !r.commitDate.Equal(rec.CommitDate) {
		r.commitDate = rec.CommitDate
		changed = true
	}
	if r.subject != rec.Subject {
		r.subject = rec.Subject
		changed = true
	}
	if r.body != rec.Body {
		r.body = rec.Body
		changed = true
	}
	return changed
}

func (r *Revision) markDeleted() {
	r.mu.Lock()
	r.deleted = true
	r.mu.Unlock()
}
