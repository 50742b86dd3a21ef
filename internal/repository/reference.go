package repository

import (
	"fmt"
	"sync"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// Reference is a branch, remote branch or tag.
type Reference struct {
	repo     *Repository
	fullName string

	mu         sync.RWMutex
	typ        domain.ReferenceType
	hash       string
	objectHash string
	deleted    bool
}

func newReference(repo *Repository, rec domain.ReferenceData) (*Reference, error) {
	if !plumbing.IsHash(rec.Hash) {
		return nil, fmt.Errorf("%w: reference %s points at %q", domain.ErrInvalidHash, rec.FullName, rec.Hash)
	}
	ref := &Reference{repo: repo, fullName: rec.FullName}
	ref.apply(rec)
	return ref, nil
}

// FullName returns the complete reference name, e.g. "refs/heads/main".
func (r *Reference) FullName() string { return r.fullName }

// Name returns the short name, e.g. "main" or "origin/main".
func (r *Reference) Name() string {
	return plumbing.ReferenceName(r.fullName).Short()
}

// Type returns the reference type.
func (r *Reference) Type() domain.ReferenceType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typ
}

// Hash returns the commit the reference resolves to.
func (r *Reference) Hash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hash
}

// ObjectHash returns the object the reference names before peeling.
func (r *Reference) ObjectHash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objectHash
}

// IsDeleted reports whether the reference disappeared on refresh.
func (r *Reference) IsDeleted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.deleted
}

// Revision returns the (possibly unloaded) revision the reference points at.
func (r *Reference) Revision() (*Revision, error) {
	return r.repo.Revision(r.Hash())
}

// Snapshot returns the current field values as a record.
func (r *Reference) Snapshot() domain.ReferenceData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.ReferenceData{
		FullName:   r.fullName,
		Type:       r.typ,
		Hash:       r.hash,
		ObjectHash: r.objectHash,
	}
}

func (r *Reference) apply(rec domain.ReferenceData) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.typ == rec.Type && r.hash == rec.Hash && r.objectHash == rec.ObjectHash {
		return false
	}
	r.typ = rec.Type
	r.hash = rec.Hash
	r.objectHash = rec.ObjectHash
	return true
}

func (r *Reference) markDeleted() {
	r.mu.Lock()
	r.deleted = true
	r.mu.Unlock()
}
