// Package testutil provides in-memory repositories and helpers shared by
// package tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/resumehub/apiserver/internal/store"
	"github.com/resumehub/apiserver/types"
)

// UserRepo is a concurrency-safe in-memory user repository that enforces
// unique emails the way the users table does.
type UserRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]types.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{byID: make(map[int]types.User)}
}

func (r *UserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.byID[user.ID] = user
	return user, nil
}

// Delete removes a user, leaving any resumes they owned in place.
func (r *UserRepo) Delete(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

func (r *UserRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// ResumeRepo is an in-memory resume repository. Owner existence is checked
// against users when it is non-nil.
type ResumeRepo struct {
	mu     sync.Mutex
	users  *UserRepo
	nextID int
	byID   map[int]types.Resume
}

func NewResumeRepo(users *UserRepo) *ResumeRepo {
	return &ResumeRepo{users: users, byID: make(map[int]types.Resume)}
}

func (r *ResumeRepo) Create(ctx context.Context, resume types.Resume) (types.Resume, error) {
	if r.users != nil {
		if _, err := r.users.GetByID(ctx, resume.UserID); err != nil {
			return types.Resume{}, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	resume.ID = r.nextID
	r.byID[resume.ID] = resume
	return resume, nil
}

func (r *ResumeRepo) ListByOwner(_ context.Context, ownerID int) ([]types.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]types.Resume, 0)
	for _, res := range r.byID {
		if res.UserID == ownerID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ResumeRepo) Get(_ context.Context, id, ownerID int) (types.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.byID[id]
	if !ok || res.UserID != ownerID {
		return types.Resume{}, store.ErrNotFound
	}
	return res, nil
}

func (r *ResumeRepo) Update(_ context.Context, resume types.Resume) (types.Resume, types.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[resume.ID]
	if !ok || existing.UserID != resume.UserID {
		return types.Resume{}, types.Resume{}, store.ErrNotFound
	}
	r.byID[resume.ID] = resume
	return existing, resume, nil
}

func (r *ResumeRepo) Delete(_ context.Context, id, ownerID int) (types.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok || existing.UserID != ownerID {
		return types.Resume{}, store.ErrNotFound
	}
	delete(r.byID, id)
	return existing, nil
}

func (r *ResumeRepo) Improve(_ context.Context, id, ownerID int, suffix string) (types.Resume, types.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok || existing.UserID != ownerID {
		return types.Resume{}, types.Resume{}, store.ErrNotFound
	}
	improved := existing
	improved.Context += suffix
	r.byID[id] = improved
	return existing, improved, nil
}

// Put stores resume as is, bypassing owner checks. Tests use it to simulate
// a concurrent writer.
func (r *ResumeRepo) Put(resume types.Resume) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[resume.ID] = resume
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
