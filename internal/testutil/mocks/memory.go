package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/auth"
	"github.com/unibazzar/marketplace-api/internal/core/domain/resource"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
)

// UserRepository is an in-memory ports.UserRepository with a case-insensitive email index.
type UserRepository struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]user.User
	Fails error
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byID: map[uuid.UUID]user.User{}}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fails != nil {
		return r.Fails
	}
	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.ErrDuplicateEmail
		}
	}
	r.byID[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; !ok {
		return apperr.ErrNotFound
	}
	for id, existing := range r.byID {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return apperr.ErrDuplicateEmail
		}
	}
	r.byID[u.ID] = *u
	return nil
}

// UniversityRepository serves a fixed list.
type UniversityRepository struct {
	Items []*user.University
}

func (r *UniversityRepository) GetByID(ctx context.Context, id int64) (*user.University, error) {
	for _, u := range r.Items {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *UniversityRepository) List(ctx context.Context, limit, offset int) ([]*user.University, error) {
	if offset >= len(r.Items) {
		return []*user.University{}, nil
	}
	end := offset + limit
	if end > len(r.Items) {
		end = len(r.Items)
	}
	return r.Items[offset:end], nil
}

func (r *UniversityRepository) Count(ctx context.Context) (int, error) {
	return len(r.Items), nil
}

// TokenRepository is an in-memory ports.TokenRepository.
type TokenRepository struct {
	mu          sync.Mutex
	Outstanding map[string]*auth.OutstandingToken
	Blacklisted map[string]*auth.BlacklistEntry
	Now         func() time.Time
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{
		Outstanding: map[string]*auth.OutstandingToken{},
		Blacklisted: map[string]*auth.BlacklistEntry{},
		Now:         time.Now,
	}
}

func (r *TokenRepository) RecordOutstanding(ctx context.Context, t *auth.OutstandingToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outstanding[t.JTI] = t
	return nil
}

func (r *TokenRepository) ListOutstanding(ctx context.Context, userID uuid.UUID) ([]*auth.OutstandingToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*auth.OutstandingToken
	now := r.Now()
	for _, t := range r.Outstanding {
		if t.UserID == userID && t.ExpiresAt.After(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *TokenRepository) Blacklist(ctx context.Context, e *auth.BlacklistEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Blacklisted[e.JTI]; ok {
		return false, nil
	}
	r.Blacklisted[e.JTI] = e
	return true, nil
}

func (r *TokenRepository) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.Blacklisted[jti]
	return ok, nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.Now()
	var n int64
	for k, t := range r.Outstanding {
		if !t.ExpiresAt.After(now) {
			delete(r.Outstanding, k)
			n++
		}
	}
	for k, e := range r.Blacklisted {
		if !e.ExpiresAt.After(now) {
			delete(r.Blacklisted, k)
			n++
		}
	}
	return n, nil
}

// ResourceRepository is an in-memory ports.ResourceRepository.
type ResourceRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]resource.Resource
	order []uuid.UUID
}

func NewResourceRepository() *ResourceRepository {
	return &ResourceRepository{items: map[uuid.UUID]resource.Resource{}}
}

func (r *ResourceRepository) Create(ctx context.Context, res *resource.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[res.ID] = *res
	r.order = append(r.order, res.ID)
	return nil
}

func (r *ResourceRepository) GetByID(ctx context.Context, kind resource.Kind, id uuid.UUID) (*resource.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.items[id]
	if !ok || res.Kind != kind {
		return nil, apperr.ErrNotFound
	}
	return &res, nil
}

func (r *ResourceRepository) Update(ctx context.Context, res *resource.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[res.ID]
	if !ok || existing.Kind != res.Kind {
		return apperr.ErrNotFound
	}
	r.items[res.ID] = *res
	return nil
}

func (r *ResourceRepository) Delete(ctx context.Context, kind resource.Kind, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[id]
	if !ok || existing.Kind != kind {
		return apperr.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *ResourceRepository) matching(filter *resource.ListFilter) []*resource.Resource {
	out := []*resource.Resource{}
	for i := len(r.order) - 1; i >= 0; i-- {
		res, ok := r.items[r.order[i]]
		if !ok || res.Kind != filter.Kind {
			continue
		}
		if filter.OwnerID != nil && res.OwnerID != *filter.OwnerID {
			continue
		}
		out = append(out, &res)
	}
	return out
}

func (r *ResourceRepository) List(ctx context.Context, filter *resource.ListFilter) ([]*resource.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(filter)
	if filter.Offset >= len(all) {
		return []*resource.Resource{}, nil
	}
	end := len(all)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return all[filter.Offset:end], nil
}

func (r *ResourceRepository) Count(ctx context.Context, filter *resource.ListFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matching(filter)), nil
}
