package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
)

func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// loadFullListWithSingleflight coalesces a full-list load using singleflight, caches the
// full list and optional count, and returns the list. The loader should fetch the
// complete list when called.
func loadFullListWithSingleflight[T any](cache ports.Cache, ctx context.Context, sfKey, listKey, countKey string, ttl time.Duration, loader func() ([]T, error)) ([]T, error) {
	if cache != nil {
		if v, ok := cacheGet[[]T](cache, ctx, listKey); ok {
			return *v, nil
		}
	}
	res, err, _ := sf.Do(sfKey, func() (any, error) {
		if cache != nil {
			if v, ok := cacheGet[[]T](cache, ctx, listKey); ok {
				return *v, nil
			}
		}
		all, err := loader()
		if err != nil {
			return nil, err
		}
		if cache != nil {
			cacheSetSilently(cache, ctx, listKey, all, ttl)
			if countKey != "" {
				cacheSetSilently(cache, ctx, countKey, len(all), ttl)
			}
		}
		return all, nil
	})
	if err != nil {
		return nil, err
	}
	all, ok := res.([]T)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	return all, nil
}

// CachingUserRepository caches GetByID and GetByEmail. Every write evicts
// both keys of the old and new state so a changed email never resolves to a
// stale row.
type CachingUserRepository struct {
	inner ports.UserRepository
	cache ports.Cache
	ttl   time.Duration
}

func NewCachingUserRepository(inner ports.UserRepository, cache ports.Cache, ttl time.Duration) ports.UserRepository {
	return &CachingUserRepository{inner: inner, cache: cache, ttl: ttl}
}

func userIDKey(id uuid.UUID) string { return "user:id:" + id.String() }
func userEmailKey(email string) string { return "user:email:" + email }

// cachedUser keeps the password hash, which user.User leaves out of its JSON form.
type cachedUser struct {
	user.User
	PasswordHash string `json:"password_hash"`
}

func (c *CachingUserRepository) store(ctx context.Context, u *user.User) {
	v := cachedUser{User: *u, PasswordHash: u.PasswordHash}
	cacheSetSilently(c.cache, ctx, userIDKey(u.ID), v, c.ttl)
	cacheSetSilently(c.cache, ctx, userEmailKey(u.Email), v, c.ttl)
}

func (c *CachingUserRepository) load(ctx context.Context, key string) (*user.User, bool) {
	v, ok := cacheGet[cachedUser](c.cache, ctx, key)
	if !ok {
		return nil, false
	}
	u := v.User
	u.PasswordHash = v.PasswordHash
	return &u, true
}

func (c *CachingUserRepository) Create(ctx context.Context, u *user.User) error {
	if err := c.inner.Create(ctx, u); err != nil {
		return err
	}
	if c.cache != nil {
		_ = c.cache.Delete(ctx, userEmailKey(u.Email))
	}
	return nil
}

func (c *CachingUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if u, ok := c.load(ctx, userIDKey(id)); ok {
		return u, nil
	}
	u, err := c.inner.GetByID(ctx, id)
	if err == nil {
		c.store(ctx, u)
	}
	return u, err
}

func (c *CachingUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if u, ok := c.load(ctx, userEmailKey(email)); ok {
		return u, nil
	}
	u, err := c.inner.GetByEmail(ctx, email)
	if err == nil {
		c.store(ctx, u)
	}
	return u, err
}

func (c *CachingUserRepository) Update(ctx context.Context, u *user.User) error {
	var previous *user.User
	if c.cache != nil {
		previous, _ = c.load(ctx, userIDKey(u.ID))
	}
	if err := c.inner.Update(ctx, u); err != nil {
		return err
	}
	if c.cache != nil {
		_ = c.cache.Delete(ctx, userIDKey(u.ID))
		_ = c.cache.Delete(ctx, userEmailKey(u.Email))
		if previous != nil && previous.Email != u.Email {
			_ = c.cache.Delete(ctx, userEmailKey(previous.Email))
		}
	}
	return nil
}

// CachingUniversityRepository serves the whole university directory from one
// cached list; it changes only through migrations.
type CachingUniversityRepository struct {
	inner ports.UniversityRepository
	cache ports.Cache
	ttl   time.Duration
}

func NewCachingUniversityRepository(inner ports.UniversityRepository, cache ports.Cache, ttl time.Duration) ports.UniversityRepository {
	return &CachingUniversityRepository{inner: inner, cache: cache, ttl: ttl}
}

const (
	universitiesAllKey   = "universities:all"
	universitiesCountKey = "universities:count"
)

func (c *CachingUniversityRepository) all(ctx context.Context) ([]*user.University, error) {
	loader := func() ([]*user.University, error) {
		cnt, err := c.inner.Count(ctx)
		if err != nil {
			return nil, err
		}
		return c.inner.List(ctx, cnt, 0)
	}
	return loadFullListWithSingleflight(c.cache, ctx, universitiesAllKey, universitiesAllKey, universitiesCountKey, c.ttl, loader)
}

func (c *CachingUniversityRepository) GetByID(ctx context.Context, id int64) (*user.University, error) {
	if c.cache != nil {
		if all, ok := cacheGet[[]*user.University](c.cache, ctx, universitiesAllKey); ok {
			for _, u := range *all {
				if u.ID == id {
					return u, nil
				}
			}
		}
	}
	return c.inner.GetByID(ctx, id)
}

func (c *CachingUniversityRepository) List(ctx context.Context, limit, offset int) ([]*user.University, error) {
	all, err := c.all(ctx)
	if err != nil {
		return nil, err
	}
	offset = max(offset, 0)
	if offset >= len(all) {
		return []*user.University{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (c *CachingUniversityRepository) Count(ctx context.Context) (int, error) {
	if c.cache != nil {
		if v, ok := cacheGet[int](c.cache, ctx, universitiesCountKey); ok {
			return *v, nil
		}
		if v, ok := cacheGet[[]*user.University](c.cache, ctx, universitiesAllKey); ok {
			return len(*v), nil
		}
	}
	cnt, err := c.inner.Count(ctx)
	if err == nil && c.cache != nil {
		cacheSetSilently(c.cache, ctx, universitiesCountKey, cnt, c.ttl)
	}
	return cnt, err
}

var _ ports.UserRepository = (*CachingUserRepository)(nil)
var _ ports.UniversityRepository = (*CachingUniversityRepository)(nil)

// singleflight group for coalescing cache-miss loads in-process
var sf singleflight.Group
