package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/shared"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, ttl), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 7)
	require.False(t, ok)

	cache.Set(ctx, 7, []string{"invoice.post", "reports.read"})
	perms, ok := cache.Get(ctx, 7)
	require.True(t, ok)
	require.Equal(t, []string{"invoice.post", "reports.read"}, perms)

	cache.Drop(ctx, 7)
	_, ok = cache.Get(ctx, 7)
	require.False(t, ok)
}

func TestCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, 7, []string{"invoice.post"})
	mr.FastForward(2 * time.Minute)
	_, ok := cache.Get(ctx, 7)
	require.False(t, ok, "entry must expire after the TTL")
}

func TestCacheCachesEmptyPermissionSets(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	// an empty grant list is a valid, cacheable answer
	cache.Set(ctx, 7, nil)
	perms, ok := cache.Get(ctx, 7)
	require.True(t, ok)
	require.Empty(t, perms)
}

func TestNilCacheDegradesToMiss(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	cache.Set(ctx, 7, []string{"invoice.post"})
	_, ok := cache.Get(ctx, 7)
	require.False(t, ok)
	cache.Drop(ctx, 7)
}

func TestAllowsAnonymousAndBlankPermission(t *testing.T) {
	svc := NewService(nil, nil)

	allowed, err := svc.Allows(context.Background(), 0, "invoice.post")
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = svc.Allows(context.Background(), 7, "")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestAllowsServedFromCache(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	cache.Set(context.Background(), 7, []string{"Invoice.Post"})
	// nil pool: any cache miss would panic, so passing proves the hit
	svc := NewService(nil, cache)

	allowed, err := svc.Allows(context.Background(), 7, "invoice.post")
	require.NoError(t, err)
	require.True(t, allowed, "permission match is case-insensitive")

	allowed, err = svc.Allows(context.Background(), 7, "invoice.void")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestInvalidateDropsCachedGrants(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	cache.Set(context.Background(), 7, []string{"invoice.post"})
	svc := NewService(nil, cache)

	svc.Invalidate(context.Background(), 7)
	_, ok := cache.Get(context.Background(), 7)
	require.False(t, ok)
}

func TestRequireMiddleware(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	cache.Set(context.Background(), 7, []string{"reports.read"})
	mw := Middleware{Service: NewService(nil, cache)}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := mw.Require("reports.read")(next)

	t.Run("anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("granted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		req = req.WithContext(shared.ContextWithActor(req.Context(), 7))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("denied", func(t *testing.T) {
		cache.Set(context.Background(), 8, []string{"accounts.read"})
		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		req = req.WithContext(shared.ContextWithActor(req.Context(), 8))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}
