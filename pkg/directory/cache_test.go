package directory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirectory is a scripted Directory for cache tests.
type fakeDirectory struct {
	mu         sync.Mutex
	identities map[string]Identity
	lookupErr  error
	lookups    int
}

func newFakeDirectory(identities ...Identity) *fakeDirectory {
	f := &fakeDirectory{identities: make(map[string]Identity)}
	for _, id := range identities {
		f.identities[id.OwnerID] = id
	}
	return f
}

func (f *fakeDirectory) Lookup(ctx context.Context, ownerID string) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	identity, ok := f.identities[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &identity, nil
}

func (f *fakeDirectory) ListAll(ctx context.Context) ([]Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Identity, 0, len(f.identities))
	for _, id := range f.identities {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeDirectory) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

func TestFallback(t *testing.T) {
	identity := Fallback("u-123")

	assert.Equal(t, "u-123", identity.OwnerID)
	assert.Equal(t, "u-123", identity.Email)
	assert.Equal(t, AccountStatusUnknown, identity.AccountStatus)
	assert.True(t, identity.Enabled)
	assert.Nil(t, identity.CreatedAt)
}

func TestCachedDirectoryLookup(t *testing.T) {
	inner := newFakeDirectory(Identity{OwnerID: "1", Email: "a@example.com", Enabled: true})

	var hits, misses int
	cached := NewCachedDirectory(inner, 16, time.Minute)
	cached.OnHit = func() { hits++ }
	cached.OnMiss = func() { misses++ }

	ctx := context.Background()

	first, err := cached.Lookup(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", first.Email)

	second, err := cached.Lookup(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", second.Email)

	assert.Equal(t, 1, inner.lookupCount())
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestCachedDirectoryDoesNotCacheErrors(t *testing.T) {
	inner := newFakeDirectory()
	cached := NewCachedDirectory(inner, 16, time.Minute)

	ctx := context.Background()

	_, err := cached.Lookup(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = cached.Lookup(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	// Both attempts reached the inner directory.
	assert.Equal(t, 2, inner.lookupCount())
}

func TestRedisCachedDirectory(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := newFakeDirectory(Identity{OwnerID: "1", Email: "a@example.com", Enabled: true})
	cached := NewRedisCachedDirectory(inner, client, time.Minute)

	ctx := context.Background()

	first, err := cached.Lookup(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", first.Email)

	second, err := cached.Lookup(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", second.Email)
	assert.Equal(t, 1, inner.lookupCount())
}

func TestRedisCachedDirectoryExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := newFakeDirectory(Identity{OwnerID: "1", Email: "a@example.com", Enabled: true})
	cached := NewRedisCachedDirectory(inner, client, time.Minute)

	ctx := context.Background()

	_, err := cached.Lookup(ctx, "1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = cached.Lookup(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.lookupCount())
}

func TestRedisCachedDirectoryCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := newFakeDirectory(Identity{OwnerID: "1", Email: "a@example.com", Enabled: true})
	cached := NewRedisCachedDirectory(inner, client, time.Minute)

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, identityCacheKey("1"), "not-json", time.Minute).Err())

	identity, err := cached.Lookup(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", identity.Email)
	assert.Equal(t, 1, inner.lookupCount())
}

func TestRedisCachedDirectoryInnerFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := newFakeDirectory()
	inner.lookupErr = fmt.Errorf("pool throttled")
	cached := NewRedisCachedDirectory(inner, client, time.Minute)

	_, err := cached.Lookup(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
