package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	prev := client
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(prev) })
	return mr
}

func TestGetSetJSONRoundTrip(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	err := SetJSON(ctx, "thing:1", cachedThing{Name: "abc", Count: 3}, time.Minute)
	require.NoError(t, err)

	var got cachedThing
	found, err := GetJSON(ctx, "thing:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedThing{Name: "abc", Count: 3}, got)
}

func TestGetJSONMiss(t *testing.T) {
	setupMiniredis(t)

	var got cachedThing
	found, err := GetJSON(context.Background(), "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAsideFetchesOnceThenServesFromCache(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			fetches++
			dest.Name = "fetched"
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, "aside:1", &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, fetches)

	var second cachedThing
	require.NoError(t, Aside(ctx, "aside:1", &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, fetches, "second read must come from cache")
	assert.Equal(t, "fetched", second.Name)
}

func TestAsidePropagatesFetchError(t *testing.T) {
	setupMiniredis(t)

	boom := errors.New("db down")
	var dest cachedThing
	err := Aside(context.Background(), "aside:err", &dest, time.Minute, func() error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestNilClientIsANoop(t *testing.T) {
	prev := client
	SetClient(nil)
	t.Cleanup(func() { SetClient(prev) })
	ctx := context.Background()

	found, err := GetJSON(ctx, "k", &cachedThing{})
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetJSON(ctx, "k", cachedThing{}, time.Minute))

	fetched := false
	var dest cachedThing
	require.NoError(t, Aside(ctx, "k", &dest, time.Minute, func() error {
		fetched = true
		dest.Name = "direct"
		return nil
	}))
	assert.True(t, fetched)
	assert.Equal(t, "direct", dest.Name)
}

func TestInvalidateUser(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, UserKey(9), cachedThing{Name: "u"}, time.Minute))
	require.True(t, mr.Exists(UserKey(9)))

	InvalidateUser(ctx, 9)
	assert.False(t, mr.Exists(UserKey(9)))
}
