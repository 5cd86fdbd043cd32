package jobstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-template-pipeline/pkg/analyzer"
	"card-template-pipeline/pkg/templates"
	"card-template-pipeline/pkg/types"
)

func setup(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, New(rdb, time.Hour)
}

func TestStore_SaveAndGet(t *testing.T) {
	mr, store := setup(t)
	ctx := context.Background()

	job := &types.TemplateJob{
		ID:           "abc",
		Status:       types.StatusPending,
		TemplateType: templates.AppleWallet,
		SourceKey:    "raw/abc/strip.png",
		Analysis: analyzer.Analysis{
			Status:   analyzer.StatusWrongRatio,
			CropRect: &analyzer.Rect{X: 10, Width: 100, Height: 50},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save(ctx, job))
	assert.True(t, mr.Exists("job:abc"))
	assert.Equal(t, time.Hour, mr.TTL("job:abc"))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, job, got)
}

func TestStore_GetMissing(t *testing.T) {
	_, store := setup(t)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestStore_Expires(t *testing.T) {
	mr, store := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &types.TemplateJob{ID: "old"}))
	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb, err := Connect(context.Background(), "redis://"+mr.Addr(), zerolog.Nop())
	require.NoError(t, err)
	defer rdb.Close()

	_, err = Connect(context.Background(), "://bad", zerolog.Nop())
	assert.Error(t, err)
}
