// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRedisStore spins up a miniredis-backed store for tests.
func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &RedisStore{client: client, logger: zerolog.Nop()}
}

// storeUnderTest runs f against every Store implementation. The contract must
// hold identically for both.
func storeUnderTest(t *testing.T, f func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		f(t, NewMemoryStore())
	})
	t.Run("redis", func(t *testing.T) {
		f(t, newRedisStore(t))
	})
}

func TestStoreAddThenGet(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		job, err := s.Add(ctx, "rec-1", "http://audio/a.wav", "http://cb")
		require.NoError(t, err)
		require.NotEmpty(t, job.ID)
		assert.Equal(t, StatusPending, job.Status)

		got, err := s.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, "rec-1", got.RecordingID)
		assert.Equal(t, StatusPending, got.Status)
		assert.False(t, got.CreatedAt.IsZero())
		assert.Nil(t, got.StartedAt)
		assert.Nil(t, got.CompletedAt)
	})
}

func TestStoreGetUnknown(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, s Store) {
		_, err := s.Get(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStoreUniqueIDs(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seen := make(map[string]bool)
		for i := 0; i < 20; i++ {
			job, err := s.Add(ctx, "rec", "http://a", "http://cb")
			require.NoError(t, err)
			require.False(t, seen[job.ID], "duplicate job id %s", job.ID)
			seen[job.ID] = true
		}
	})
}

func TestStoreNextPendingFIFO(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		first, err := s.Add(ctx, "rec-1", "http://a", "http://cb")
		require.NoError(t, err)
		second, err := s.Add(ctx, "rec-2", "http://b", "http://cb")
		require.NoError(t, err)

		got, err := s.NextPending(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, first.ID, got.ID)

		got, err = s.NextPending(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, second.ID, got.ID)

		got, err = s.NextPending(ctx)
		require.NoError(t, err)
		assert.Nil(t, got, "drained store must report idle")
	})
}

func TestStoreNextPendingNeverRepeats(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 0; i < 10; i++ {
			_, err := s.Add(ctx, "rec", "http://a", "http://cb")
			require.NoError(t, err)
		}

		seen := make(map[string]bool)
		for {
			job, err := s.NextPending(ctx)
			require.NoError(t, err)
			if job == nil {
				break
			}
			require.False(t, seen[job.ID], "job %s dequeued twice", job.ID)
			seen[job.ID] = true
		}
		assert.Len(t, seen, 10)
	})
}

func TestStoreUpdateStampsTimestamps(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		job, err := s.Add(ctx, "rec", "http://a", "http://cb")
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, job.ID, StatusUpdate(StatusProcessing)))
		got, err := s.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusProcessing, got.Status)
		require.NotNil(t, got.StartedAt)
		assert.Nil(t, got.CompletedAt)
		started := *got.StartedAt

		errMsg := "engine exploded"
		require.NoError(t, s.Update(ctx, job.ID, Update{Status: ptr(StatusFailed), Error: &errMsg}))
		got, err = s.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, got.Status)
		assert.Equal(t, errMsg, got.Error)
		require.NotNil(t, got.CompletedAt)
		// StartedAt stamped once, not rewritten.
		assert.Equal(t, started, *got.StartedAt)
	})
}

func TestStoreUpdateResult(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		job, err := s.Add(ctx, "rec", "http://a", "http://cb")
		require.NoError(t, err)

		res := &Result{
			RecordingID:    "rec",
			Segments:       []ResultSegment{{Start: 0, End: 4, Speaker: "A", Text: "hi there"}},
			SpeakerCount:   1,
			FullTranscript: "hi there",
		}
		require.NoError(t, s.Update(ctx, job.ID, Update{Status: ptr(StatusCompleted), Result: res}))

		got, err := s.Get(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Result)
		assert.Equal(t, "hi there", got.Result.FullTranscript)
		assert.Equal(t, 1, got.Result.SpeakerCount)
	})
}

func TestStoreUpdateRejectsInvalidTransition(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		job, err := s.Add(ctx, "rec", "http://a", "http://cb")
		require.NoError(t, err)

		// pending -> completed skips processing.
		err = s.Update(ctx, job.ID, StatusUpdate(StatusCompleted))
		assert.ErrorIs(t, err, ErrInvalidTransition)

		require.NoError(t, s.Update(ctx, job.ID, StatusUpdate(StatusProcessing)))
		require.NoError(t, s.Update(ctx, job.ID, StatusUpdate(StatusCompleted)))

		// Terminal states never move again.
		err = s.Update(ctx, job.ID, StatusUpdate(StatusProcessing))
		assert.ErrorIs(t, err, ErrInvalidTransition)

		got, err := s.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
	})
}

func TestStoreUpdateSameStatusIsIdempotent(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		job, err := s.Add(ctx, "rec", "http://a", "http://cb")
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, job.ID, StatusUpdate(StatusPending)))
		got, err := s.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, got.Status)
	})
}

func TestStoreUpdateUnknownIsNoop(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, s Store) {
		err := s.Update(context.Background(), "ghost", StatusUpdate(StatusProcessing))
		assert.NoError(t, err)
	})
}

func TestStoreConcurrentAdd(t *testing.T) {
	storeUnderTest(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Add(ctx, "rec", "http://a", "http://cb")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		count := 0
		for {
			job, err := s.NextPending(ctx)
			require.NoError(t, err)
			if job == nil {
				break
			}
			count++
		}
		assert.Equal(t, 16, count)
	})
}

func TestMemoryStoreGetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	job, err := s.Add(ctx, "rec", "http://a", "http://cb")
	require.NoError(t, err)

	before, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, job.ID, StatusUpdate(StatusProcessing)))

	// The earlier snapshot must not have changed under us.
	assert.Equal(t, StatusPending, before.Status)
}

func TestRedisStoreSerializedLayout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	s := &RedisStore{client: client, logger: zerolog.Nop()}

	ctx := context.Background()
	job, err := s.Add(ctx, "rec-9", "http://a", "http://cb")
	require.NoError(t, err)

	// Pending pool is a literal FIFO list of ids.
	ids, err := mr.List(pendingKey)
	require.NoError(t, err)
	assert.Equal(t, []string{job.ID}, ids)

	// Job record is a flat JSON object under its own key.
	raw, err := mr.Get(jobPrefix + job.ID)
	require.NoError(t, err)
	assert.Contains(t, raw, `"status":"pending"`)
	assert.Contains(t, raw, `"recording_id":"rec-9"`)
}

func ptr[T any](v T) *T { return &v }
