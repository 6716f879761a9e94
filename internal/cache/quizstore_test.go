package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/college-erp/internal/cache"
	"github.com/mind-engage/college-erp/internal/quiz"
)

// countingStore counts reads that reach the backing store.
type countingStore struct {
	quiz.Store
	gets int
}

func (c *countingStore) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	c.gets++
	return c.Store.GetQuiz(ctx, id)
}

func TestQuizStore_ReadThroughAndEvict(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := cache.NewRedisClient(cache.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer rdb.Close()

	backing := &countingStore{Store: quiz.NewInMemoryStore()}
	store := cache.NewQuizStore(backing, rdb, time.Minute, nil)

	open := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	q := quiz.Quiz{
		ID:       uuid.NewString(),
		CourseID: "cs101",
		Title:    "cached",
		Questions: []quiz.Question{
			{ID: "q1", Type: quiz.ShortAnswer, Points: 1, CanonicalAnswer: "x"},
		},
		OpenAt:          open,
		CloseAt:         open.Add(time.Hour),
		AllowedAttempts: 1,
		TotalPoints:     1,
		Active:          true,
	}
	require.NoError(t, store.PutQuiz(ctx, q))
	t.Cleanup(func() { _ = store.DeleteQuiz(ctx, q.ID) })

	for i := 0; i < 3; i++ {
		got, err := store.GetQuiz(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, q.Title, got.Title)
	}
	assert.Equal(t, 1, backing.gets, "later reads come from redis")

	require.NoError(t, store.SetQuizActive(ctx, q.ID, false))
	got, err := store.GetQuiz(ctx, q.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, 2, backing.gets)

	_, err = store.GetQuiz(ctx, "missing-"+q.ID)
	assert.ErrorIs(t, err, quiz.ErrNotFound)
}
