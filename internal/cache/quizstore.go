package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/college-erp/internal/quiz"
)

const (
	DefaultTTL = 5 * time.Minute
	keyPrefix  = "quiz:"
)

// QuizStore caches quiz definitions in Redis in front of another quiz.Store.
// Attempts always go to the underlying store. Redis failures are logged and
// the call falls through, so the cache can only make reads faster.
type QuizStore struct {
	quiz.Store
	rdb *redis.Client
	ttl time.Duration
	log logrus.FieldLogger
}

func NewQuizStore(next quiz.Store, rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *QuizStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &QuizStore{Store: next, rdb: rdb, ttl: ttl, log: log.WithField("component", "quiz-cache")}
}

func key(id string) string { return keyPrefix + id }

func (s *QuizStore) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	raw, err := s.rdb.Get(ctx, key(id)).Bytes()
	switch {
	case err == nil:
		var q quiz.Quiz
		if err := json.Unmarshal(raw, &q); err == nil {
			return q, nil
		}
		s.log.WithField("quiz_id", id).Warn("dropping undecodable cache entry")
		s.evict(ctx, id)
	case !errors.Is(err, redis.Nil):
		s.log.WithField("quiz_id", id).WithError(err).Warn("cache read failed")
	}

	q, err := s.Store.GetQuiz(ctx, id)
	if err != nil {
		return quiz.Quiz{}, err
	}
	if buf, err := json.Marshal(q); err == nil {
		if err := s.rdb.Set(ctx, key(id), buf, s.ttl).Err(); err != nil {
			s.log.WithField("quiz_id", id).WithError(err).Warn("cache write failed")
		}
	}
	return q, nil
}

func (s *QuizStore) UpdateQuiz(ctx context.Context, q quiz.Quiz) error {
	defer s.evict(ctx, q.ID)
	return s.Store.UpdateQuiz(ctx, q)
}

func (s *QuizStore) DeleteQuiz(ctx context.Context, id string) error {
	defer s.evict(ctx, id)
	return s.Store.DeleteQuiz(ctx, id)
}

func (s *QuizStore) SetQuizActive(ctx context.Context, id string, active bool) error {
	defer s.evict(ctx, id)
	return s.Store.SetQuizActive(ctx, id, active)
}

func (s *QuizStore) evict(ctx context.Context, id string) {
	if err := s.rdb.Del(ctx, key(id)).Err(); err != nil {
		s.log.WithField("quiz_id", id).WithError(err).Warn("cache evict failed")
	}
}

var _ quiz.Store = (*QuizStore)(nil)
