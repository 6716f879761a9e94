package quiz

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	quizzes  map[string]Quiz
	attempts map[string]Attempt
}

// NewInMemoryStore returns a Store backed by maps. Every attempt mutation runs
// under one lock, so the attempt invariants hold without a database.
func NewInMemoryStore() Store {
	return &memoryStore{
		quizzes:  map[string]Quiz{},
		attempts: map[string]Attempt{},
	}
}

func (m *memoryStore) PutQuiz(_ context.Context, q Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[q.ID]; ok {
		return newError(KindConflict, "quiz %s already exists", q.ID)
	}
	m.quizzes[q.ID] = cloneQuiz(q)
	return nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, newError(KindNotFound, "quiz %s not found", id)
	}
	return cloneQuiz(q), nil
}

func (m *memoryStore) UpdateQuiz(_ context.Context, q Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[q.ID]; !ok {
		return newError(KindNotFound, "quiz %s not found", q.ID)
	}
	m.quizzes[q.ID] = cloneQuiz(q)
	return nil
}

func (m *memoryStore) ListQuizzes(_ context.Context, opts ListOpts) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Quiz, 0, len(m.quizzes))
	for _, q := range m.quizzes {
		if opts.CourseID != "" && q.CourseID != opts.CourseID {
			continue
		}
		if !opts.IncludeInactive && !q.Active {
			continue
		}
		out = append(out, cloneQuiz(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenAt.After(out[j].OpenAt) })
	return page(out, opts.Limit, opts.Offset), nil
}

func (m *memoryStore) DeleteQuiz(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return newError(KindNotFound, "quiz %s not found", id)
	}
	for _, a := range m.attempts {
		if a.QuizID == id {
			return newError(KindConflict, "quiz %s has attempts; deactivate it instead", id)
		}
	}
	delete(m.quizzes, id)
	return nil
}

func (m *memoryStore) SetQuizActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return newError(KindNotFound, "quiz %s not found", id)
	}
	q.Active = active
	m.quizzes[id] = q
	return nil
}

func (m *memoryStore) CountAttempts(_ context.Context, quizID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.attempts {
		if a.QuizID == quizID {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) CreateAttempt(_ context.Context, a Attempt, limit int) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[a.QuizID]; !ok {
		return Attempt{}, newError(KindNotFound, "quiz %s not found", a.QuizID)
	}
	count := 0
	for _, x := range m.attempts {
		if x.QuizID != a.QuizID || x.StudentID != a.StudentID {
			continue
		}
		if x.Status == StatusInProgress {
			return Attempt{}, ErrAlreadyInProgress
		}
		count++
	}
	if count >= limit {
		return Attempt{}, ErrLimitReached
	}
	a.AttemptNumber = count + 1
	a.Status = StatusInProgress
	m.attempts[a.ID] = cloneAttempt(a)
	return a, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, newError(KindNotFound, "attempt %s not found", id)
	}
	return cloneAttempt(a), nil
}

func (m *memoryStore) FinishAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.attempts[a.ID]
	if !ok || cur.Status != StatusInProgress {
		return newError(KindNotFound, "no in-progress attempt %s", a.ID)
	}
	cur.Status = a.Status
	cur.CompletedAt = a.CompletedAt
	cur.Answers = a.Answers
	cur.Score = a.Score
	m.attempts[a.ID] = cloneAttempt(cur)
	return nil
}

func (m *memoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Attempt, 0)
	for _, a := range m.attempts {
		if opts.QuizID != "" && a.QuizID != opts.QuizID {
			continue
		}
		if opts.StudentID != "" && a.StudentID != opts.StudentID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		if !opts.ClosedBy.IsZero() {
			q, ok := m.quizzes[a.QuizID]
			if !ok || !q.Closed(opts.ClosedBy) {
				continue
			}
		}
		out = append(out, cloneAttempt(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentID != out[j].StudentID {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].AttemptNumber < out[j].AttemptNumber
	})
	return page(out, opts.Limit, opts.Offset), nil
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return in[:0]
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

func cloneQuiz(q Quiz) Quiz {
	qs := make([]Question, len(q.Questions))
	for i, qu := range q.Questions {
		qu.Options = append([]Option(nil), qu.Options...)
		qs[i] = qu
	}
	q.Questions = qs
	return q
}

func cloneAttempt(a Attempt) Attempt {
	if a.Answers != nil {
		ans := make([]Answer, len(a.Answers))
		for i, x := range a.Answers {
			x.Selected = append([]string(nil), x.Selected...)
			ans[i] = x
		}
		a.Answers = ans
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		a.CompletedAt = &t
	}
	return a
}
