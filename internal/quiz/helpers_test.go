package quiz_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/college-erp/internal/enrollment"
	"github.com/mind-engage/college-erp/internal/notify"
	"github.com/mind-engage/college-erp/internal/quiz"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

/* ---------------- fakes ---------------- */

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingEmitter struct {
	mu   sync.Mutex
	sent []notify.Message
	fail map[string]bool // recipient => fail
}

func (e *recordingEmitter) Emit(_ context.Context, m notify.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail[m.RecipientID] {
		return errors.New("broker unavailable")
	}
	e.sent = append(e.sent, m)
	return nil
}

func (e *recordingEmitter) byKind(kind string) []notify.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []notify.Message
	for _, m := range e.sent {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

/* ---------------- fixture ---------------- */

type fixture struct {
	store   quiz.Store
	dir     *enrollment.MemoryDirectory
	emitter *recordingEmitter
	clock   *fakeClock
	catalog *quiz.Catalog
	tracker *quiz.Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, quiz.NewInMemoryStore())
}

func newFixtureWithStore(t *testing.T, store quiz.Store) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		store:   store,
		dir:     enrollment.NewMemoryDirectory(),
		emitter: &recordingEmitter{fail: map[string]bool{}},
		clock:   &fakeClock{now: t0},
	}
	var seq atomic.Int64
	ids := func() string {
		return fmt.Sprintf("id-%03d", seq.Add(1))
	}
	opts := []quiz.ServiceOption{quiz.WithClock(f.clock.Now), quiz.WithIDs(ids), quiz.WithLogger(log)}
	f.catalog = quiz.NewCatalog(store, f.dir, f.emitter, opts...)
	f.tracker = quiz.NewTracker(store, f.dir, f.emitter, opts...)

	ctx := context.Background()
	require.NoError(t, f.dir.CreateCourse(ctx, enrollment.Course{ID: "cs101", Name: "Intro"}))
	require.NoError(t, f.dir.Enroll(ctx, "cs101", "alice"))
	require.NoError(t, f.dir.Enroll(ctx, "cs101", "bob"))
	return f
}

// sampleQuiz opens at t0+1h and closes at t0+2h.
func sampleQuiz() quiz.Quiz {
	return quiz.Quiz{
		CourseID: "cs101",
		Title:    "Week 1",
		Questions: []quiz.Question{
			{
				ID: "q1", Type: quiz.SingleChoice, Prompt: "Pick B", Points: 10,
				Options: []quiz.Option{{ID: "A", Text: "a"}, {ID: "B", Text: "b", IsCorrect: true}},
			},
			{ID: "q2", Type: quiz.TrueFalse, Prompt: "Go has generics", Points: 5, CanonicalAnswer: "true"},
			{ID: "q3", Type: quiz.ShortAnswer, Prompt: "Capital of France", Points: 5, CanonicalAnswer: "Paris"},
		},
		OpenAt:          t0.Add(time.Hour),
		CloseAt:         t0.Add(2 * time.Hour),
		AllowedAttempts: 2,
	}
}

func (f *fixture) createQuiz(t *testing.T, q quiz.Quiz) quiz.Quiz {
	t.Helper()
	created, err := f.catalog.Create(context.Background(), q, "prof")
	require.NoError(t, err)
	return created
}

func allCorrect() []quiz.Answer {
	return []quiz.Answer{
		{QuestionID: "q1", Selected: []string{"B"}},
		{QuestionID: "q2", Text: "TRUE"},
		{QuestionID: "q3", Text: " paris "},
	}
}
