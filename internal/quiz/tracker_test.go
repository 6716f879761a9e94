package quiz_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/college-erp/internal/notify"
	"github.com/mind-engage/college-erp/internal/quiz"
)

func TestStart_Window(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.createQuiz(t, sampleQuiz())

	cases := []struct {
		name string
		at   time.Time
		want error
	}{
		{"before open", q.OpenAt.Add(-time.Second), quiz.ErrNotStarted},
		{"at close", q.CloseAt, quiz.ErrExpired},
		{"after close", q.CloseAt.Add(time.Minute), quiz.ErrExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.clock.Set(tc.at)
			_, err := f.tracker.Start(ctx, q.ID, "alice")
			require.ErrorIs(t, err, tc.want)

			n, err := f.store.CountAttempts(ctx, q.ID)
			require.NoError(t, err)
			assert.Zero(t, n, "no attempt may be created outside the window")
		})
	}

	f.clock.Set(q.OpenAt)
	a, err := f.tracker.Start(ctx, q.ID, "alice")
	require.NoError(t, err, "open_at itself is inside the window")
	assert.Equal(t, quiz.StatusInProgress, a.Status)
	assert.Equal(t, 1, a.AttemptNumber)
	assert.Equal(t, q.TotalPoints, a.MaxScore)
	assert.Equal(t, q.OpenAt, a.StartedAt)
}

func TestStart_HiddenQuizzesAreNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.createQuiz(t, sampleQuiz())
	f.clock.Set(q.OpenAt)

	_, err := f.tracker.Start(ctx, "missing", "alice")
	assert.ErrorIs(t, err, quiz.ErrNotFound)

	_, err = f.tracker.Start(ctx, q.ID, "mallory")
	assert.ErrorIs(t, err, quiz.ErrNotFound, "not enrolled")

	require.NoError(t, f.catalog.Deactivate(ctx, q.ID))
	_, err = f.tracker.Start(ctx, q.ID, "alice")
	assert.ErrorIs(t, err, quiz.ErrNotFound, "inactive")
}

func TestStart_LimitReached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := sampleQuiz()
	in.AllowedAttempts = 1
	q := f.createQuiz(t, in)
	f.clock.Set(q.OpenAt.Add(time.Minute))

	a, err := f.tracker.Start(ctx, q.ID, "alice")
	require.NoError(t, err)
	_, err = f.tracker.Submit(ctx, a.ID, "alice", allCorrect())
	require.NoError(t, err)

	_, err = f.tracker.Start(ctx, q.ID, "alice")
	require.ErrorIs(t, err, quiz.ErrLimitReached)

	// other students are unaffected
	_, err = f.tracker.Start(ctx, q.ID, "bob")
	require.NoError(t, err)
}

func TestStart_AlreadyInProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.createQuiz(t, sampleQuiz())
	f.clock.Set(q.OpenAt)

	_, err := f.tracker.Start(ctx, q.ID, "alice")
	require.NoError(t, err)
	_, err = f.tracker.Start(ctx, q.ID, "alice")
	require.ErrorIs(t, err, quiz.ErrAlreadyInProgress)
}

func TestStart_NumbersAreSequential(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.createQuiz(t, sampleQuiz())
	f.clock.Set(q.OpenAt)

	for want := 1; want <= 2; want++ {
		a, err := f.tracker.Start(ctx, q.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, want, a.AttemptNumber)
		_, err = f.tracker.Submit(ctx, a.ID, "alice", nil)
		require.NoError(t, err)
	}
	list, err := f.tracker.ListForStudent(ctx, q.ID, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].AttemptNumber)
	assert.Equal(t, 2, list[1].AttemptNumber)
}

func TestStart_ConcurrentStartsCreateOneAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := sampleQuiz()
	in.AllowedAttempts = 5
	q := f.createQuiz(t, in)
	f.clock.Set(q.OpenAt)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.tracker.Start(ctx, q.ID, "alice")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, quiz.ErrAlreadyInProgress)
	}
	assert.Equal(t, 1, ok)
}

func TestSubmit_GradesAndNotifiesStudent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.createQuiz(t, sampleQuiz())
	f.clock.Set(q.OpenAt.Add(10 * time.Minute))

	a, err := f.tracker.Start(ctx, q.ID, "alice")
	require.NoError(t, err)

	f.clock.Set(q.OpenAt.Add(20 * time.Minute))
	done, err := f.tracker.Submit(ctx, a.ID, "alice", allCorrect())
	require.NoError(t, err)
	assert.Equal(t, quiz.StatusCompleted, done.Status)
	assert.Equal(t, 20.0, done.Score)
	assert.LessOrEqual(t, done.Score, done.MaxScore)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, q.OpenAt.Add(20*time.Minute), *done.CompletedAt)
	require.Len(t, done.Answers, 3)
	for _, ans := range done.Answers {
		assert.True(t, ans.Correct, ans.QuestionID)
	}

	stored, err := f.tracker.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, done.Score, stored.Score)
	assert.Equal(t, quiz.StatusCompleted, stored.Status)

	graded := f.emitter.byKind(notify.KindQuizGraded)
	require.Len(t, graded, 1)
	assert.Equal(t, "alice", graded[0].RecipientID)
	assert.Equal(t, a.ID, graded[0].Metadata["attempt_id"])
	assert.Equal(t, "20", graded[0].Metadata["score"])
}

func TestSubmit_PartialScore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.createQuiz(t, sampleQuiz())
	f.clock.Set(q.OpenAt)

	a, err := f.tracker.Start(ctx, q.ID, "alice")
	require.NoError(t, err)
	done, err := f.tracker.Submit(ctx, a.ID, "alice", []quiz.Answer{
		{QuestionID: "q1", Selected: []string{"A"}},
		{QuestionID: "q2", Text: "true"},
		{QuestionID: "nope", Text: "ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, done.Score)
	assert.Equal(t, 20.0, done.MaxScore)
}

func TestSubmit_AfterCloseTimesOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.createQuiz(t, sampleQuiz())

	f.clock.Set(q.CloseAt.Add(-time.Minute))
	a, err := f.tracker.Start(ctx, q.ID, "alice")
	require.NoError(t, err)

	f.clock.Set(q.CloseAt.Add(time.Minute))
	_, err = f.tracker.Submit(ctx, a.ID, "alice", allCorrect())
	require.ErrorIs(t, err, quiz.ErrExpired)

	stored, err := f.tracker.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.StatusTimedOut, stored.Status)
	assert.Zero(t, stored.Score)
	assert.Empty(t, stored.Answers)
	assert.NotNil(t, stored.CompletedAt)
	assert.Empty(t, f.emitter.byKind(notify.KindQuizGraded))

	// terminal: a second submit finds nothing in progress
	_, err = f.tracker.Submit(ctx, a.ID, "alice", allCorrect())
	assert.ErrorIs(t, err, quiz.ErrNotFound)
}

func TestSubmit_MalformedAfterCloseStillTimesOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.createQuiz(t, sampleQuiz())
	f.clock.Set(q.OpenAt)
	a, err := f.tracker.Start(ctx, q.ID, "alice")
	require.NoError(t, err)

	f.clock.Set(q.CloseAt)
	_, err = f.tracker.Submit(ctx, a.ID, "alice", []quiz.Answer{{QuestionID: ""}})
	require.ErrorIs(t, err, quiz.ErrExpired)

	stored, err := f.tracker.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.StatusTimedOut, stored.Status)
}

func TestSubmit_RequiresOwnInProgressAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.createQuiz(t, sampleQuiz())
	f.clock.Set(q.OpenAt)

	_, err := f.tracker.Submit(ctx, "missing", "alice", allCorrect())
	assert.ErrorIs(t, err, quiz.ErrNotFound)

	a, err := f.tracker.Start(ctx, q.ID, "alice")
	require.NoError(t, err)

	_, err = f.tracker.Submit(ctx, a.ID, "bob", allCorrect())
	assert.ErrorIs(t, err, quiz.ErrNotFound, "someone else's attempt")

	_, err = f.tracker.Submit(ctx, a.ID, "alice", allCorrect())
	require.NoError(t, err)

	_, err = f.tracker.Submit(ctx, a.ID, "alice", allCorrect())
	assert.ErrorIs(t, err, quiz.ErrNotFound, "already completed")
}

func TestSubmit_RejectsMalformedAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.createQuiz(t, sampleQuiz())
	f.clock.Set(q.OpenAt)
	a, err := f.tracker.Start(ctx, q.ID, "alice")
	require.NoError(t, err)

	_, err = f.tracker.Submit(ctx, a.ID, "alice", []quiz.Answer{
		{QuestionID: ""},
		{QuestionID: "q1", Selected: []string{"B"}, Text: "B"},
	})
	require.ErrorIs(t, err, quiz.ErrValidation)
	var qe *quiz.Error
	require.ErrorAs(t, err, &qe)
	assert.Len(t, qe.Fields, 2)

	stored, err := f.tracker.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.StatusInProgress, stored.Status, "a rejected submit leaves the attempt open")
}

func TestSubmit_EmitterFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.createQuiz(t, sampleQuiz())
	f.clock.Set(q.OpenAt)
	f.emitter.fail["alice"] = true

	a, err := f.tracker.Start(ctx, q.ID, "alice")
	require.NoError(t, err)
	done, err := f.tracker.Submit(ctx, a.ID, "alice", allCorrect())
	require.NoError(t, err)
	assert.Equal(t, quiz.StatusCompleted, done.Status)
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	early := f.createQuiz(t, sampleQuiz())
	late := sampleQuiz()
	late.Title = "Week 2"
	late.CloseAt = t0.Add(5 * time.Hour)
	lateQ := f.createQuiz(t, late)

	f.clock.Set(early.OpenAt)
	a1, err := f.tracker.Start(ctx, early.ID, "alice")
	require.NoError(t, err)
	a2, err := f.tracker.Start(ctx, lateQ.ID, "alice")
	require.NoError(t, err)

	f.clock.Set(early.CloseAt)
	n, err := f.tracker.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got1, err := f.tracker.Get(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.StatusTimedOut, got1.Status)
	got2, err := f.tracker.Get(ctx, a2.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.StatusInProgress, got2.Status)

	n, err = f.tracker.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepExpired_ReachesPastOpenQuizBacklog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	closed := f.createQuiz(t, sampleQuiz())
	open := sampleQuiz()
	open.Title = "Week 2"
	open.CloseAt = t0.Add(48 * time.Hour)
	openQ := f.createQuiz(t, open)

	start := func(quizID, student string) {
		_, err := f.store.CreateAttempt(ctx, quiz.Attempt{
			ID: fmt.Sprintf("%s-%s", quizID, student), QuizID: quizID, StudentID: student,
			Status: quiz.StatusInProgress, StartedAt: closed.OpenAt, MaxScore: 20,
		}, 1)
		require.NoError(t, err)
	}
	// open-quiz attempts sort ahead of the closed ones by student id
	for i := 0; i < 1200; i++ {
		start(openQ.ID, fmt.Sprintf("a%04d", i))
	}
	for i := 0; i < 700; i++ {
		start(closed.ID, fmt.Sprintf("z%04d", i))
	}

	f.clock.Set(closed.CloseAt)
	n, err := f.tracker.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 700, n)

	left, err := f.store.ListAttempts(ctx, quiz.AttemptListOpts{Status: quiz.StatusInProgress, Limit: 5000})
	require.NoError(t, err)
	assert.Len(t, left, 1200)
	for _, a := range left {
		assert.Equal(t, openQ.ID, a.QuizID)
	}
}

func TestListForQuiz(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.createQuiz(t, sampleQuiz())
	f.clock.Set(q.OpenAt)

	for _, s := range []string{"bob", "alice"} {
		_, err := f.tracker.Start(ctx, q.ID, s)
		require.NoError(t, err)
	}
	all, err := f.tracker.ListForQuiz(ctx, q.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].StudentID)

	_, err = f.tracker.ListForQuiz(ctx, "missing", 0, 0)
	assert.ErrorIs(t, err, quiz.ErrNotFound)
}
