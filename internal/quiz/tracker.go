package quiz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/college-erp/internal/grading"
	"github.com/mind-engage/college-erp/internal/notify"
)

// Tracker runs the attempt lifecycle: start, submit, time out.
type Tracker struct {
	store   Store
	dir     Enrollments
	emitter notify.Emitter
	grader  *grading.Engine
	settings
}

func NewTracker(store Store, dir Enrollments, emitter notify.Emitter, opts ...ServiceOption) *Tracker {
	return &Tracker{
		store:    store,
		dir:      dir,
		emitter:  emitterOrNop(emitter),
		grader:   grading.NewEngine(),
		settings: newSettings(opts),
	}
}

// Start opens a new attempt for studentID. The limit and single in-progress
// checks run inside the store together with the insert.
func (t *Tracker) Start(ctx context.Context, quizID, studentID string) (Attempt, error) {
	q, err := t.store.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if err := visibleTo(ctx, t.dir, q, studentID); err != nil {
		return Attempt{}, err
	}
	now := t.now()
	if !q.Opened(now) {
		return Attempt{}, newError(KindNotStarted, "quiz %s opens at %s", q.ID, q.OpenAt.Format(time.RFC3339))
	}
	if q.Closed(now) {
		return Attempt{}, newError(KindExpired, "quiz %s closed at %s", q.ID, q.CloseAt.Format(time.RFC3339))
	}

	a, err := t.store.CreateAttempt(ctx, Attempt{
		ID:        t.newID(),
		QuizID:    q.ID,
		StudentID: studentID,
		Status:    StatusInProgress,
		StartedAt: now,
		MaxScore:  q.TotalPoints,
	}, q.AllowedAttempts)
	if err != nil {
		return Attempt{}, err
	}
	t.log.WithFields(logrus.Fields{
		"quiz_id":    q.ID,
		"attempt_id": a.ID,
		"student_id": studentID,
		"number":     a.AttemptNumber,
	}).Info("attempt started")
	return a, nil
}

// Submit grades and closes the student's in-progress attempt. Past the close
// time the attempt is closed as timed out instead and ErrExpired is returned.
func (t *Tracker) Submit(ctx context.Context, attemptID, studentID string, answers []Answer) (Attempt, error) {
	a, err := t.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.StudentID != studentID || a.Status != StatusInProgress {
		return Attempt{}, newError(KindNotFound, "no in-progress attempt %s", attemptID)
	}
	q, err := t.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return Attempt{}, fmt.Errorf("load quiz for attempt %s: %w", a.ID, err)
	}

	now := t.now()
	if q.Closed(now) {
		if err := t.timeOut(ctx, a); err != nil {
			return Attempt{}, err
		}
		return Attempt{}, newError(KindExpired, "quiz %s closed at %s; attempt %s timed out", q.ID, q.CloseAt.Format(time.RFC3339), a.ID)
	}
	if err := ValidateAnswers(answers); err != nil {
		return Attempt{}, err
	}

	answers = normalizeAnswers(q.Questions, answers)
	results, total := t.grader.Grade(gradingQuestions(q.Questions), gradingResponses(answers))
	a.Answers = make([]Answer, 0, len(results))
	for _, r := range results {
		a.Answers = append(a.Answers, Answer{
			QuestionID:   r.QuestionID,
			Selected:     r.Selected,
			Text:         r.Text,
			Correct:      r.Correct,
			PointsEarned: r.Points,
		})
	}
	a.Score = math.Min(total, a.MaxScore)
	a.Status = StatusCompleted
	a.CompletedAt = &now
	if err := t.store.FinishAttempt(ctx, a); err != nil {
		return Attempt{}, err
	}

	t.log.WithFields(logrus.Fields{
		"quiz_id":    q.ID,
		"attempt_id": a.ID,
		"score":      a.Score,
	}).Info("attempt graded")

	notify.FanOut(ctx, t.log, t.emitter, []string{a.StudentID}, func(string) notify.Message {
		return notify.Message{
			Kind:      notify.KindQuizGraded,
			Title:     "Quiz graded",
			Body:      fmt.Sprintf("%s: %g / %g", q.Title, a.Score, a.MaxScore),
			CreatedAt: now,
			Metadata: map[string]string{
				"quiz_id":    q.ID,
				"attempt_id": a.ID,
				"score":      strconv.FormatFloat(a.Score, 'f', -1, 64),
				"max_score":  strconv.FormatFloat(a.MaxScore, 'f', -1, 64),
			},
		}
	})
	return a, nil
}

func (t *Tracker) timeOut(ctx context.Context, a Attempt) error {
	now := t.now()
	a.Status = StatusTimedOut
	a.CompletedAt = &now
	a.Answers = nil
	a.Score = 0
	if err := t.store.FinishAttempt(ctx, a); err != nil {
		return err
	}
	t.log.WithFields(logrus.Fields{"quiz_id": a.QuizID, "attempt_id": a.ID}).Info("attempt timed out")
	return nil
}

func (t *Tracker) Get(ctx context.Context, attemptID string) (Attempt, error) {
	return t.store.GetAttempt(ctx, attemptID)
}

// ListForStudent returns the student's attempts at one quiz, by attempt number.
func (t *Tracker) ListForStudent(ctx context.Context, quizID, studentID string) ([]Attempt, error) {
	return t.store.ListAttempts(ctx, AttemptListOpts{QuizID: quizID, StudentID: studentID})
}

// ListForQuiz returns every attempt at a quiz.
func (t *Tracker) ListForQuiz(ctx context.Context, quizID string, limit, offset int) ([]Attempt, error) {
	if _, err := t.store.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return t.store.ListAttempts(ctx, AttemptListOpts{QuizID: quizID, Limit: limit, Offset: offset})
}

// sweepBatch bounds how many attempts one sweep query loads.
const sweepBatch = 500

// SweepExpired times out every in-progress attempt whose quiz has closed and
// reports how many it moved. Attempts finished concurrently are skipped.
// Each timed-out attempt leaves the in-progress set, so every batch reads
// from offset zero until none remain.
func (t *Tracker) SweepExpired(ctx context.Context) (int, error) {
	now := t.now()
	swept := 0
	for {
		batch, err := t.store.ListAttempts(ctx, AttemptListOpts{
			Status:   StatusInProgress,
			ClosedBy: now,
			Limit:    sweepBatch,
		})
		if err != nil {
			return swept, err
		}
		for _, a := range batch {
			if err := t.timeOut(ctx, a); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return swept, err
			}
			swept++
		}
		if len(batch) < sweepBatch {
			return swept, nil
		}
	}
}

func gradingQuestions(qs []Question) []grading.Q {
	out := make([]grading.Q, 0, len(qs))
	for _, q := range qs {
		gq := grading.Q{
			ID:        q.ID,
			Type:      string(q.Type),
			Points:    q.Points,
			Canonical: q.CanonicalAnswer,
		}
		for _, o := range q.Options {
			if o.IsCorrect {
				gq.Correct = append(gq.Correct, o.ID)
			}
		}
		out = append(out, gq)
	}
	return out
}

func gradingResponses(answers []Answer) []grading.Response {
	out := make([]grading.Response, 0, len(answers))
	for _, a := range answers {
		out = append(out, grading.Response{QuestionID: a.QuestionID, Selected: a.Selected, Text: a.Text})
	}
	return out
}
