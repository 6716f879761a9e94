package quiz

import (
	"context"
	"time"
)

// Store persists quizzes and attempts. Implementations return *Error values
// (ErrNotFound, ErrConflict, ...) for domain failures.
type Store interface {
	PutQuiz(ctx context.Context, q Quiz) error
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	UpdateQuiz(ctx context.Context, q Quiz) error
	ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error)
	// DeleteQuiz removes a quiz no attempt references; otherwise ErrConflict.
	DeleteQuiz(ctx context.Context, id string) error
	SetQuizActive(ctx context.Context, id string, active bool) error
	CountAttempts(ctx context.Context, quizID string) (int, error)

	// CreateAttempt atomically checks the limit and the single in-progress
	// rule for (a.QuizID, a.StudentID), assigns the next attempt number and
	// inserts a. Returns ErrLimitReached or ErrAlreadyInProgress.
	CreateAttempt(ctx context.Context, a Attempt, limit int) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	// FinishAttempt moves an in-progress attempt to a terminal status. It is a
	// compare-and-swap on status; ErrNotFound when no in-progress row matches.
	FinishAttempt(ctx context.Context, a Attempt) error
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
}

// Clock returns the current time; injected so tests can pin the window.
type Clock func() time.Time
