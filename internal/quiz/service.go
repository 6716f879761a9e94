package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/college-erp/internal/notify"
)

// Enrollments is the course directory the catalog and tracker consult.
type Enrollments interface {
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
	ListEnrolled(ctx context.Context, courseID string) ([]string, error)
}

// ServiceOption configures a Catalog or Tracker.
type ServiceOption func(*settings)

type settings struct {
	now   Clock
	newID func() string
	log   logrus.FieldLogger
}

func WithClock(c Clock) ServiceOption { return func(s *settings) { s.now = c } }
func WithIDs(f func() string) ServiceOption { return func(s *settings) { s.newID = f } }
func WithLogger(l logrus.FieldLogger) ServiceOption { return func(s *settings) { s.log = l } }

func newSettings(opts []ServiceOption) settings {
	s := settings{
		now:   time.Now,
		newID: uuid.NewString,
		log:   logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

func emitterOrNop(e notify.Emitter) notify.Emitter {
	if e == nil {
		return notify.Nop{}
	}
	return e
}

// visibleTo hides inactive quizzes and quizzes outside the student's courses
// behind NotFound.
func visibleTo(ctx context.Context, dir Enrollments, q Quiz, studentID string) error {
	if !q.Active {
		return newError(KindNotFound, "quiz %s not found", q.ID)
	}
	ok, err := dir.IsEnrolled(ctx, q.CourseID, studentID)
	if err != nil {
		return fmt.Errorf("check enrollment: %w", err)
	}
	if !ok {
		return newError(KindNotFound, "quiz %s not found", q.ID)
	}
	return nil
}
