package quiz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/college-erp/internal/notify"
)

// Catalog owns quiz definitions: authoring, projections and lifecycle.
type Catalog struct {
	store   Store
	dir     Enrollments
	emitter notify.Emitter
	settings
}

func NewCatalog(store Store, dir Enrollments, emitter notify.Emitter, opts ...ServiceOption) *Catalog {
	return &Catalog{
		store:    store,
		dir:      dir,
		emitter:  emitterOrNop(emitter),
		settings: newSettings(opts),
	}
}

// Patch is a partial quiz update; nil fields are left unchanged.
type Patch struct {
	Title           *string     `json:"title,omitempty"`
	Description     *string     `json:"description,omitempty"`
	Questions       *[]Question `json:"questions,omitempty"`
	OpenAt          *time.Time  `json:"open_at,omitempty"`
	CloseAt         *time.Time  `json:"close_at,omitempty"`
	AllowedAttempts *int        `json:"allowed_attempts,omitempty"`
	TotalPoints     *float64    `json:"total_points,omitempty"`
	RevealAnswers   *bool       `json:"reveal_answers,omitempty"`
}

func (p Patch) touchesScoring() bool {
	return p.Questions != nil || p.TotalPoints != nil
}

func (p Patch) apply(q *Quiz) {
	if p.Title != nil {
		q.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.Questions != nil {
		q.Questions = append([]Question(nil), (*p.Questions)...)
		if p.TotalPoints == nil {
			q.TotalPoints = SumPoints(q.Questions)
		}
	}
	if p.OpenAt != nil {
		q.OpenAt = *p.OpenAt
	}
	if p.CloseAt != nil {
		q.CloseAt = *p.CloseAt
	}
	if p.AllowedAttempts != nil {
		q.AllowedAttempts = *p.AllowedAttempts
	}
	if p.TotalPoints != nil {
		q.TotalPoints = *p.TotalPoints
	}
	if p.RevealAnswers != nil {
		q.RevealAnswers = *p.RevealAnswers
	}
}

// Create validates and stores a new active quiz, then tells every enrolled
// student it is available. Notification failures never fail the create.
func (c *Catalog) Create(ctx context.Context, q Quiz, createdBy string) (Quiz, error) {
	if q.ID == "" {
		q.ID = c.newID()
	}
	q.Title = strings.TrimSpace(q.Title)
	if q.TotalPoints == 0 {
		q.TotalPoints = SumPoints(q.Questions)
	}
	if q.AllowedAttempts == 0 {
		q.AllowedAttempts = 1
	}
	if err := Validate(q); err != nil {
		return Quiz{}, err
	}

	now := c.now()
	q.Active = true
	q.CreatedBy = createdBy
	q.CreatedAt = now
	q.UpdatedAt = now
	if err := c.store.PutQuiz(ctx, q); err != nil {
		return Quiz{}, err
	}

	c.announce(ctx, q)
	return q, nil
}

func (c *Catalog) announce(ctx context.Context, q Quiz) {
	log := c.log.WithFields(logrus.Fields{"quiz_id": q.ID, "course_id": q.CourseID})
	students, err := c.dir.ListEnrolled(ctx, q.CourseID)
	if err != nil {
		log.WithError(err).Warn("cannot list enrolled students; quiz announcement skipped")
		return
	}
	sent := notify.FanOut(ctx, log, c.emitter, students, func(string) notify.Message {
		return notify.Message{
			Kind:      notify.KindQuizAvailable,
			Title:     "New quiz available",
			Body:      fmt.Sprintf("%s opens %s and closes %s", q.Title, q.OpenAt.Format(time.RFC3339), q.CloseAt.Format(time.RFC3339)),
			CreatedAt: q.CreatedAt,
			Metadata: map[string]string{
				"quiz_id":   q.ID,
				"course_id": q.CourseID,
				"open_at":   q.OpenAt.Format(time.RFC3339),
				"close_at":  q.CloseAt.Format(time.RFC3339),
			},
		}
	})
	log.WithFields(logrus.Fields{"recipients": len(students), "sent": sent}).Info("quiz announced")
}

func (c *Catalog) GetForInstructor(ctx context.Context, id string) (QuizForInstructor, error) {
	q, err := c.store.GetQuiz(ctx, id)
	if err != nil {
		return QuizForInstructor{}, err
	}
	return ForInstructor(q), nil
}

// GetForStudent returns the redacted view. Inactive quizzes and quizzes
// outside the student's courses read as not found.
func (c *Catalog) GetForStudent(ctx context.Context, id, studentID string) (QuizForStudent, error) {
	q, err := c.store.GetQuiz(ctx, id)
	if err != nil {
		return QuizForStudent{}, err
	}
	if err := visibleTo(ctx, c.dir, q, studentID); err != nil {
		return QuizForStudent{}, err
	}
	return ForStudent(q, c.now()), nil
}

func (c *Catalog) List(ctx context.Context, opts ListOpts) ([]QuizForInstructor, error) {
	qs, err := c.store.ListQuizzes(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := make([]QuizForInstructor, 0, len(qs))
	for _, q := range qs {
		out = append(out, ForInstructor(q))
	}
	return out, nil
}

// ListForStudent lists the active quizzes of one course the student is
// enrolled in.
func (c *Catalog) ListForStudent(ctx context.Context, courseID, studentID string, limit, offset int) ([]QuizForStudent, error) {
	ok, err := c.dir.IsEnrolled(ctx, courseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !ok {
		return []QuizForStudent{}, nil
	}
	qs, err := c.store.ListQuizzes(ctx, ListOpts{CourseID: courseID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	now := c.now()
	out := make([]QuizForStudent, 0, len(qs))
	for _, q := range qs {
		out = append(out, ForStudent(q, now))
	}
	return out, nil
}

// Update applies p. Changing questions or total points is refused once any
// attempt exists, whatever the current window.
func (c *Catalog) Update(ctx context.Context, id string, p Patch) (Quiz, error) {
	q, err := c.store.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	now := c.now()
	if p.touchesScoring() {
		n, err := c.store.CountAttempts(ctx, id)
		if err != nil {
			return Quiz{}, err
		}
		if n > 0 {
			return Quiz{}, newError(KindConflict, "quiz %s already has %d attempt(s); questions and points are locked", id, n)
		}
	}

	p.apply(&q)
	if err := Validate(q); err != nil {
		return Quiz{}, err
	}
	q.UpdatedAt = now
	if err := c.store.UpdateQuiz(ctx, q); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// Delete removes a quiz without attempts; otherwise callers should Deactivate.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	return c.store.DeleteQuiz(ctx, id)
}

// Deactivate hides the quiz from students and blocks new attempts while
// keeping existing attempts readable.
func (c *Catalog) Deactivate(ctx context.Context, id string) error {
	return c.store.SetQuizActive(ctx, id, false)
}
