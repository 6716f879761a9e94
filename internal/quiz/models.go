package quiz

import "time"

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

// IsChoice reports whether answers to this type are option selections.
func (t QuestionType) IsChoice() bool {
	return t == SingleChoice || t == MultipleChoice
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusTimedOut   Status = "timed_out"
)

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusTimedOut
}

type Option struct {
	ID        string `json:"id" validate:"required"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type Question struct {
	ID              string       `json:"id" validate:"required"`
	Type            QuestionType `json:"type" validate:"required,oneof=single_choice multiple_choice true_false short_answer"`
	Prompt          string       `json:"prompt"`
	Points          float64      `json:"points" validate:"gt=0"`
	Options         []Option     `json:"options,omitempty" validate:"dive"`
	CanonicalAnswer string       `json:"canonical_answer,omitempty"`
}

type Quiz struct {
	ID              string     `json:"id"`
	CourseID        string     `json:"course_id" validate:"required"`
	Title           string     `json:"title" validate:"required"`
	Description     string     `json:"description,omitempty"`
	Questions       []Question `json:"questions" validate:"required,min=1,dive"`
	OpenAt          time.Time  `json:"open_at" validate:"required"`
	CloseAt         time.Time  `json:"close_at" validate:"required,gtfield=OpenAt"`
	AllowedAttempts int        `json:"allowed_attempts" validate:"gte=1"`
	TotalPoints     float64    `json:"total_points" validate:"gte=0"`
	RevealAnswers   bool       `json:"reveal_answers"`
	Active          bool       `json:"active"`
	CreatedBy       string     `json:"created_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Opened reports whether the window has opened at now.
func (q Quiz) Opened(now time.Time) bool { return !now.Before(q.OpenAt) }

// Closed reports whether the [open, close) window has ended at now.
func (q Quiz) Closed(now time.Time) bool { return !now.Before(q.CloseAt) }

// Answer is one submitted response, scored at submission time.
type Answer struct {
	QuestionID   string   `json:"question_id"`
	Selected     []string `json:"selected,omitempty"`
	Text         string   `json:"text,omitempty"`
	Correct      bool     `json:"correct"`
	PointsEarned float64  `json:"points_earned"`
}

type Attempt struct {
	ID            string     `json:"id"`
	QuizID        string     `json:"quiz_id"`
	StudentID     string     `json:"student_id"`
	AttemptNumber int        `json:"attempt_number"`
	Status        Status     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Answers       []Answer   `json:"answers,omitempty"`
	Score         float64    `json:"score"`
	MaxScore      float64    `json:"max_score"`
}

type ListOpts struct {
	CourseID        string
	IncludeInactive bool
	Limit           int
	Offset          int
}

type AttemptListOpts struct {
	QuizID    string
	StudentID string
	Status    Status
	// ClosedBy keeps only attempts whose quiz closed at or before this time.
	ClosedBy time.Time
	Limit    int
	Offset   int
}
