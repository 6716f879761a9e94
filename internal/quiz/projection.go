package quiz

import "time"

// QuizForInstructor is the full view, answer key included.
type QuizForInstructor struct {
	Quiz
}

type StudentOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

type StudentQuestion struct {
	ID              string          `json:"id"`
	Type            QuestionType    `json:"type"`
	Prompt          string          `json:"prompt"`
	Points          float64         `json:"points"`
	Options         []StudentOption `json:"options,omitempty"`
	CanonicalAnswer string          `json:"canonical_answer,omitempty"`
}

// QuizForStudent is the student view. The answer key is only present when
// AnswersRevealed is true.
type QuizForStudent struct {
	ID              string            `json:"id"`
	CourseID        string            `json:"course_id"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Questions       []StudentQuestion `json:"questions"`
	OpenAt          time.Time         `json:"open_at"`
	CloseAt         time.Time         `json:"close_at"`
	AllowedAttempts int               `json:"allowed_attempts"`
	TotalPoints     float64           `json:"total_points"`
	AnswersRevealed bool              `json:"answers_revealed"`
}

func ForInstructor(q Quiz) QuizForInstructor {
	return QuizForInstructor{Quiz: q}
}

// ForStudent builds the student projection; it never mutates q. The key is
// redacted while the window is open unless the quiz reveals answers early.
func ForStudent(q Quiz, now time.Time) QuizForStudent {
	reveal := q.RevealAnswers || q.Closed(now)
	out := QuizForStudent{
		ID:              q.ID,
		CourseID:        q.CourseID,
		Title:           q.Title,
		Description:     q.Description,
		Questions:       make([]StudentQuestion, 0, len(q.Questions)),
		OpenAt:          q.OpenAt,
		CloseAt:         q.CloseAt,
		AllowedAttempts: q.AllowedAttempts,
		TotalPoints:     q.TotalPoints,
		AnswersRevealed: reveal,
	}
	for _, qu := range q.Questions {
		sq := StudentQuestion{
			ID:     qu.ID,
			Type:   qu.Type,
			Prompt: qu.Prompt,
			Points: qu.Points,
		}
		for _, o := range qu.Options {
			so := StudentOption{ID: o.ID, Text: o.Text}
			if reveal {
				correct := o.IsCorrect
				so.IsCorrect = &correct
			}
			sq.Options = append(sq.Options, so)
		}
		if reveal {
			sq.CanonicalAnswer = qu.CanonicalAnswer
		}
		out.Questions = append(out.Questions, sq)
	}
	return out
}
