package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/college-erp/internal/db"
	syncx "github.com/mind-engage/college-erp/internal/sync"
)

type SQLStore struct {
	db     *sqlx.DB
	events *syncx.EventRepo
}

// NewSQLStore returns a Store over db. events may be nil; when set, every
// terminal attempt transition is appended to the event log in the same
// transaction.
func NewSQLStore(db *sqlx.DB, events *syncx.EventRepo) *SQLStore {
	return &SQLStore{db: db, events: events}
}

type quizRow struct {
	ID              string  `db:"id"`
	CourseID        string  `db:"course_id"`
	Title           string  `db:"title"`
	Description     string  `db:"description"`
	QuestionsJSON   string  `db:"questions_json"`
	OpenAt          int64   `db:"open_at"`
	CloseAt         int64   `db:"close_at"`
	AllowedAttempts int     `db:"allowed_attempts"`
	TotalPoints     float64 `db:"total_points"`
	RevealAnswers   bool    `db:"reveal_answers"`
	Active          bool    `db:"active"`
	CreatedBy       string  `db:"created_by"`
	CreatedAt       int64   `db:"created_at"`
	UpdatedAt       int64   `db:"updated_at"`
}

const quizColumns = `id, course_id, title, description, questions_json, open_at, close_at,
	allowed_attempts, total_points, reveal_answers, active, created_by, created_at, updated_at`

func toQuizRow(q Quiz) (quizRow, error) {
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return quizRow{}, err
	}
	return quizRow{
		ID:              q.ID,
		CourseID:        q.CourseID,
		Title:           q.Title,
		Description:     q.Description,
		QuestionsJSON:   string(qj),
		OpenAt:          q.OpenAt.UnixMilli(),
		CloseAt:         q.CloseAt.UnixMilli(),
		AllowedAttempts: q.AllowedAttempts,
		TotalPoints:     q.TotalPoints,
		RevealAnswers:   q.RevealAnswers,
		Active:          q.Active,
		CreatedBy:       q.CreatedBy,
		CreatedAt:       q.CreatedAt.UnixMilli(),
		UpdatedAt:       q.UpdatedAt.UnixMilli(),
	}, nil
}

func (r quizRow) toQuiz() (Quiz, error) {
	q := Quiz{
		ID:              r.ID,
		CourseID:        r.CourseID,
		Title:           r.Title,
		Description:     r.Description,
		OpenAt:          time.UnixMilli(r.OpenAt).UTC(),
		CloseAt:         time.UnixMilli(r.CloseAt).UTC(),
		AllowedAttempts: r.AllowedAttempts,
		TotalPoints:     r.TotalPoints,
		RevealAnswers:   r.RevealAnswers,
		Active:          r.Active,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:       time.UnixMilli(r.UpdatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(r.QuestionsJSON), &q.Questions); err != nil {
		return Quiz{}, fmt.Errorf("decode questions of quiz %s: %w", r.ID, err)
	}
	return q, nil
}

func (s *SQLStore) PutQuiz(ctx context.Context, q Quiz) error {
	row, err := toQuizRow(q)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, `INSERT INTO quizzes (`+quizColumns+`)
		VALUES (:id, :course_id, :title, :description, :questions_json, :open_at, :close_at,
			:allowed_attempts, :total_points, :reveal_answers, :active, :created_by, :created_at, :updated_at)`, row)
	if db.IsUniqueViolation(err) {
		return newError(KindConflict, "quiz %s already exists", q.ID)
	}
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	var row quizRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+quizColumns+` FROM quizzes WHERE id=?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, newError(KindNotFound, "quiz %s not found", id)
	}
	if err != nil {
		return Quiz{}, err
	}
	return row.toQuiz()
}

func (s *SQLStore) UpdateQuiz(ctx context.Context, q Quiz) error {
	row, err := toQuizRow(q)
	if err != nil {
		return err
	}
	res, err := s.db.NamedExecContext(ctx, `UPDATE quizzes SET
		title=:title, description=:description, questions_json=:questions_json,
		open_at=:open_at, close_at=:close_at, allowed_attempts=:allowed_attempts,
		total_points=:total_points, reveal_answers=:reveal_answers, active=:active, updated_at=:updated_at
		WHERE id=:id`, row)
	if err != nil {
		return err
	}
	return notFoundIfNone(res, "quiz %s not found", q.ID)
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error) {
	q := `SELECT ` + quizColumns + ` FROM quizzes WHERE 1=1`
	var args []any
	if opts.CourseID != "" {
		q += ` AND course_id=?`
		args = append(args, opts.CourseID)
	}
	if !opts.IncludeInactive {
		q += ` AND active=?`
		args = append(args, true)
	}
	q += ` ORDER BY open_at DESC`
	q, args = withPaging(q, args, opts.Limit, opts.Offset)

	var rows []quizRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	out := make([]Quiz, 0, len(rows))
	for _, r := range rows {
		qz, err := r.toQuiz()
		if err != nil {
			return nil, err
		}
		out = append(out, qz)
	}
	return out, nil
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM quizzes WHERE id=? AND NOT EXISTS (SELECT 1 FROM attempts WHERE quiz_id=?)`), id, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := s.GetQuiz(ctx, id); err != nil {
		return err
	}
	return newError(KindConflict, "quiz %s has attempts; deactivate it instead", id)
}

func (s *SQLStore) SetQuizActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE quizzes SET active=?, updated_at=? WHERE id=?`),
		active, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	return notFoundIfNone(res, "quiz %s not found", id)
}

func (s *SQLStore) CountAttempts(ctx context.Context, quizID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM attempts WHERE quiz_id=?`), quizID)
	return n, err
}

type attemptRow struct {
	ID            string        `db:"id"`
	QuizID        string        `db:"quiz_id"`
	StudentID     string        `db:"student_id"`
	AttemptNumber int           `db:"attempt_number"`
	Status        string        `db:"status"`
	StartedAt     int64         `db:"started_at"`
	CompletedAt   sql.NullInt64 `db:"completed_at"`
	AnswersJSON   string        `db:"answers_json"`
	Score         float64       `db:"score"`
	MaxScore      float64       `db:"max_score"`
}

const attemptColumns = `id, quiz_id, student_id, attempt_number, status, started_at, completed_at, answers_json, score, max_score`

func (r attemptRow) toAttempt() Attempt {
	a := Attempt{
		ID:            r.ID,
		QuizID:        r.QuizID,
		StudentID:     r.StudentID,
		AttemptNumber: r.AttemptNumber,
		Status:        Status(r.Status),
		StartedAt:     time.UnixMilli(r.StartedAt).UTC(),
		Score:         r.Score,
		MaxScore:      r.MaxScore,
	}
	if r.CompletedAt.Valid {
		t := time.UnixMilli(r.CompletedAt.Int64).UTC()
		a.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(r.AnswersJSON), &a.Answers); err != nil || len(a.Answers) == 0 {
		a.Answers = nil
	}
	return a
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt, limit int) (Attempt, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	var st struct {
		Total      int `db:"total"`
		InProgress int `db:"in_progress"`
		MaxNumber  int `db:"max_number"`
	}
	err = tx.GetContext(ctx, &st, tx.Rebind(`SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status='in_progress' THEN 1 ELSE 0 END), 0) AS in_progress,
			COALESCE(MAX(attempt_number), 0) AS max_number
		FROM attempts WHERE quiz_id=? AND student_id=?`), a.QuizID, a.StudentID)
	if err != nil {
		return Attempt{}, err
	}
	if st.InProgress > 0 {
		return Attempt{}, ErrAlreadyInProgress
	}
	if st.Total >= limit {
		return Attempt{}, ErrLimitReached
	}

	a.AttemptNumber = st.MaxNumber + 1
	a.Status = StatusInProgress
	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO attempts
		(id, quiz_id, student_id, attempt_number, status, started_at, answers_json, score, max_score)
		VALUES (?,?,?,?,?,?,'[]',0,?)`),
		a.ID, a.QuizID, a.StudentID, a.AttemptNumber, string(a.Status), a.StartedAt.UnixMilli(), a.MaxScore)
	if db.IsUniqueViolation(err) {
		// a concurrent start for the same student won the race
		return Attempt{}, ErrAlreadyInProgress
	}
	if err != nil {
		return Attempt{}, err
	}
	if err := tx.Commit(); err != nil {
		if db.IsUniqueViolation(err) {
			return Attempt{}, ErrAlreadyInProgress
		}
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	var row attemptRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+attemptColumns+` FROM attempts WHERE id=?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, newError(KindNotFound, "attempt %s not found", id)
	}
	if err != nil {
		return Attempt{}, err
	}
	return row.toAttempt(), nil
}

func (s *SQLStore) FinishAttempt(ctx context.Context, a Attempt) error {
	answers := a.Answers
	if answers == nil {
		answers = []Answer{}
	}
	buf, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	var completedAt sql.NullInt64
	if a.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: a.CompletedAt.UnixMilli(), Valid: true}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE attempts
		SET status=?, completed_at=?, answers_json=?, score=?
		WHERE id=? AND status='in_progress'`),
		string(a.Status), completedAt, string(buf), a.Score, a.ID)
	if err != nil {
		return err
	}
	if err := notFoundIfNone(res, "no in-progress attempt %s", a.ID); err != nil {
		return err
	}

	if s.events != nil {
		typ := syncx.TypeAttemptCompleted
		if a.Status == StatusTimedOut {
			typ = syncx.TypeAttemptTimedOut
		}
		payload := map[string]any{
			"attempt_id": a.ID,
			"quiz_id":    a.QuizID,
			"student_id": a.StudentID,
			"score":      a.Score,
			"max_score":  a.MaxScore,
		}
		if err := s.events.Append(ctx, tx, typ, a.ID, payload); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	q := `SELECT ` + attemptColumns + ` FROM attempts WHERE 1=1`
	var args []any
	if opts.QuizID != "" {
		q += ` AND quiz_id=?`
		args = append(args, opts.QuizID)
	}
	if opts.StudentID != "" {
		q += ` AND student_id=?`
		args = append(args, opts.StudentID)
	}
	if opts.Status != "" {
		q += ` AND status=?`
		args = append(args, string(opts.Status))
	}
	if !opts.ClosedBy.IsZero() {
		q += ` AND quiz_id IN (SELECT id FROM quizzes WHERE close_at <= ?)`
		args = append(args, opts.ClosedBy.UnixMilli())
	}
	q += ` ORDER BY student_id, attempt_number`
	q, args = withPaging(q, args, opts.Limit, opts.Offset)

	var rows []attemptRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	out := make([]Attempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toAttempt())
	}
	return out, nil
}

func withPaging(q string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 {
		limit = 1000
	}
	q += ` LIMIT ? OFFSET ?`
	return q, append(args, limit, offset)
}

func notFoundIfNone(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return newError(KindNotFound, format, args...)
	}
	return nil
}
