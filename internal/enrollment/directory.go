package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/college-erp/internal/db"
)

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrCourseExists   = errors.New("course already exists")
)

type Course struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	CreatedBy string `json:"created_by,omitempty" db:"created_by"`
}

// Directory answers enrollment questions for the quiz core.
type Directory interface {
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
	ListEnrolled(ctx context.Context, courseID string) ([]string, error)
}

// Roster is a Directory that can also manage courses and enrollments.
type Roster interface {
	Directory
	CreateCourse(ctx context.Context, c Course) error
	GetCourse(ctx context.Context, id string) (Course, error)
	Enroll(ctx context.Context, courseID, studentID string) error
	Unenroll(ctx context.Context, courseID, studentID string) error
}

// SQLDirectory reads and writes the courses / course_students tables.
type SQLDirectory struct {
	db *sqlx.DB
}

func NewSQLDirectory(db *sqlx.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

func (d *SQLDirectory) CreateCourse(ctx context.Context, c Course) error {
	_, err := d.db.ExecContext(ctx, d.db.Rebind(
		`INSERT INTO courses (id, name, created_by, created_at) VALUES (?, ?, ?, ?)`),
		c.ID, c.Name, c.CreatedBy, time.Now().Unix())
	if db.IsUniqueViolation(err) {
		return ErrCourseExists
	}
	return err
}

func (d *SQLDirectory) GetCourse(ctx context.Context, id string) (Course, error) {
	var c Course
	err := d.db.GetContext(ctx, &c, d.db.Rebind(`SELECT id, name, created_by FROM courses WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, ErrCourseNotFound
		}
		return Course{}, err
	}
	return c, nil
}

// Enroll activates studentID in courseID, reactivating a dropped enrollment.
func (d *SQLDirectory) Enroll(ctx context.Context, courseID, studentID string) error {
	if _, err := d.GetCourse(ctx, courseID); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx, d.db.Rebind(`
		INSERT INTO course_students (course_id, student_id, status, enrolled_at)
		VALUES (?, ?, 'active', ?)
		ON CONFLICT (course_id, student_id) DO UPDATE SET status = 'active'`),
		courseID, studentID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("enroll %s in %s: %w", studentID, courseID, err)
	}
	return nil
}

// Unenroll marks the enrollment dropped; history is kept.
func (d *SQLDirectory) Unenroll(ctx context.Context, courseID, studentID string) error {
	_, err := d.db.ExecContext(ctx, d.db.Rebind(
		`UPDATE course_students SET status = 'dropped' WHERE course_id = ? AND student_id = ?`),
		courseID, studentID)
	return err
}

func (d *SQLDirectory) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	var n int
	err := d.db.GetContext(ctx, &n, d.db.Rebind(`
		SELECT COUNT(*) FROM course_students
		 WHERE course_id = ? AND student_id = ? AND status = 'active'`), courseID, studentID)
	return n > 0, err
}

func (d *SQLDirectory) ListEnrolled(ctx context.Context, courseID string) ([]string, error) {
	var ids []string
	err := d.db.SelectContext(ctx, &ids, d.db.Rebind(`
		SELECT student_id FROM course_students
		 WHERE course_id = ? AND status = 'active'
		 ORDER BY student_id`), courseID)
	return ids, err
}

// MemoryDirectory is an in-process Directory for offline mode and tests.
type MemoryDirectory struct {
	mu      sync.RWMutex
	names   map[string]Course
	courses map[string]map[string]bool
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{names: map[string]Course{}, courses: map[string]map[string]bool{}}
}

func (d *MemoryDirectory) CreateCourse(_ context.Context, c Course) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.names[c.ID]; ok {
		return ErrCourseExists
	}
	d.names[c.ID] = c
	return nil
}

func (d *MemoryDirectory) GetCourse(_ context.Context, id string) (Course, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.names[id]
	if !ok {
		return Course{}, ErrCourseNotFound
	}
	return c, nil
}

func (d *MemoryDirectory) Enroll(_ context.Context, courseID, studentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.courses[courseID] == nil {
		d.courses[courseID] = map[string]bool{}
	}
	d.courses[courseID][studentID] = true
	return nil
}

func (d *MemoryDirectory) Unenroll(_ context.Context, courseID, studentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.courses[courseID], studentID)
	return nil
}

func (d *MemoryDirectory) IsEnrolled(_ context.Context, courseID, studentID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.courses[courseID][studentID], nil
}

func (d *MemoryDirectory) ListEnrolled(_ context.Context, courseID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.courses[courseID]))
	for id := range d.courses[courseID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

var (
	_ Roster = (*SQLDirectory)(nil)
	_ Roster = (*MemoryDirectory)(nil)
)
