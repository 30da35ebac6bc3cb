package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"learnbytech/internal/domain"
	"learnbytech/internal/repository"
)

const createCoursesTable = `
CREATE TABLE IF NOT EXISTS courses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	teacher_id INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'draft',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(teacher_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_courses_teacher_id ON courses(teacher_id);
`

const selectCourses = `
SELECT c.id, c.title, c.description, c.teacher_id, COALESCE(u.username, ''), c.status, c.created_at, c.updated_at
FROM courses c
LEFT JOIN users u ON u.id = c.teacher_id`

type CourseRepository struct {
	db *sql.DB
}

func NewCourseRepository(db *sql.DB) repository.CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCoursesTable); err != nil {
		return fmt.Errorf("create courses table: %w", err)
	}
	return nil
}

func (r *CourseRepository) Create(ctx context.Context, course *domain.Course) (int64, error) {
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO courses (title, description, teacher_id, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		course.Title,
		course.Description,
		course.TeacherID,
		string(course.Status),
		course.CreatedAt,
		course.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert course: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("course last insert id: %w", err)
	}
	course.ID = id
	return id, nil
}

func (r *CourseRepository) Update(ctx context.Context, course *domain.Course) error {
	course.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE courses
SET title=?, description=?, status=?, updated_at=?
WHERE id=?`,
		course.Title,
		course.Description,
		string(course.Status),
		course.UpdatedAt,
		course.ID,
	)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return expectAffected(res, "update course")
}

func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return expectAffected(res, "delete course")
}

func (r *CourseRepository) Get(ctx context.Context, id int64) (*domain.Course, error) {
	row := r.db.QueryRowContext(ctx, selectCourses+` WHERE c.id = ?`, id)
	return scanCourse(row)
}

func (r *CourseRepository) List(ctx context.Context) ([]domain.Course, error) {
	return r.queryCourses(ctx, selectCourses+` ORDER BY c.created_at DESC, c.id DESC`)
}

// ListVisibleTo returns published courses plus every course owned by
// teacherID. A zero teacherID yields published courses only.
func (r *CourseRepository) ListVisibleTo(ctx context.Context, teacherID int64) ([]domain.Course, error) {
	return r.queryCourses(ctx, selectCourses+`
WHERE c.status = ? OR c.teacher_id = ?
ORDER BY c.created_at DESC, c.id DESC`, string(domain.CourseStatusPublished), teacherID)
}

func (r *CourseRepository) queryCourses(ctx context.Context, query string, args ...any) ([]domain.Course, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []domain.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *course)
	}
	return courses, rows.Err()
}

func scanCourse(row interface {
	Scan(dest ...any) error
}) (*domain.Course, error) {
	var (
		course domain.Course
		status string
	)
	if err := row.Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.TeacherID,
		&course.TeacherName,
		&status,
		&course.CreatedAt,
		&course.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan course: %w", err)
	}
	course.Status = domain.CourseStatus(status)
	return &course, nil
}
