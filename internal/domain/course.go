package domain

import "time"

type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
)

func (s CourseStatus) Valid() bool {
	return s == CourseStatusDraft || s == CourseStatusPublished
}

// Course is owned by exactly one teacher.
type Course struct {
	ID          int64
	Title       string
	Description string
	TeacherID   int64
	TeacherName string
	Status      CourseStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Material describes a file attached to a course in object storage.
type Material struct {
	Key          string
	Name         string
	Size         int64
	LastModified *time.Time
	URL          string
}
