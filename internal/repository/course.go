package repository

import (
	"context"

	"learnbytech/internal/domain"
)

// CourseRepository exposes persistence operations for courses.
type CourseRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, course *domain.Course) (int64, error)
	Update(ctx context.Context, course *domain.Course) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Course, error)
	List(ctx context.Context) ([]domain.Course, error)
	ListVisibleTo(ctx context.Context, teacherID int64) ([]domain.Course, error)
}
