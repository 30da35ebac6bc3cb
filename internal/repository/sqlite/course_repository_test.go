package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnbytech/internal/domain"
	"learnbytech/internal/repository"
)

func TestCourseRepository_CRUD(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	teacher := newUser("tess", "tess@example.com", domain.RoleTeacher)
	_, err := users.Create(ctx, teacher)
	require.NoError(t, err)

	course := &domain.Course{Title: "Go 101", Description: "basics", TeacherID: teacher.ID, Status: domain.CourseStatusDraft}
	id, err := repo.Create(ctx, course)
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Go 101", got.Title)
	assert.Equal(t, "tess", got.TeacherName)
	assert.Equal(t, domain.CourseStatusDraft, got.Status)

	got.Title = "Go 102"
	got.Status = domain.CourseStatusPublished
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Go 102", got.Title)
	assert.Equal(t, domain.CourseStatusPublished, got.Status)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, id), repository.ErrNotFound)
}

func TestCourseRepository_ListVisibleTo(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	tess := newUser("tess", "tess@example.com", domain.RoleTeacher)
	_, err := users.Create(ctx, tess)
	require.NoError(t, err)
	tom := newUser("tom", "tom@example.com", domain.RoleTeacher)
	_, err = users.Create(ctx, tom)
	require.NoError(t, err)

	for _, c := range []*domain.Course{
		{Title: "tess draft", TeacherID: tess.ID, Status: domain.CourseStatusDraft},
		{Title: "tess published", TeacherID: tess.ID, Status: domain.CourseStatusPublished},
		{Title: "tom draft", TeacherID: tom.ID, Status: domain.CourseStatusDraft},
	} {
		_, err := repo.Create(ctx, c)
		require.NoError(t, err)
	}

	titles := func(courses []domain.Course) []string {
		out := make([]string, 0, len(courses))
		for _, c := range courses {
			out = append(out, c.Title)
		}
		return out
	}

	published, err := repo.ListVisibleTo(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"tess published"}, titles(published))

	forTom, err := repo.ListVisibleTo(ctx, tom.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tess published", "tom draft"}, titles(forTom))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCourseRepository_CascadesOnTeacherDelete(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	teacher := newUser("tess", "tess@example.com", domain.RoleTeacher)
	_, err := users.Create(ctx, teacher)
	require.NoError(t, err)
	id, err := repo.Create(ctx, &domain.Course{Title: "Go", TeacherID: teacher.ID, Status: domain.CourseStatusPublished})
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, teacher.ID))
	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
