package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnbytech/internal/domain"
	"learnbytech/internal/storage"
)

type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) PutObject(_ context.Context, body io.Reader, opts storage.PutOptions) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[opts.Key] = data
	return "s3://" + opts.Bucket + "/" + opts.Key, nil
}

func (f *fakeStorage) ListObjects(_ context.Context, _, prefix string) ([]storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.ObjectInfo
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeStorage) DeletePrefix(_ context.Context, _, prefix string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			delete(f.objects, key)
		}
	}
	return nil
}

func (f *fakeStorage) GetObjectURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://" + bucket + ".example/" + key + "?signed", nil
}

type courseFixture struct {
	env     *testEnv
	svc     CourseService
	store   *fakeStorage
	tess    domain.Identity
	tom     domain.Identity
	student domain.Identity
}

func newCourseFixture(t *testing.T, withStorage bool) *courseFixture {
	t.Helper()
	env := newTestEnv(t)
	f := &courseFixture{env: env}

	var store storage.Service
	materials := MaterialsConfig{}
	if withStorage {
		f.store = newFakeStorage()
		store = f.store
		materials = MaterialsConfig{Bucket: "lms", KeyPrefix: "/materials/"}
	}
	f.svc = NewCourseService(env.courses, store, materials, logrus.New())

	identity := func(name string, role domain.Role) domain.Identity {
		id := env.register(t, name, "secret", role)
		return domain.Identity{UserID: id, Username: name, Role: role}
	}
	f.tess = identity("tess", domain.RoleTeacher)
	f.tom = identity("tom", domain.RoleTeacher)
	f.student = identity("sam", domain.RoleStudent)
	return f
}

func TestCreateCourse(t *testing.T) {
	f := newCourseFixture(t, false)
	ctx := context.Background()

	course, err := f.svc.CreateCourse(ctx, f.tess, CourseInput{Title: "  Go 101 ", Description: "basics"})
	require.NoError(t, err)
	assert.Equal(t, "Go 101", course.Title)
	assert.Equal(t, domain.CourseStatusDraft, course.Status)
	assert.Equal(t, f.tess.UserID, course.TeacherID)

	_, err = f.svc.CreateCourse(ctx, f.student, CourseInput{Title: "Nope"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.CreateCourse(ctx, f.tess, CourseInput{Title: " "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)

	_, err = f.svc.CreateCourse(ctx, f.tess, CourseInput{Title: "Go", Status: "archived"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)

	_, err = f.svc.CreateCourse(ctx, f.tess, CourseInput{Title: strings.Repeat("t", 201)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
}

func TestUpdateAndDeleteCourse_OwnerOnly(t *testing.T) {
	f := newCourseFixture(t, false)
	ctx := context.Background()

	course, err := f.svc.CreateCourse(ctx, f.tess, CourseInput{Title: "Go", Status: "published"})
	require.NoError(t, err)

	_, err = f.svc.UpdateCourse(ctx, f.tom, course.ID, CourseInput{Title: "Mine now"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteCourse(ctx, f.tom, course.ID), ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteCourse(ctx, f.student, course.ID), ErrForbidden)

	updated, err := f.svc.UpdateCourse(ctx, f.tess, course.ID, CourseInput{Title: "Go, revised", Status: "draft"})
	require.NoError(t, err)
	assert.Equal(t, "Go, revised", updated.Title)
	assert.Equal(t, domain.CourseStatusDraft, updated.Status)

	require.NoError(t, f.svc.DeleteCourse(ctx, f.tess, course.ID))
	assert.ErrorIs(t, f.svc.DeleteCourse(ctx, f.tess, course.ID), ErrCourseNotFound)
	_, err = f.svc.UpdateCourse(ctx, f.tess, 4242, CourseInput{Title: "x"})
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestListAndGetCourses_Visibility(t *testing.T) {
	f := newCourseFixture(t, false)
	ctx := context.Background()

	draft, err := f.svc.CreateCourse(ctx, f.tess, CourseInput{Title: "Draft"})
	require.NoError(t, err)
	_, err = f.svc.CreateCourse(ctx, f.tom, CourseInput{Title: "Published", Status: "published"})
	require.NoError(t, err)

	studentView, err := f.svc.ListCourses(ctx, f.student)
	require.NoError(t, err)
	require.Len(t, studentView, 1)
	assert.Equal(t, "Published", studentView[0].Title)

	tessView, err := f.svc.ListCourses(ctx, f.tess)
	require.NoError(t, err)
	assert.Len(t, tessView, 2)

	tomView, err := f.svc.ListCourses(ctx, f.tom)
	require.NoError(t, err)
	assert.Len(t, tomView, 1)

	_, err = f.svc.GetCourse(ctx, f.student, draft.ID)
	assert.ErrorIs(t, err, ErrCourseNotFound)
	got, err := f.svc.GetCourse(ctx, f.tess, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "tess", got.TeacherName)
}

func TestMaterials(t *testing.T) {
	f := newCourseFixture(t, true)
	ctx := context.Background()
	require.True(t, f.svc.MaterialsEnabled())

	course, err := f.svc.CreateCourse(ctx, f.tess, CourseInput{Title: "Go", Status: "published"})
	require.NoError(t, err)

	material, err := f.svc.UploadMaterial(ctx, f.tess, course.ID, `C:\docs\..\slides.pdf`, "application/pdf", strings.NewReader("pdf"))
	require.NoError(t, err)
	assert.Equal(t, "slides.pdf", material.Name)
	assert.Equal(t, "materials/course-1/slides.pdf", material.Key)

	_, err = f.svc.UploadMaterial(ctx, f.tom, course.ID, "x.txt", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.UploadMaterial(ctx, f.tess, course.ID, "", "", strings.NewReader("x"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	materials, err := f.svc.ListMaterials(ctx, f.student, course.ID)
	require.NoError(t, err)
	require.Len(t, materials, 1)
	assert.Equal(t, "slides.pdf", materials[0].Name)
	assert.Equal(t, int64(3), materials[0].Size)
	assert.Contains(t, materials[0].URL, "signed")

	require.NoError(t, f.svc.DeleteCourse(ctx, f.tess, course.ID))
	assert.Empty(t, f.store.objects)
}

func TestDeleteCourse_StorageFailureIsNotFatal(t *testing.T) {
	f := newCourseFixture(t, true)
	ctx := context.Background()
	f.store.deleteErr = errors.New("s3 down")

	course, err := f.svc.CreateCourse(ctx, f.tess, CourseInput{Title: "Go"})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteCourse(ctx, f.tess, course.ID))

	_, err = f.svc.GetCourse(ctx, f.tess, course.ID)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestMaterialsDisabled(t *testing.T) {
	f := newCourseFixture(t, false)
	ctx := context.Background()
	assert.False(t, f.svc.MaterialsEnabled())

	course, err := f.svc.CreateCourse(ctx, f.tess, CourseInput{Title: "Go"})
	require.NoError(t, err)

	_, err = f.svc.UploadMaterial(ctx, f.tess, course.ID, "a.txt", "", strings.NewReader("a"))
	assert.ErrorIs(t, err, ErrMaterialsDisabled)
	_, err = f.svc.ListMaterials(ctx, f.tess, course.ID)
	assert.ErrorIs(t, err, ErrMaterialsDisabled)
}
