package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"learnbytech/internal/domain"
	"learnbytech/internal/repository"
	"learnbytech/internal/storage"
)

const (
	maxTitleLength    = 200
	materialURLExpiry = 15 * time.Minute
)

// CourseInput carries a course create or edit form.
type CourseInput struct {
	Title       string
	Description string
	Status      string
}

// MaterialsConfig locates course materials in object storage.
type MaterialsConfig struct {
	Bucket    string
	KeyPrefix string
}

// CourseService coordinates course operations backed by repositories.
type CourseService interface {
	CreateCourse(ctx context.Context, owner domain.Identity, in CourseInput) (*domain.Course, error)
	UpdateCourse(ctx context.Context, owner domain.Identity, id int64, in CourseInput) (*domain.Course, error)
	DeleteCourse(ctx context.Context, owner domain.Identity, id int64) error
	GetCourse(ctx context.Context, viewer domain.Identity, id int64) (*domain.Course, error)
	ListCourses(ctx context.Context, viewer domain.Identity) ([]domain.Course, error)
	UploadMaterial(ctx context.Context, owner domain.Identity, courseID int64, filename, contentType string, body io.Reader) (*domain.Material, error)
	ListMaterials(ctx context.Context, viewer domain.Identity, courseID int64) ([]domain.Material, error)
	MaterialsEnabled() bool
}

type courseService struct {
	courses   repository.CourseRepository
	storage   storage.Service
	materials MaterialsConfig
	log       logrus.FieldLogger
}

// NewCourseService returns a CourseService. A nil store or empty bucket
// disables course materials.
func NewCourseService(courses repository.CourseRepository, store storage.Service, materials MaterialsConfig, log logrus.FieldLogger) CourseService {
	return &courseService{
		courses:   courses,
		storage:   store,
		materials: materials,
		log:       log,
	}
}

func (s *courseService) MaterialsEnabled() bool {
	return s.storage != nil && s.materials.Bucket != ""
}

func (s *courseService) CreateCourse(ctx context.Context, owner domain.Identity, in CourseInput) (*domain.Course, error) {
	if owner.Role != domain.RoleTeacher {
		return nil, ErrForbidden
	}
	course := &domain.Course{TeacherID: owner.UserID, TeacherName: owner.Username}
	if err := applyCourseInput(course, in); err != nil {
		return nil, err
	}
	if _, err := s.courses.Create(ctx, course); err != nil {
		return nil, persistence("create course", err)
	}
	s.log.WithFields(logrus.Fields{"course_id": course.ID, "teacher_id": owner.UserID}).Info("course created")
	return course, nil
}

func (s *courseService) UpdateCourse(ctx context.Context, owner domain.Identity, id int64, in CourseInput) (*domain.Course, error) {
	course, err := s.ownedCourse(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := applyCourseInput(course, in); err != nil {
		return nil, err
	}
	if err := s.courses.Update(ctx, course); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, persistence("update course", err)
	}
	s.log.WithField("course_id", id).Info("course updated")
	return course, nil
}

// DeleteCourse removes the course row and then its materials. Failing to clear
// materials is logged, not returned.
func (s *courseService) DeleteCourse(ctx context.Context, owner domain.Identity, id int64) error {
	if _, err := s.ownedCourse(ctx, owner, id); err != nil {
		return err
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCourseNotFound
		}
		return persistence("delete course", err)
	}

	if s.MaterialsEnabled() {
		remoteCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.storage.DeletePrefix(remoteCtx, s.materials.Bucket, s.coursePrefix(id)); err != nil {
			s.log.WithField("course_id", id).Warnf("delete course materials: %v", err)
		}
	}
	s.log.WithField("course_id", id).Info("course deleted")
	return nil
}

// GetCourse hides drafts from everyone except their owner.
func (s *courseService) GetCourse(ctx context.Context, viewer domain.Identity, id int64) (*domain.Course, error) {
	course, err := s.loadCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.Status != domain.CourseStatusPublished && course.TeacherID != viewer.UserID {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

func (s *courseService) ListCourses(ctx context.Context, viewer domain.Identity) ([]domain.Course, error) {
	var teacherID int64
	if viewer.Role == domain.RoleTeacher {
		teacherID = viewer.UserID
	}
	courses, err := s.courses.ListVisibleTo(ctx, teacherID)
	if err != nil {
		return nil, persistence("list courses", err)
	}
	return courses, nil
}

func (s *courseService) UploadMaterial(ctx context.Context, owner domain.Identity, courseID int64, filename, contentType string, body io.Reader) (*domain.Material, error) {
	if !s.MaterialsEnabled() {
		return nil, ErrMaterialsDisabled
	}
	if _, err := s.ownedCourse(ctx, owner, courseID); err != nil {
		return nil, err
	}
	name := sanitizeFilename(filename)
	if name == "" {
		return nil, invalid("file", "Choose a file to upload.")
	}

	key := s.coursePrefix(courseID) + name
	if _, err := s.storage.PutObject(ctx, body, storage.PutOptions{
		Bucket:      s.materials.Bucket,
		Key:         key,
		ContentType: contentType,
	}); err != nil {
		return nil, persistence("upload material", err)
	}
	s.log.WithFields(logrus.Fields{"course_id": courseID, "key": key}).Info("material uploaded")
	return &domain.Material{Key: key, Name: name}, nil
}

func (s *courseService) ListMaterials(ctx context.Context, viewer domain.Identity, courseID int64) ([]domain.Material, error) {
	if !s.MaterialsEnabled() {
		return nil, ErrMaterialsDisabled
	}
	if _, err := s.GetCourse(ctx, viewer, courseID); err != nil {
		return nil, err
	}

	prefix := s.coursePrefix(courseID)
	objects, err := s.storage.ListObjects(ctx, s.materials.Bucket, prefix)
	if err != nil {
		return nil, persistence("list materials", err)
	}

	materials := make([]domain.Material, 0, len(objects))
	for _, obj := range objects {
		url, err := s.storage.GetObjectURL(ctx, s.materials.Bucket, obj.Key, materialURLExpiry)
		if err != nil {
			return nil, persistence("sign material url", err)
		}
		materials = append(materials, domain.Material{
			Key:          obj.Key,
			Name:         strings.TrimPrefix(obj.Key, prefix),
			Size:         obj.Size,
			LastModified: obj.LastModified,
			URL:          url,
		})
	}
	return materials, nil
}

func (s *courseService) loadCourse(ctx context.Context, id int64) (*domain.Course, error) {
	course, err := s.courses.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, persistence("load course", err)
	}
	return course, nil
}

func (s *courseService) ownedCourse(ctx context.Context, owner domain.Identity, id int64) (*domain.Course, error) {
	if owner.Role != domain.RoleTeacher {
		return nil, ErrForbidden
	}
	course, err := s.loadCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != owner.UserID {
		return nil, ErrForbidden
	}
	return course, nil
}

func (s *courseService) coursePrefix(id int64) string {
	prefix := strings.Trim(s.materials.KeyPrefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return fmt.Sprintf("%scourse-%d/", prefix, id)
}

func applyCourseInput(course *domain.Course, in CourseInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return invalid("title", "Title is required.")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return invalid("title", "Title is too long.")
	}
	status := domain.CourseStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if status == "" {
		status = domain.CourseStatusDraft
	}
	if !status.Valid() {
		return invalid("status", "Status must be draft or published.")
	}

	course.Title = title
	course.Description = strings.TrimSpace(in.Description)
	course.Status = status
	return nil
}

// sanitizeFilename keeps the base name of an uploaded file and drops
// characters that would change the object key layout.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
}
