package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"learnbytech/internal/domain"
	"learnbytech/internal/service"
)

const maxMaterialSize = 50 << 20

type courseForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	Status      string `form:"status"`
}

func (f courseForm) input() service.CourseInput {
	return service.CourseInput{Title: f.Title, Description: f.Description, Status: f.Status}
}

var courseStatuses = []domain.CourseStatus{domain.CourseStatusDraft, domain.CourseStatusPublished}

func (h *Handler) listCourses(c *gin.Context) {
	identity, _ := CurrentIdentity(c)
	courses, err := h.courses.ListCourses(c.Request.Context(), identity)
	if err != nil {
		h.log.Errorf("list courses: %v", err)
		h.renderError(c, http.StatusInternalServerError, "Could not load courses.")
		return
	}
	h.render(c, http.StatusOK, "courses.html", gin.H{
		"Title":   "Courses",
		"Courses": courses,
		"Message": c.Query("message"),
	})
}

func (h *Handler) showCourse(c *gin.Context) {
	identity, _ := CurrentIdentity(c)
	id, ok := h.courseID(c)
	if !ok {
		return
	}
	course, err := h.courses.GetCourse(c.Request.Context(), identity, id)
	if err != nil {
		h.courseError(c, err)
		return
	}

	data := gin.H{
		"Title":            course.Title,
		"Course":           course,
		"CanEdit":          identity.Role == domain.RoleTeacher && course.TeacherID == identity.UserID,
		"MaterialsEnabled": h.courses.MaterialsEnabled(),
		"Message":          c.Query("message"),
	}
	if h.courses.MaterialsEnabled() {
		materials, err := h.courses.ListMaterials(c.Request.Context(), identity, id)
		if err != nil {
			h.log.Warnf("list materials for course %d: %v", id, err)
			data["MaterialsError"] = "Materials are unavailable right now."
		}
		data["Materials"] = materials
	}
	h.render(c, http.StatusOK, "course_detail.html", data)
}

func (h *Handler) newCoursePage(c *gin.Context) {
	h.renderCourseForm(c, http.StatusOK, 0, courseForm{Status: string(domain.CourseStatusDraft)}, "")
}

func (h *Handler) createCourse(c *gin.Context) {
	identity, _ := CurrentIdentity(c)
	var form courseForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderCourseForm(c, http.StatusBadRequest, 0, form, "Could not read the form.")
		return
	}

	course, err := h.courses.CreateCourse(c.Request.Context(), identity, form.input())
	if err != nil {
		h.courseFormError(c, 0, form, err)
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/courses/%d?message=%s", course.ID, url.QueryEscape("Course created.")))
}

func (h *Handler) editCoursePage(c *gin.Context) {
	identity, _ := CurrentIdentity(c)
	id, ok := h.courseID(c)
	if !ok {
		return
	}
	course, err := h.courses.GetCourse(c.Request.Context(), identity, id)
	if err != nil {
		h.courseError(c, err)
		return
	}
	if course.TeacherID != identity.UserID {
		h.denied(c)
		return
	}
	h.renderCourseForm(c, http.StatusOK, id, courseForm{
		Title:       course.Title,
		Description: course.Description,
		Status:      string(course.Status),
	}, "")
}

func (h *Handler) updateCourse(c *gin.Context) {
	identity, _ := CurrentIdentity(c)
	id, ok := h.courseID(c)
	if !ok {
		return
	}
	var form courseForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderCourseForm(c, http.StatusBadRequest, id, form, "Could not read the form.")
		return
	}

	if _, err := h.courses.UpdateCourse(c.Request.Context(), identity, id, form.input()); err != nil {
		h.courseFormError(c, id, form, err)
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/courses/%d?message=%s", id, url.QueryEscape("Course updated.")))
}

func (h *Handler) deleteCourse(c *gin.Context) {
	identity, _ := CurrentIdentity(c)
	id, ok := h.courseID(c)
	if !ok {
		return
	}
	if err := h.courses.DeleteCourse(c.Request.Context(), identity, id); err != nil {
		h.courseError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/courses?message="+url.QueryEscape("Course deleted."))
}

func (h *Handler) uploadMaterial(c *gin.Context) {
	identity, _ := CurrentIdentity(c)
	id, ok := h.courseID(c)
	if !ok {
		return
	}
	if !h.courses.MaterialsEnabled() {
		h.courseError(c, service.ErrMaterialsDisabled)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		h.redirectCourse(c, id, "Choose a file to upload.")
		return
	}
	if fh.Size > maxMaterialSize {
		h.redirectCourse(c, id, "File is larger than 50 MB.")
		return
	}
	file, err := fh.Open()
	if err != nil {
		h.log.Errorf("open upload: %v", err)
		h.redirectCourse(c, id, "Could not read the uploaded file.")
		return
	}
	defer file.Close()

	_, err = h.courses.UploadMaterial(c.Request.Context(), identity, id, fh.Filename, fh.Header.Get("Content-Type"), file)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			h.redirectCourse(c, id, verr.Message)
			return
		}
		h.courseError(c, err)
		return
	}
	h.redirectCourse(c, id, "Material uploaded.")
}

func (h *Handler) redirectCourse(c *gin.Context, id int64, message string) {
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/courses/%d?message=%s", id, url.QueryEscape(message)))
}

func (h *Handler) courseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.renderError(c, http.StatusBadRequest, "Invalid course id.")
		return 0, false
	}
	return id, true
}

func (h *Handler) renderCourseForm(c *gin.Context, status int, id int64, form courseForm, message string) {
	title := "New course"
	action := "/courses"
	if id > 0 {
		title = "Edit course"
		action = fmt.Sprintf("/courses/%d/edit", id)
	}
	h.render(c, status, "course_form.html", gin.H{
		"Title":    title,
		"Action":   action,
		"Form":     form,
		"Statuses": courseStatuses,
		"Error":    message,
	})
}

func (h *Handler) courseFormError(c *gin.Context, id int64, form courseForm, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		h.renderCourseForm(c, http.StatusOK, id, form, verr.Message)
		return
	}
	if errors.Is(err, service.ErrPersistence) {
		h.log.Errorf("save course: %v", err)
		h.renderCourseForm(c, http.StatusInternalServerError, id, form, msgPersistence)
		return
	}
	h.courseError(c, err)
}

func (h *Handler) courseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		h.denied(c)
	case errors.Is(err, service.ErrCourseNotFound):
		h.renderError(c, http.StatusNotFound, "Course not found.")
	case errors.Is(err, service.ErrMaterialsDisabled):
		h.renderError(c, http.StatusServiceUnavailable, "Course materials are not enabled on this server.")
	default:
		h.log.Errorf("course operation: %v", err)
		h.renderError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}
