package http

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"learnbytech/internal/domain"
	"learnbytech/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// CookieOptions controls the session cookie written at login.
type CookieOptions struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth    *service.AuthService
	guard   *service.Guard
	users   service.UserService
	courses service.CourseService
	cookie  CookieOptions
	log     logrus.FieldLogger
}

func NewHandler(auth *service.AuthService, guard *service.Guard, users service.UserService, courses service.CourseService, cookie CookieOptions, log logrus.FieldLogger) *Handler {
	return &Handler{
		auth:    auth,
		guard:   guard,
		users:   users,
		courses: courses,
		cookie:  cookie,
		log:     log,
	}
}

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(Templates())
	router.Use(requestLogger(h.log))

	router.GET("/", h.home)
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
	router.GET("/login", h.loginPage)
	router.POST("/login", h.login)
	router.GET("/logout", h.logout)
	router.POST("/logout", h.logout)
	router.GET("/register", h.registerPage)
	router.POST("/register", h.register)

	member := router.Group("/", h.requireAccess(""))
	{
		member.GET("/student", h.studentHome)
		member.GET("/users", h.listUsers)
		member.GET("/profile", h.profilePage)
		member.POST("/profile", h.updateProfile)
		member.POST("/profile/delete", h.deleteAccount)
		member.GET("/courses", h.listCourses)
		member.GET("/courses/:id", h.showCourse)
	}

	teacher := router.Group("/", h.requireAccess(domain.RoleTeacher))
	{
		teacher.GET("/teacher", h.teacherHome)
		teacher.GET("/courses/new", h.newCoursePage)
		teacher.POST("/courses", h.createCourse)
		teacher.GET("/courses/:id/edit", h.editCoursePage)
		teacher.POST("/courses/:id/edit", h.updateCourse)
		teacher.POST("/courses/:id/delete", h.deleteCourse)
		teacher.POST("/courses/:id/materials", h.uploadMaterial)
	}
}

func (h *Handler) home(c *gin.Context) {
	h.render(c, http.StatusOK, "home.html", gin.H{
		"Title":   "LearnByTech",
		"Message": c.Query("message"),
	})
}

func (h *Handler) studentHome(c *gin.Context) {
	h.render(c, http.StatusOK, "student.html", gin.H{"Title": "Student dashboard"})
}

func (h *Handler) teacherHome(c *gin.Context) {
	h.render(c, http.StatusOK, "teacher.html", gin.H{"Title": "Teacher dashboard"})
}

// render adds the caller's identity, if any, so the layout can show the
// right navigation.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if identity, ok := h.optionalIdentity(c); ok {
		data["Identity"] = identity
	}
	c.HTML(status, name, data)
}

func (h *Handler) renderError(c *gin.Context, status int, message string) {
	h.render(c, status, "error.html", gin.H{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	})
	c.Abort()
}

// landingPath returns the page a freshly logged in user is sent to.
func landingPath(role domain.Role) string {
	switch role {
	case domain.RoleTeacher:
		return "/teacher"
	case domain.RoleStudent:
		return "/student"
	default:
		return "/student"
	}
}
