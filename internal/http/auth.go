package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"learnbytech/internal/domain"
	"learnbytech/internal/service"
)

const (
	msgPersistence = "Something went wrong while saving. Please try again."
	msgLoggedOut   = "You have been logged out."
)

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

type registerForm struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	Password string `form:"password"`
	Role     string `form:"role"`
}

func (h *Handler) loginPage(c *gin.Context) {
	if identity, ok := h.optionalIdentity(c); ok {
		c.Redirect(http.StatusSeeOther, landingPath(identity.Role))
		return
	}
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in", "Username": ""})
}

func (h *Handler) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderLogin(c, http.StatusBadRequest, form, "Could not read the form.")
		return
	}

	handle, session, err := h.auth.Authenticate(c.Request.Context(), form.Username, form.Password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrMissingCredentials):
		h.renderLogin(c, http.StatusOK, form, "Please enter your username and password.")
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		h.renderLogin(c, http.StatusOK, form, "Invalid username or password.")
		return
	default:
		h.log.Errorf("login: %v", err)
		h.renderLogin(c, http.StatusInternalServerError, form, "Login is unavailable right now. Please try again.")
		return
	}

	h.setSessionCookie(c, handle)
	c.Redirect(http.StatusSeeOther, landingPath(session.Role))
}

func (h *Handler) renderLogin(c *gin.Context, status int, form loginForm, message string) {
	c.HTML(status, "login.html", gin.H{
		"Title":    "Log in",
		"Error":    message,
		"Username": form.Username,
	})
}

// logout always succeeds from the client's point of view.
func (h *Handler) logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), h.sessionHandle(c)); err != nil {
		h.log.Warnf("logout: %v", err)
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/?message="+url.QueryEscape(msgLoggedOut))
}

func (h *Handler) registerPage(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", gin.H{
		"Title": "Register",
		"Roles": domain.Roles,
		"Form":  registerForm{Role: string(domain.RoleStudent)},
	})
}

func (h *Handler) register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderRegister(c, http.StatusBadRequest, form, "Could not read the form.")
		return
	}

	_, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		Role:     form.Role,
	})
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			h.renderRegister(c, http.StatusOK, form, verr.Message)
			return
		}
		h.log.Errorf("register: %v", err)
		h.renderRegister(c, http.StatusInternalServerError, form, msgPersistence)
		return
	}

	c.Redirect(http.StatusSeeOther, "/users")
}

func (h *Handler) renderRegister(c *gin.Context, status int, form registerForm, message string) {
	form.Password = ""
	h.render(c, status, "register.html", gin.H{
		"Title": "Register",
		"Roles": domain.Roles,
		"Form":  form,
		"Error": message,
	})
}
