package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"learnbytech/internal/service"
)

type profileForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Errorf("list users: %v", err)
		h.renderError(c, http.StatusInternalServerError, "Could not load users.")
		return
	}
	h.render(c, http.StatusOK, "users.html", gin.H{
		"Title": "Users",
		"Users": users,
	})
}

func (h *Handler) profilePage(c *gin.Context) {
	identity, _ := CurrentIdentity(c)
	user, err := h.users.GetByID(c.Request.Context(), identity.UserID)
	if err != nil {
		h.log.Warnf("load profile %d: %v", identity.UserID, err)
		c.Redirect(http.StatusSeeOther, "/logout")
		return
	}
	h.render(c, http.StatusOK, "profile.html", gin.H{
		"Title":   "Profile",
		"User":    user,
		"Email":   user.Email,
		"Message": c.Query("message"),
	})
}

func (h *Handler) updateProfile(c *gin.Context) {
	identity, _ := CurrentIdentity(c)
	var form profileForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderProfileError(c, form, "Could not read the form.")
		return
	}

	_, err := h.users.UpdateProfile(c.Request.Context(), identity.UserID, service.ProfileInput{
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			h.renderProfileError(c, form, verr.Message)
		case errors.Is(err, service.ErrUnauthenticated):
			c.Redirect(http.StatusSeeOther, "/logout")
		default:
			h.log.Errorf("update profile: %v", err)
			h.renderProfileError(c, form, msgPersistence)
		}
		return
	}

	c.Redirect(http.StatusSeeOther, "/profile?message="+url.QueryEscape("Profile updated."))
}

func (h *Handler) renderProfileError(c *gin.Context, form profileForm, message string) {
	h.render(c, http.StatusOK, "profile.html", gin.H{
		"Title": "Profile",
		"Email": form.Email,
		"Error": message,
	})
}

func (h *Handler) deleteAccount(c *gin.Context) {
	identity, _ := CurrentIdentity(c)
	if err := h.users.DeleteAccount(c.Request.Context(), identity.UserID); err != nil {
		h.log.Errorf("delete account: %v", err)
		h.renderError(c, http.StatusInternalServerError, msgPersistence)
		return
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/?message="+url.QueryEscape("Your account has been deleted."))
}
