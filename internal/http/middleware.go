package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"learnbytech/internal/domain"
	"learnbytech/internal/service"
)

const identityKey = "identity"

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Warn("request failed")
		default:
			entry.Debug("request served")
		}
	}
}

// requireAccess guards a route group. An empty role only requires a session.
// A request without a session is redirected to the login page before any role
// check runs; a role mismatch renders the access denied page with 403.
func (h *Handler) requireAccess(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _, err := h.guard.Decide(c.Request.Context(), h.sessionHandle(c), role)
		switch {
		case err == nil:
			c.Set(identityKey, identity)
			c.Next()
		case errors.Is(err, service.ErrUnauthenticated):
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
		case errors.Is(err, service.ErrForbidden):
			c.Set(identityKey, identity)
			h.denied(c)
		default:
			h.log.Errorf("access check: %v", err)
			h.renderError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}
	}
}

func (h *Handler) denied(c *gin.Context) {
	h.render(c, http.StatusForbidden, "denied.html", gin.H{"Title": "Access denied"})
	c.Abort()
}

// CurrentIdentity returns the identity stored by the access guard.
func CurrentIdentity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

func (h *Handler) optionalIdentity(c *gin.Context) (domain.Identity, bool) {
	if identity, ok := CurrentIdentity(c); ok {
		return identity, true
	}
	handle := h.sessionHandle(c)
	if handle == "" {
		return domain.Identity{}, false
	}
	identity, err := h.guard.RequireAuthenticated(c.Request.Context(), handle)
	if err != nil {
		return domain.Identity{}, false
	}
	c.Set(identityKey, identity)
	return identity, true
}

func (h *Handler) sessionHandle(c *gin.Context) string {
	handle, err := c.Cookie(h.cookie.Name)
	if err != nil {
		return ""
	}
	return handle
}

func (h *Handler) setSessionCookie(c *gin.Context, handle string) {
	maxAge := int(h.cookie.TTL / time.Second)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, handle, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}
