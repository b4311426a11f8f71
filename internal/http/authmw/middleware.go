// Package authmw resolves the session cookie into the current user before the
// workflow handlers run.
package authmw

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Chebah-Amine/bid-marketplace/internal/session"
)

const sessionContextKey = "current_session"

// LoginPath is where unauthenticated requests to guarded routes are sent.
const LoginPath = "/login"

// Resolve loads the session referenced by the cookie, if any, and stores it in
// the request context. Anonymous requests pass through untouched.
func Resolve(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(session.CookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}
		sess, err := store.Get(c.Request.Context(), token)
		if err != nil {
			zap.L().Error("session_lookup", zap.Error(err))
			c.Next()
			return
		}
		if sess != nil {
			c.Set(sessionContextKey, sess)
		}
		c.Next()
	}
}

// RequireAuth redirects anonymous requests to the login page.
func RequireAuth(c *gin.Context) {
	if CurrentSession(c) == nil {
		c.Redirect(http.StatusFound, LoginPath)
		c.Abort()
		return
	}
	c.Next()
}

// CurrentSession returns the resolved session, or nil for anonymous requests.
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	return v.(*session.Session)
}
