package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/election-api/internal/domain/entity"
	"github.com/yourusername/election-api/pkg/session"
)

// Context keys set by RequireAuth.
const (
	ContextAdminID   = "admin_id"
	ContextRole      = "role"
	ContextSessionID = "session_id"
)

// AuthMiddleware guards admin routes using the opaque session cookie.
type AuthMiddleware struct {
	sessions *session.Manager
}

func NewAuthMiddleware(sessions *session.Manager) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// RequireAuth resolves the session cookie against the server-side store and
// puts the admin identity into the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := m.sessions.Resolve(c.Request.Context(), c.Request)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "error_type": "session_invalid"})
			c.Abort()
			return
		}

		c.Set(ContextAdminID, sess.AdminID)
		c.Set(ContextRole, sess.Role)
		c.Set(ContextSessionID, sess.ID)
		c.Next()
	}
}

// SuperAdminOnly must run after RequireAuth.
func (m *AuthMiddleware) SuperAdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "error_type": "session_invalid"})
			c.Abort()
			return
		}
		if role.(string) != entity.RoleSuperAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Super admin rights required", "error_type": "forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireCSRF validates the X-CSRF-Token header on state-changing methods.
// The token is signed and bound to the session ID, so a forged cross-origin
// request cannot supply a matching pair. Must run after RequireAuth.
func (m *AuthMiddleware) RequireCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions || method == http.MethodTrace {
			c.Next()
			return
		}

		sessionID, exists := c.Get(ContextSessionID)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "error_type": "session_invalid"})
			c.Abort()
			return
		}

		token := c.GetHeader(session.CSRFHeader)
		if token == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "CSRF token missing from header", "error_type": "csrf_token_missing"})
			c.Abort()
			return
		}

		if err := m.sessions.VerifyCSRF(token, sessionID.(string)); err != nil {
			log.Printf("[CSRF Middleware] rejected %s %s: %v", method, c.Request.URL.Path, err)
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid CSRF token", "error_type": "csrf_token_invalid"})
			c.Abort()
			return
		}

		c.Next()
	}
}
