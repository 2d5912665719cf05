package api

import "github.com/gin-gonic/gin"

// contextKeyUserID is the gin.Context key the auth middleware stores the
// resolved user id under.
const contextKeyUserID = "user_id"

// requireUserID reads the pre-validated learner identity from the trusted
// X-User-Id header -- set by an upstream auth proxy the same way the
// teacher's extractAuthor reads an oauth2-proxy header -- and rejects the
// request if it's absent. Issuing or validating that identity is out of
// scope here; this middleware only enforces the boundary.
func requireUserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-Id")
		if userID == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "X-User-Id header is required"})
			return
		}
		c.Set(contextKeyUserID, userID)
		c.Next()
	}
}

// userID returns the identity requireUserID stored on c.
func userID(c *gin.Context) string {
	v, _ := c.Get(contextKeyUserID)
	id, _ := v.(string)
	return id
}

// securityHeaders sets standard security response headers on every response.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		c.Next()
	}
}
