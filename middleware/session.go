package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionCookie = "cart_session"
	SessionHeader = "X-Cart-Session"
	sessionKey    = "cart_session"
)

// CartSession makes sure every request carries a cart session id. The id is
// read from the cookie, then the header; when neither holds a UUID a new one
// is issued as an HttpOnly cookie.
func CartSession(ttl time.Duration, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := validSession(c.GetHeader(SessionHeader))
		if cookie, err := c.Cookie(SessionCookie); err == nil {
			if v := validSession(cookie); v != "" {
				id = v
			}
		}

		if id == "" {
			id = uuid.NewString()
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, id, int(ttl.Seconds()), "/", "", secure, true)
		c.Header(SessionHeader, id)

		c.Set(sessionKey, id)
		c.Next()
	}
}

func validSession(v string) string {
	id, err := uuid.Parse(v)
	if err != nil {
		return ""
	}
	return id.String()
}

// SessionID returns the id set by CartSession, or "" when the middleware did not run.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
