package auth

import (
	"bufio"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
)

// committingWriter commits a modified session and sets its cookie before the
// first byte of the response goes out. Gin handlers write directly, so the
// cookie cannot wait until the handler returns.
type committingWriter struct {
	gin.ResponseWriter
	sm        *SessionManager
	request   *http.Request
	committed bool
}

func (w *committingWriter) WriteHeader(code int) {
	w.commit()
	w.ResponseWriter.WriteHeader(code)
}

func (w *committingWriter) WriteHeaderNow() {
	w.commit()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *committingWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *committingWriter) WriteString(s string) (int, error) {
	w.commit()
	return w.ResponseWriter.WriteString(s)
}

func (w *committingWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.Hijack()
}

func (w *committingWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true

	ctx := w.request.Context()
	switch w.sm.Status(ctx) {
	case scs.Modified:
		token, expiry, err := w.sm.Commit(ctx)
		if err != nil {
			log.Printf("[AUTH] Failed to commit session for %s %s: %v", w.request.Method, w.request.URL.Path, err)
			return
		}
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, token, expiry)
	case scs.Destroyed:
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, "", time.Time{})
	}
}

// Handler loads the publisher session for each request and commits it as the
// response is written. It must run before the auth middleware.
func (sm *SessionManager) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			log.Printf("[AUTH] Failed to load session: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
			return
		}
		c.Request = c.Request.WithContext(ctx)

		w := &committingWriter{ResponseWriter: c.Writer, sm: sm, request: c.Request}
		c.Writer = w

		c.Next()

		// Handlers that never wrote still need the cookie
		w.commit()
	}
}
