package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRFTokenHeader is the header clients echo the CSRF token in.
const CSRFTokenHeader = "X-CSRF-Token"

// CSRFMiddleware protects cookie-session writes. Requests carrying a valid
// bearer token skip the check because browsers never attach it on their own.
// authService may be nil, in which case any bearer header skips the check.
func CSRFMiddleware(secret []byte, secure bool, authService *Service) gin.HandlerFunc {
	csrfProtect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteStrictMode),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(c *gin.Context) {
		if hasValidBearer(c, authService) {
			c.Next()
			return
		}

		if !secure {
			c.Request = csrf.PlaintextHTTPRequest(c.Request)
		}

		passed := false
		handler := csrfProtect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			token := csrf.Token(r)
			c.Set("csrf_token", token)
			c.Header(CSRFTokenHeader, token)
			c.Request = r
			c.Next()
		}))

		handler.ServeHTTP(c.Writer, c.Request)
		// gin would otherwise run the rest of the chain after a rejection
		if !passed {
			c.Abort()
		}
	}
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"CSRF token invalid or missing","code":"CSRF_FAILED"}`))
}

func hasValidBearer(c *gin.Context, authService *Service) bool {
	if !strings.HasPrefix(strings.ToLower(c.GetHeader("Authorization")), "bearer ") {
		return false
	}
	if authService == nil {
		return true
	}
	token, ok := bearerToken(c)
	if !ok {
		return false
	}
	_, err := authService.ValidateToken(token)
	return err == nil
}

// GetCSRFToken retrieves the CSRF token from the Gin context.
func GetCSRFToken(c *gin.Context) string {
	return c.GetString("csrf_token")
}
