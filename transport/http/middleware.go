package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dshuvalov/jumper-challenge/adapters/cookiesession"
	"github.com/dshuvalov/jumper-challenge/service"
	"github.com/gin-gonic/gin"
)

const sessionContextKey = "session"

// SessionMiddleware loads the client session and enforces the access policy.
// It runs for every request, matched or not. When the store is unreachable,
// public paths still run without a session so /health-check can report it.
func SessionMiddleware(sessions *cookiesession.Manager, policy *service.AccessPolicy, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := sessions.Load(c.Request.Context(), c.Writer, c.Request)
		if err != nil {
			logger.ErrorContext(c.Request.Context(), "failed to load session", "error", err)
			if policy.Authorize(c.Request.URL.Path, nil) == service.Allow {
				c.Next()
				return
			}
			abort(c, http.StatusInternalServerError, msgInternalError, nil)
			return
		}

		if policy.Authorize(c.Request.URL.Path, sess.Values()) == service.Deny {
			abort(c, http.StatusUnauthorized, msgUnauthorized, gin.H{"authorized": false})
			return
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// withSession hands the request session to h
func withSession(h func(c *gin.Context, sess *cookiesession.Session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(sessionContextKey)
		sess, ok := v.(*cookiesession.Session)
		if !exists || !ok {
			_ = c.Error(errors.New("no session loaded for request"))
			abort(c, http.StatusInternalServerError, msgInternalError, nil)
			return
		}
		h(c, sess)
	}
}

// RequestLogger logs one line per request
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request", attrs...)
	}
}

// Recovery turns panics into a 500 envelope
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.ErrorContext(c.Request.Context(), "panic recovered", "panic", recovered, "path", c.Request.URL.Path)
		abort(c, http.StatusInternalServerError, msgInternalError, nil)
	})
}

// SecurityHeaders sets conservative response headers
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "cross-origin")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		c.Next()
	}
}
