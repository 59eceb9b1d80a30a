package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
	ctxErrorType    = "error_type"
)

// requestID tags every request with an id, reusing a well-formed incoming one.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// accessLog writes one line per request.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"request_id", c.GetString(ctxRequestID),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if et := c.GetString(ctxErrorType); et != "" {
			attrs = append(attrs, "error_type", et)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.log.Warn("request", attrs...)
			return
		}
		s.log.Info("request", attrs...)
	}
}

// recover turns a panic into a JSON 500.
func (s *Server) recover(c *gin.Context, err any) {
	s.log.Error("panic serving request",
		"request_id", c.GetString(ctxRequestID),
		"panic", err,
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(genericFailure))
}

// cors allows every origin, matching the service's browser clients.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-Request-Timeout")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
