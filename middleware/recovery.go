package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery returns a Gin middleware that turns a panic in a battle handler
// into HTTP 500. The log line names the route and the battle id so that a
// crashed session can be found in the journal. A response that already
// started, such as an open event stream, is only aborted.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			cause := zap.Any("panic", r)
			if err, ok := r.(error); ok {
				cause = zap.Error(err)
			}
			log.Error("battle handler panicked",
				cause,
				zap.String("route", c.FullPath()),
				zap.String("battle_id", c.Param("id")),
				zap.String("trace_id", GetTraceID(c)),
				zap.Bool("streaming", c.Writer.Written()),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":    "internal server error",
				"trace_id": GetTraceID(c),
			})
		}()
		c.Next()
	}
}
