package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CallerIdentityHeader carries the authenticated user-id forwarded by the
// external identity provider collaborator (spec §1 non-goal: token
// parsing happens outside the core; this reads the already-verified
// result).
const CallerIdentityHeader = "X-User-ID"

// SetupCORS configures CORS middleware.
func SetupCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "X-User-ID", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// Logger returns a gin.HandlerFunc for logging requests.
func Logger() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	})
}

// Recovery returns a middleware that recovers from panics.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if err, ok := recovered.(string); ok {
			log.Printf("panic recovered: %s", err)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_server_error",
			"message": "an unexpected error occurred",
		})
	})
}

// RequestID adds a unique request ID to each request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// CallerIdentity extracts the forwarded caller-identity header and
// rejects the request if it is missing or not a valid user id (spec
// §4.F, §6: every caller-facing operation takes an identity).
func CallerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(CallerIdentityHeader)
		callerID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "auth_denied",
				"message": "missing or invalid caller identity",
			})
			return
		}
		c.Set("caller_id", callerID)
		c.Next()
	}
}

// GetCallerID reads the caller identity set by CallerIdentity. Callers
// must run after that middleware.
func GetCallerID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get("caller_id")
	if !exists {
		return uuid.UUID{}, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
