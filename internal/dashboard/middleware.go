package dashboard

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// middlewareAuth checks the Authorization header against the configured
// token, bare or as a Bearer credential. No token means an open API.
func (s *Server) middlewareAuth(ctx *gin.Context) {
	if len(s.Config.AuthToken) == 0 {
		ctx.Next()
		return
	}

	header := ctx.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.Config.AuthToken)) != 1 {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"message": "unauthorized",
		})
		return
	}

	ctx.Next()
}

func (s *Server) middlewareRateLimit(ctx *gin.Context) {
	if s.limiter != nil && !s.limiter.Allow() {
		ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"message": "rate limited",
		})
		return
	}
	ctx.Next()
}

func (s *Server) middlewareMetrics(ctx *gin.Context) {
	ctx.Next()
	if s.metrics == nil {
		return
	}
	route := ctx.FullPath()
	if route == "" {
		route = "unmatched"
	}
	code := strconv.Itoa(ctx.Writer.Status()/100) + "xx"
	s.metrics.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
}
