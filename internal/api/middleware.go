package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"interview-sync/internal/common/auth"
	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/models"
)

const (
	ctxGroup   = "group"
	ctxSession = "candidateSession"

	headerAPIKey = "X-API-Key"
)

func groupFrom(c *gin.Context) *models.Group {
	g, _ := c.MustGet(ctxGroup).(*models.Group)
	return g
}

func sessionFrom(c *gin.Context) *models.CandidateSession {
	cs, _ := c.MustGet(ctxSession).(*models.CandidateSession)
	return cs
}

// groupAuth resolves the calling group from its API key.
func (s *Server) groupAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(headerAPIKey))
		if key == "" {
			s.fail(c, apperrors.NewAuthenticationError("missing "+headerAPIKey+" header"))
			return
		}
		group, err := s.deps.Store.GetGroupByAPIKeyHash(c.Request.Context(), auth.HashKey(key))
		if err != nil {
			if apperrors.IsNotFound(err) {
				s.fail(c, apperrors.NewAuthenticationError("invalid API key"))
				return
			}
			s.fail(c, err)
			return
		}
		if !group.IsActive {
			s.fail(c, apperrors.NewAuthenticationError("group is inactive"))
			return
		}
		c.Set(ctxGroup, group)
		c.Next()
	}
}

// sessionAuth accepts a candidate session token as a Bearer credential.
func (s *Server) sessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			s.fail(c, apperrors.NewSessionInvalidError("missing bearer token"))
			return
		}
		cs, err := s.deps.Sessions.Authenticate(c.Request.Context(), strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Set(ctxSession, cs)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request served", map[string]interface{}{
			"method":   c.Request.Method,
			"route":    c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.deps.Obs.RecordRequest(c.Request.Context(), route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

// ipRateLimiter keeps one token bucket per client IP. Buckets are replaced
// ttl after creation.
type ipRateLimiter struct {
	limiters sync.Map
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

func newIPRateLimiter(perSecond float64, burst int, ttl time.Duration) *ipRateLimiter {
	if perSecond <= 0 {
		perSecond = 2
	}
	if burst <= 0 {
		burst = 5
	}
	return &ipRateLimiter{limit: rate.Limit(perSecond), burst: burst, ttl: ttl, now: time.Now}
}

func (l *ipRateLimiter) get(ip string) *rate.Limiter {
	now := l.now()
	if v, ok := l.limiters.Load(ip); ok {
		cl := v.(*cachedLimiter)
		if now.Before(cl.expiresAt) {
			return cl.limiter
		}
		l.limiters.Delete(ip)
	}
	cl := &cachedLimiter{limiter: rate.NewLimiter(l.limit, l.burst), expiresAt: now.Add(l.ttl)}
	actual, _ := l.limiters.LoadOrStore(ip, cl)
	return actual.(*cachedLimiter).limiter
}

func (l *ipRateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": errorBody{
				Code:    "RATE_LIMITED",
				Message: "too many requests",
			}})
			return
		}
		c.Next()
	}
}
