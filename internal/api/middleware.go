package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/sectorcast/pkg/logger"
	"github.com/wonny/sectorcast/pkg/metrics"
	"github.com/wonny/sectorcast/pkg/redis"
)

// Limiter 클라이언트별 요청 허용 여부
type Limiter interface {
	Allow(ctx context.Context, client string) (bool, error)
}

// LocalLimiter 프로세스 내 클라이언트별 토큰 버킷
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewLocalLimiter perSecond 초당 요청, burst 순간 허용량
func NewLocalLimiter(perSecond float64, burst int) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow consumes one token for client
func (l *LocalLimiter) Allow(_ context.Context, client string) (bool, error) {
	l.mu.Lock()
	lim, ok := l.limiters[client]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[client] = lim
	}
	l.mu.Unlock()
	return lim.Allow(), nil
}

// RedisLimiter 여러 API 인스턴스가 공유하는 슬라이딩 윈도우
type RedisLimiter struct {
	limiter   *redis.RateLimiter
	perSecond int
}

// NewRedisLimiter creates a Redis-backed limiter
func NewRedisLimiter(limiter *redis.RateLimiter, perSecond int) *RedisLimiter {
	return &RedisLimiter{limiter: limiter, perSecond: perSecond}
}

// Allow checks the shared window for client
func (l *RedisLimiter) Allow(ctx context.Context, client string) (bool, error) {
	ok, _, err := l.limiter.Allow(ctx, redis.APIRateLimit(client, l.perSecond))
	return ok, err
}

// statusRecorder 응답 상태 코드 캡처
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests and counts them per route
func loggingMiddleware(log *logger.Logger, rec *metrics.Recorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			rec.RecordHTTPRequest(route, strconv.Itoa(sw.status))

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": time.Since(start).String(),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware rejects clients over their request rate with 429
// 리미터 자체 오류는 요청을 통과시킨다
func rateLimitMiddleware(limiter Limiter, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIP(r)
			ok, err := limiter.Allow(r.Context(), client)
			if err != nil {
				log.WithError(err).WithField("client", client).Warn("Rate limiter unavailable")
			} else if !ok {
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
