package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/xid"
	"golang.org/x/time/rate"
)

// 配置参数
const (
	cleanupInterval = 2 * time.Minute // 清理间隔，每2分钟清理一次不活跃记录
	idleTimeout     = 3 * time.Minute // 超过这个时间没请求的 IP 被清理
)

// RequestIDHeader 请求 ID 头
const RequestIDHeader = "X-Request-ID"

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 每个 IP 一个令牌桶
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewRateLimiter perSecond <= 0 表示不限流
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = rl.now()
	return v.limiter.AllowN(v.lastSeen, 1)
}

// Middleware 超过阈值返回 429 Too Many Requests
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup 删除不活跃的 IP 记录，返回删除个数
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	n := 0
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > idleTimeout {
			delete(rl.visitors, ip)
			n++
		}
	}
	return n
}

// StartIPCleanup 启动一个后台 goroutine，定时清理不活跃的 IP 记录，ctx 结束时退出
func (rl *RateLimiter) StartIPCleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}

// RateLimit 便捷包装
func RateLimit(perSecond float64, burst int, next http.Handler) http.Handler {
	return NewRateLimiter(perSecond, burst).Middleware(next)
}

type ctxKey struct{}

// RequestID 沿用客户端给的 X-Request-ID，没有就生成一个
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = xid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestIDFrom 取出当前请求的 ID
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
