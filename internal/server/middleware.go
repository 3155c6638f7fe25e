package server

import (
	"net"
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// withHeaders sets the cross-origin isolation headers the web client
// needs for its wasm landmark models, and allows any origin.
func withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cross-Origin-Opener-Policy", "same-origin-allow-popups")
		h.Set("Cross-Origin-Embedder-Policy", "require-corp")
		h.Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

// maxTrackedClients bounds the per-client limiters kept in memory. The least
// recently seen client is forgotten first.
const maxTrackedClients = 1024

type rateLimiter struct {
	bucket    *lru.Cache[string, *rate.Limiter]
	rate      rate.Limit
	burstSize int
	mutex     sync.Mutex
	log       *logrus.Logger
}

func newRateLimiter(reqRate rate.Limit, burstSize, capacity int, log *logrus.Logger) *rateLimiter {
	if capacity <= 0 {
		capacity = maxTrackedClients
	}
	// New only fails for a non-positive size.
	bucket, _ := lru.New[string, *rate.Limiter](capacity)

	return &rateLimiter{
		bucket:    bucket,
		rate:      reqRate,
		burstSize: burstSize,
		log:       log,
	}
}

func (r *rateLimiter) limiterFor(ip string) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if l, ok := r.bucket.Get(ip); ok {
		return l
	}

	l := rate.NewLimiter(r.rate, r.burstSize)
	r.bucket.Add(ip, l)
	return l
}

// clients returns the number of tracked clients.
func (r *rateLimiter) clients() int {
	return r.bucket.Len()
}

// limit rejects requests from a client that exceeds its budget.
func (r *rateLimiter) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip := clientIP(req)
		if !r.limiterFor(ip).Allow() {
			r.log.Warnf("too many requests for IP %s", ip)
			writeJSON(w, r.log, http.StatusTooManyRequests, map[string]string{"error": "Too many requests"})
			return
		}
		next.ServeHTTP(w, req)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
