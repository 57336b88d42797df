package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"psp.com/mock-exam/backend/internal/exam"
)

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	RateLimit      int  // requests per minute per client, 0 disables
	MaxCount       int  // largest paper a client may ask for
	TrustProxy     bool // take the client address from X-Forwarded-For
}

// Handler serves the exam API.
type Handler struct {
	exams    *exam.Registry
	log      *zap.Logger
	maxCount int
}

// NewRouter wires the exam API with CORS, security headers and rate limiting.
func NewRouter(exams *exam.Registry, log *zap.Logger, opts Options) http.Handler {
	if opts.MaxCount <= 0 {
		opts.MaxCount = 50
	}
	h := &Handler{exams: exams, log: log, maxCount: opts.MaxCount}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(securityHeaders)
	if opts.RateLimit > 0 {
		rl := newRateLimiter(opts.RateLimit, time.Minute)
		rl.trustProxy = opts.TrustProxy
		r.Use(rl.middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })

	r.Route("/api/exams", func(r chi.Router) {
		r.Get("/", h.handleListExams)
		r.Route("/{examID}", func(r chi.Router) {
			r.Get("/", h.handleGetExam)
			r.Get("/generate", h.handleGenerate)
			r.Post("/targeted", h.handleTargeted)
			r.Get("/paper.pdf", h.handlePaper)
		})
	})
	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a sliding window counter keyed by client address.
type rateLimiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	hits       map[string][]time.Time
	lastSweep  time.Time
	trustProxy bool
	now        func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{limit: limit, window: window, hits: map[string][]time.Time{}, now: time.Now}
}

func (rl *rateLimiter) allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(now)
	}

	var recent []time.Time
	for _, t := range rl.hits[client] {
		if now.Sub(t) < rl.window {
			recent = append(recent, t)
		}
	}
	if len(recent) >= rl.limit {
		rl.hits[client] = recent
		return false
	}
	rl.hits[client] = append(recent, now)
	return true
}

// sweep drops clients with no hit inside the window. Callers hold mu.
func (rl *rateLimiter) sweep(now time.Time) {
	for client, hits := range rl.hits {
		if len(hits) == 0 || now.Sub(hits[len(hits)-1]) >= rl.window {
			delete(rl.hits, client)
		}
	}
	rl.lastSweep = now
}

func (rl *rateLimiter) clientKey(r *http.Request) string {
	if rl.trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return strings.TrimSpace(strings.Split(xff, ",")[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.allow(rl.clientKey(r)) {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
