package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/middleware/cors"
	"finance/internal/middleware/ratelimit"
	"finance/internal/middleware/security"
	"finance/internal/middleware/trace"
	"finance/internal/store"
	appweb "finance/web"
)

// TransactionService is what the server needs from the service layer.
type TransactionService interface {
	store.Repository
	Summary(ctx context.Context, chronological bool) (core.Summary, error)
}

// sizer reports the number of cached entries for the metrics endpoint.
type sizer interface {
	Size() int
}

// Options configures NewServer. Service is required.
type Options struct {
	Addr               string
	Service            TransactionService
	Formatter          *core.Formatter
	Logger             *log.Logger
	CORSAllowedOrigins []string
	// RateLimitPerMinute caps writes per client IP; 0 disables the limit.
	RateLimitPerMinute int
	ListCache          sizer
}

// Server wraps http.Server with the API, dashboard and middleware chain.
type Server struct {
	http.Server

	svc       TransactionService
	formatter *core.Formatter
	logger    *log.Logger
	events    *log.StructuredLogger
	templates *template.Template
	listCache sizer

	detector    *security.Detector
	traceMW     *trace.Middleware
	rateLimiter *ratelimit.Limiter
	metrics     *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	started time.Time
	created int64
	updated int64
	deleted int64
}

// NewServer configures routes, templates and middleware, returning a
// ready-to-run server. It fails when the service is missing or the embedded
// templates do not parse.
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, errors.New("transaction service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	formatter := opts.Formatter
	if formatter == nil {
		formatter = core.NewFormatter("vi-VN", "₫")
	}

	tmpl, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	s := &Server{
		svc:       opts.Service,
		formatter: formatter,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		templates: tmpl,
		listCache: opts.ListCache,
		detector:  security.NewDetector(),
		metrics:   &appMetrics{started: time.Now()},
	}
	s.traceMW = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux, static)

	var handler http.Handler = mux
	if opts.RateLimitPerMinute > 0 {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		})
		handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.rateLimited,
			http.MethodPost, http.MethodPut, http.MethodDelete)(handler)
	}
	handler = cors.New(cors.Config{AllowedOrigins: opts.CORSAllowedOrigins}).Handler(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.traceMW.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux, static fs.FS) {
	staticHandler := security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	mux.Handle("GET /static/", staticHandler)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/summary", s.handleSummary)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /ui/transactions", s.handleSaveForm)
	mux.HandleFunc("POST /ui/transactions/{id}/delete", s.handleDeleteForm)
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// Shutdown stops the background janitors and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
