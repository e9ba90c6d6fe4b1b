// Package cors lets a separately hosted front end call the JSON API.
package cors

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// AllowedOrigins lists exact origins; "*" allows any origin.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         10 * time.Minute,
	}
}

type Middleware struct {
	config  Config
	anyOrig bool
	methods string
	headers string
	maxAge  string
}

func New(config Config) *Middleware {
	def := DefaultConfig()
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = def.AllowedOrigins
	}
	if len(config.AllowedMethods) == 0 {
		config.AllowedMethods = def.AllowedMethods
	}
	if len(config.AllowedHeaders) == 0 {
		config.AllowedHeaders = def.AllowedHeaders
	}
	if config.MaxAge == 0 {
		config.MaxAge = def.MaxAge
	}
	return &Middleware{
		config:  config,
		anyOrig: slices.Contains(config.AllowedOrigins, "*"),
		methods: strings.Join(config.AllowedMethods, ", "),
		headers: strings.Join(config.AllowedHeaders, ", "),
		maxAge:  strconv.Itoa(int(config.MaxAge / time.Second)),
	}
}

func (m *Middleware) allowed(origin string) bool {
	return m.anyOrig || slices.Contains(m.config.AllowedOrigins, origin)
}

// Handler adds CORS headers for allowed origins and answers preflight
// requests directly with 204.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		if !m.allowed(origin) {
			next.ServeHTTP(w, r)
			return
		}
		if m.anyOrig {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
		}
		h.Set("Access-Control-Expose-Headers", "X-Request-ID")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", m.methods)
			h.Set("Access-Control-Allow-Headers", m.headers)
			if m.config.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", m.maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
