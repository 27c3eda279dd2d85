package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/streamgate/streamgate/api"
	"github.com/streamgate/streamgate/internal/auth"
	"github.com/streamgate/streamgate/internal/cache"
	"github.com/streamgate/streamgate/internal/config"
	"github.com/streamgate/streamgate/internal/models"
	"github.com/streamgate/streamgate/internal/service"
	"github.com/streamgate/streamgate/internal/store"
)

// Server holds dependencies for the HTTP API.
type Server struct {
	store store.Store
	cfg   *config.Config
	admin auth.Authenticator
	redis *cache.Redis // nil when REDIS_URL is not set
	mux   *http.ServeMux
}

// New creates a Server and registers routes.
// redis may be nil if caching/async imports are not configured.
func New(s store.Store, cfg *config.Config, admin auth.Authenticator, redis *cache.Redis) *Server {
	srv := &Server{store: s, cfg: cfg, admin: admin, redis: redis, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Device authorization
	s.mux.HandleFunc("POST /api/auth", s.handleAuthorize)

	// Admin surface
	s.mux.HandleFunc("GET /api/admin/customers", s.requireAdmin(s.handleListCustomers))
	s.mux.HandleFunc("POST /api/admin/customers", s.requireAdmin(s.handleCreateCustomer))
	s.mux.HandleFunc("GET /api/admin/catalog", s.requireAdmin(s.handleGetCatalog))
	s.mux.HandleFunc("POST /api/admin/catalog/import", s.requireAdmin(s.handleImportCatalog))

	// Docs
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      withCORS(withLogging(s)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authRequest struct {
	MAC string `json:"mac"`
}

// authResponse is the wire shape for a successful POST /api/auth. Denials
// answer with a bare {"authorized": false}; nothing about the catalog leaks.
type authResponse struct {
	Authorized bool             `json:"authorized"`
	Customer   string           `json:"customer"`
	Package    string           `json:"package"`
	Channels   []models.Channel `json:"channels"`
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	result, err := service.Authorize(r.Context(), s.store, req.MAC)
	if err != nil {
		if errors.Is(err, service.ErrInvalidMAC) {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		writeStoreErr(w, err)
		return
	}

	if !result.Authorized {
		writeJSON(w, http.StatusForbidden, map[string]bool{"authorized": false})
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Authorized: true,
		Customer:   result.CustomerID,
		Package:    result.Package,
		Channels:   result.Channels,
	})
}

// --- admin handlers ---

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	reg, err := s.store.LoadCustomers(r.Context())
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	if reg.Customers == nil {
		reg.Customers = []models.Customer{}
	}
	writeJSON(w, http.StatusOK, reg.Customers)
}

// macList accepts either a JSON array of strings or a single scalar string,
// matching what existing admin tooling sends.
type macList []string

func (m *macList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*m = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("macs must be a string or an array of strings")
	}
	*m = []string{single}
	return nil
}

type createCustomerRequest struct {
	Name         string   `json:"name"`
	MACs         macList  `json:"macs"`
	Package      string   `json:"package"`
	Expires      string   `json:"expires"`
	Entitlements []string `json:"entitlements"`
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if len(req.MACs) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("at least one mac is required"))
		return
	}

	stored, err := s.store.AppendCustomer(r.Context(), models.Customer{
		Name:         req.Name,
		MACs:         req.MACs,
		Package:      req.Package,
		Expires:      req.Expires,
		Entitlements: req.Entitlements,
	})
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.store.LoadCatalog(r.Context())
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

type importRequest struct {
	URL     string `json:"url"`
	Country string `json:"country"`
	Code    string `json:"code"`
}

func (s *Server) handleImportCatalog(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.URL == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("url is required"))
		return
	}
	if u, err := url.ParseRequestURI(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("url must be a valid http or https URL"))
		return
	}
	if req.Code == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("code is required"))
		return
	}

	// Async mode hands the job to the Redis-backed worker; useful for large
	// playlists that would exceed the HTTP write timeout.
	if r.URL.Query().Get("async") == "true" {
		if s.redis == nil {
			writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("async import not configured (REDIS_URL not set)"))
			return
		}
		job := cache.ImportJob{URL: req.URL, Country: req.Country, Code: req.Code, UserAgent: s.cfg.UserAgent}
		if err := cache.Enqueue(r.Context(), s.redis, cache.ImportQueue, job); err != nil {
			writeErr(w, http.StatusInternalServerError, fmt.Errorf("enqueue: %w", err))
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"code":   req.Code,
			"queued": true,
		})
		return
	}

	count, err := service.Import(r.Context(), s.store, req.URL, req.Country, req.Code, s.cfg.UserAgent, s.cfg.Timeout)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("import: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":          req.Code,
		"channel_count": count,
	})
}

// --- middleware ---

// requireAdmin gates a handler behind the configured admin authenticator.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.admin.Authenticate(r) {
			writeErr(w, http.StatusUnauthorized, fmt.Errorf("admin credentials required"))
			return
		}
		next(w, r)
	}
}

// withCORS adds CORS headers to every response and handles preflight OPTIONS requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withLogging wraps a handler and logs each request with method, path, status, and duration.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		statusCode := sw.status

		// Color the status code for terminal readability.
		statusColor := colorForStatus(statusCode)
		methodColor := colorForMethod(r.Method)

		log.Printf("%s %-7s %s\x1b[0m  %s %3d %s\x1b[0m  %s  %s",
			methodColor, r.Method, "\x1b[0m",
			statusColor, statusCode, "\x1b[0m",
			formatDuration(duration), r.URL.Path,
		)
	})
}

func colorForStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "\x1b[32m" // green
	case code >= 300 && code < 400:
		return "\x1b[36m" // cyan
	case code >= 400 && code < 500:
		return "\x1b[33m" // yellow
	default:
		return "\x1b[31m" // red
	}
}

func colorForMethod(method string) string {
	switch method {
	case http.MethodGet:
		return "\x1b[36m" // cyan
	case http.MethodPost:
		return "\x1b[32m" // green
	case http.MethodDelete:
		return "\x1b[31m" // red
	default:
		return "\x1b[37m" // white
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// --- helpers ---

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		log.Printf("ERROR %d: %v", status, err)
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

// writeStoreErr maps the storage error taxonomy onto HTTP statuses.
func writeStoreErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrMACInUse), errors.Is(err, store.ErrWriteContended):
		writeErr(w, http.StatusConflict, err)
	default:
		// ErrStorageUnavailable, ErrStorageCorrupt, and anything unexpected.
		writeErr(w, http.StatusInternalServerError, err)
	}
}

// --- docs handlers ---

func handleOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPISpec)
}

func handleSwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, swaggerUIHTML)
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>StreamGate API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
  <style>html{box-sizing:border-box;overflow-y:scroll}*,*:before,*:after{box-sizing:inherit}body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/docs/openapi.yaml",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
    });
  </script>
</body>
</html>`
