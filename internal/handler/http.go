package handler

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"github.com/j-veylop/claude-code-metrics/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// MetricsPath is the OTLP/HTTP metrics endpoint.
	MetricsPath = "/v1/metrics"
	// HealthPath reports whether the sink is usable.
	HealthPath = "/healthz"

	// maxBodyBytes matches the Lambda synchronous payload limit.
	maxBodyBytes = 6 << 20

	defaultTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// HealthFunc reports an error when the service cannot accept metrics.
type HealthFunc func(ctx context.Context) error

// HTTP serves the metrics endpoint for local development.
type HTTP struct {
	translator Translator
	health     HealthFunc
	router     *mux.Router
}

// NewHTTP creates an HTTP handler backed by t. health may be nil.
func NewHTTP(t Translator, health HealthFunc) *HTTP {
	h := &HTTP{translator: t, health: health}

	r := mux.NewRouter()
	r.HandleFunc(MetricsPath, h.handleMetrics).Methods(http.MethodPost)
	r.HandleFunc(HealthPath, h.handleHealth).Methods(http.MethodGet)
	r.Use(logRequests)
	h.router = r

	return h
}

// ServeHTTP implements http.Handler.
func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is canceled.
func (h *HTTP) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return h.serve(ctx, ln)
}

func (h *HTTP) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           h,
		ReadTimeout:       defaultTimeout,
		ReadHeaderTimeout: defaultTimeout,
		WriteTimeout:      defaultTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("listening for metrics", "addr", ln.Addr().String(), "path", MetricsPath)

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *HTTP) handleMetrics(w http.ResponseWriter, r *http.Request) {
	body, isBase64, err := readBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, errUnsupportedEncoding):
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
		default:
			writeError(w, http.StatusBadRequest, "Invalid request body")
		}
		return
	}

	resp, err := h.translator.Translate(r.Context(), body, isBase64)
	if err != nil {
		logger.Error("failed to publish metrics", "response", resp.Body, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to publish metrics")
		return
	}

	writeJSON(w, resp.StatusCode, resp.Body)
}

func (h *HTTP) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			logger.Warn("health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "unhealthy")
			return
		}
	}
	writeJSON(w, http.StatusOK, `{"status":"ok"}`)
}

var errUnsupportedEncoding = errors.New("unsupported content encoding")

// readBody reads the request body, undoing gzip. A base64 content encoding is
// reported to the caller rather than decoded.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool, error) {
	var (
		reader   io.Reader = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		isBase64 bool
	)

	switch encoding := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding"))); encoding {
	case "", "identity":
	case "base64":
		isBase64 = true
	case "gzip":
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, false, fmt.Errorf("failed to open gzip body: %w", err)
		}
		defer gz.Close()
		reader = io.LimitReader(gz, maxBodyBytes+1)
	default:
		return nil, false, fmt.Errorf("%w: %s", errUnsupportedEncoding, encoding)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, err
	}
	if len(body) > maxBodyBytes {
		return nil, false, &http.MaxBytesError{Limit: maxBodyBytes}
	}
	return body, isBase64, nil
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		logger.Debug("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	body, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		body = []byte(`{"error":"internal error"}`)
	}
	writeJSON(w, status, string(body))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
