package middleware

import (
	"net/http"
	"time"

	"github.com/HammerMeetNail/fitcircle/internal/logging"
	"github.com/HammerMeetNail/fitcircle/internal/metrics"
)

// responseRecorder wraps http.ResponseWriter to capture status code and size.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// RequestLogger logs HTTP requests with timing information and records
// them on the metrics recorder.
type RequestLogger struct {
	logger  *logging.Logger
	metrics metrics.Recorder
}

// NewRequestLogger creates a new request logging middleware.
func NewRequestLogger(logger *logging.Logger, recorder metrics.Recorder) *RequestLogger {
	if logger == nil {
		logger = logging.Default
	}
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &RequestLogger{logger: logger, metrics: recorder}
}

// Apply wraps the handler to log requests. It must sit outside the
// ServeMux so the matched route pattern is visible after the call.
func (l *RequestLogger) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		l.metrics.ObserveHTTPRequest(r.Method, route, recorder.statusCode, duration)

		fields := map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"route":       route,
			"status":      recorder.statusCode,
			"size":        recorder.size,
			"duration_ms": duration.Milliseconds(),
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
		}

		if r.URL.RawQuery != "" {
			fields["query"] = r.URL.RawQuery
		}

		switch {
		case recorder.statusCode >= 500:
			l.logger.Error("HTTP request", fields)
		case recorder.statusCode >= 400:
			l.logger.Warn("HTTP request", fields)
		default:
			l.logger.Info("HTTP request", fields)
		}
	})
}
