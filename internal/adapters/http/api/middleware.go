package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/penaltyhub/pkg/logger"
	"github.com/okian/penaltyhub/pkg/metrics"
)

// recorder captures what a handler answered: the status and, for failures,
// the errorResponse code set by writeError.
type recorder struct {
	http.ResponseWriter
	status  int
	errCode string
}

func (rec *recorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// instrument records request count and latency per endpoint and counts
// failures by their API error code. Server errors are logged.
func instrument(log logger.Logger, endpoint string, next http.HandlerFunc) http.HandlerFunc {
	component := "http_" + endpoint
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		ms := float64(time.Since(start).Microseconds()) / 1000
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, ms)

		if rec.errCode == "" {
			return
		}
		metrics.RecordErrorByComponent(component, rec.errCode)
		if rec.status >= http.StatusInternalServerError {
			log.Error(r.Context(), "request failed",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", rec.status),
				logger.String("code", rec.errCode),
				logger.Float64("ms", ms))
		}
	}
}

// markError tags the recorder, if any, with the API error code.
func markError(w http.ResponseWriter, code string) {
	if rec, ok := w.(*recorder); ok {
		rec.errCode = code
	}
}
