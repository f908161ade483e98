// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// LogMiddleware is an HTTP middleware that logs incoming requests using Logrus.
// Logs the method, path, status, and duration of each request.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start),
				"remote":     r.RemoteAddr,
				"request_id": chimw.GetReqID(r.Context()),
			}).Info("HTTP Request")
		})
	}
}

// LogConnect logs a participant connecting over any transport.
func LogConnect(logger *logrus.Logger, transport, remoteAddr, name string) {
	logger.WithFields(logrus.Fields{
		"transport": transport,
		"remote":    remoteAddr,
		"name":      name,
	}).Info("Participant connected")
}

// LogDisconnect logs a participant leaving. err is the read error that ended the session, if any.
func LogDisconnect(logger *logrus.Logger, transport, remoteAddr, name string, err error) {
	fields := logrus.Fields{
		"transport": transport,
		"remote":    remoteAddr,
		"name":      name,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("Participant disconnected")
}
