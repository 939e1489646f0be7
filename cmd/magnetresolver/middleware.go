package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"go.uber.org/zap"
)

type contextKey string

const startTimeKey contextKey = "start"

// corsMiddleware allows any origin to call the JSON endpoints, matching
// the teacher's wide-open CORS policy for a public Stremio addon.
func corsMiddleware() func(http.Handler) http.Handler {
	headersOk := handlers.AllowedHeaders([]string{
		"Accept",
		"Accept-Language",
		"Content-Type",
		"Origin",
		"Accept-Encoding",
		"Content-Language",
		"X-Requested-With",
	})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST"})
	return func(next http.Handler) http.Handler {
		return handlers.CORS(originsOk, headersOk, methodsOk)(next)
	}
}

// recoveryMiddleware turns a panic in any handler into a 500 response
// instead of crashing the process.
var recoveryMiddleware = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))

func timerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), startTimeKey, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs every handled request's method, path and
// duration, grounded on the teacher's request logger.
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			var duration time.Duration
			if start, ok := r.Context().Value(startTimeKey).(time.Time); ok {
				duration = time.Since(start)
			}
			logger.Info("Handled request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remoteAddr", r.RemoteAddr),
				zap.Duration("duration", duration))
		})
	}
}
