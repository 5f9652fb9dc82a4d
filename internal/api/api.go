// Package api serves the stateless requirements endpoint.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"

	"github.com/NickMagic25/kubeegg/internal/api/handlers"
	"github.com/NickMagic25/kubeegg/internal/env"
	"github.com/NickMagic25/kubeegg/internal/logging"
)

// logResponseWriter captures the status code.
type logResponseWriter struct {
	http.ResponseWriter

	statusCode int
}

// Captures the status code and writes the response.
func (lrw *logResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func initializeEnv() *env.Env {
	return env.NewEnvironment(logging.NewLogger(slog.LevelDebug), nil)
}

// Start serves the API on the given port. A nil env gets the default
// logger and fetcher.
func Start(port string, e *env.Env) error {
	if e == nil {
		e = initializeEnv()
	}

	e.Logger.Info(fmt.Sprintf("Serving at 0.0.0.0:%s...", port))
	router := NewRouter(e)

	http.Handle("/", router)
	return http.ListenAndServe(":"+port, nil)
}

// NewRouter builds the configured router. Split out from Start so tests can
// exercise it without binding a port.
func NewRouter(e *env.Env) *mux.Router {
	router := mux.NewRouter()
	router.Use(injectEnvironment(e))
	router.Use(recoverMiddleware)
	router.Use(logRequest)
	addRoutes(router)
	return router
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e := env.FromContext(r.Context())

		defer func() {
			if err := recover(); err != nil {
				e.Logger.ErrorContext(r.Context(), "Panic occurred", slog.Any("panic", err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func injectEnvironment(e *env.Env) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if e == nil {
				e = env.Null()
			}
			r = r.WithContext(env.WithContext(r.Context(), e))
			next.ServeHTTP(w, r)
		})
	}
}

func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		e := env.FromContext(r.Context())

		ctx := r.Context()
		logId := ulid.MustNew(ulid.Timestamp(start), ulid.DefaultEntropy())
		r = r.WithContext(logging.AppendCtx(ctx, slog.String("log_id", logId.String())))
		r = r.WithContext(logging.AppendCtx(r.Context(), slog.String("method", r.Method)))
		r = r.WithContext(logging.AppendCtx(r.Context(), slog.String("path", r.URL.RequestURI())))
		lrw := &logResponseWriter{w, http.StatusOK}
		e.Logger.InfoContext(r.Context(), "Request received")
		next.ServeHTTP(lrw, r)
		e.Logger.LogAttrs(
			r.Context(),
			slog.LevelInfo,
			"Request completed",
			slog.Duration("duration", time.Since(start)),
			slog.Int("status", lrw.statusCode),
		)
	})
}

func addRoutes(router *mux.Router) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/requirements", handlers.Requirements).Methods("POST")
}
