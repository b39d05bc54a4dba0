package config

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

// NewLogger configures the process-wide logger from cfg and returns it.
func NewLogger(cfg Config) *logrus.Logger {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stdout)
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Logger returns the process-wide logger.
func Logger() *logrus.Logger {
	return logger
}

// WithContext returns a log entry tagged with the request id, when the
// context carries one.
func WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(logger)
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		entry = entry.WithField("request_id", reqID)
	}
	return entry
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Warn("encode response")
	}
}
