package telemetry

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

var (
	logger     *logrus.Logger
	loggerOnce sync.Once
)

// InitLogger initializes the logger with the given configuration
func InitLogger(cfg *Config) error {
	loggerOnce.Do(func() {
		logger = logrus.New()

		level, parseErr := logrus.ParseLevel(cfg.LogLevel)
		if parseErr != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)

		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "@timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})

		logger = logger.WithFields(logrus.Fields{
			"service.name":    cfg.ServiceName,
			"service.version": cfg.ServiceVersion,
			"environment":     cfg.Environment,
		}).Logger
	})
	return nil
}

// L returns the global logger instance
func L() *logrus.Logger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

// WithContext adds trace information to the logger
func WithContext(ctx context.Context) *logrus.Entry {
	entry := L().WithContext(ctx)

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		entry = entry.WithFields(logrus.Fields{
			"trace.id": span.SpanContext().TraceID().String(),
			"span.id":  span.SpanContext().SpanID().String(),
		})
	}

	return entry
}

// WithFields adds fields to the logger
func WithFields(fields logrus.Fields) *logrus.Entry {
	return L().WithFields(fields)
}

// WithError adds an error to the logger
func WithError(err error) *logrus.Entry {
	return L().WithError(err)
}
