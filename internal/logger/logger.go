// Package logger holds the process-wide structured logger
package logger

import (
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance
var Logger *logrus.Logger

// Fields is an alias for logrus.Fields
type Fields = logrus.Fields

func init() {
	Logger = logrus.New()
	Logger.SetOutput(os.Stdout)
	Logger.SetLevel(logrus.InfoLevel)

	if os.Getenv("DSTKIT_ENV") == "production" {
		Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}

// SetLevel sets the logging level
func SetLevel(level string) {
	switch level {
	case "debug":
		Logger.SetLevel(logrus.DebugLevel)
	case "warn":
		Logger.SetLevel(logrus.WarnLevel)
	case "error":
		Logger.SetLevel(logrus.ErrorLevel)
	default:
		Logger.SetLevel(logrus.InfoLevel)
	}
}

// WithInstance returns a logger carrying the instance name field. Most
// registry, supervisor and importer log lines go through this.
func WithInstance(name string) *logrus.Entry {
	return Logger.WithField("instance", name)
}

// WithFields returns a logger with additional fields
func WithFields(fields Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithField returns a logger with one additional field
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithError returns a logger with an error field
func WithError(err error) *logrus.Entry {
	return Logger.WithError(err)
}

// Info logs an info message
func Info(msg string) {
	Logger.Info(msg)
}

// RequestLogger returns echo middleware that logs each request with a
// generated request id and the response status and latency.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := xid.New().String()
			c.Set("request_id", reqID)

			reqLogger := Logger.WithFields(Fields{
				"request_id": reqID,
				"method":     c.Request().Method,
				"path":       c.Request().URL.Path,
				"ip":         c.RealIP(),
			})

			err := next(c)

			latency := time.Since(start)
			status := c.Response().Status

			fields := Fields{
				"status":  status,
				"latency": latency.String(),
			}
			if err != nil {
				fields["error"] = err.Error()
				c.Error(err)
			}

			entry := reqLogger.WithFields(fields)
			switch {
			case status >= 500:
				entry.Error("Request failed")
			case status >= 400:
				entry.Warn("Request error")
			default:
				entry.Info("Request completed")
			}

			return err
		}
	}
}
