package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LogConfig holds configuration for the logging middleware
type LogConfig struct {
	// Console receives a one-line summary per request. Optional.
	Console *zap.Logger
	// File receives the full JSON record read back by the logs API. Optional.
	File *zap.Logger
	// Skip logging for specific paths
	SkipPaths []string
}

// LoggingMiddleware logs every request after it has been handled.
func LoggingMiddleware(cfg LogConfig) fiber.Handler {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *fiber.Ctx) error {
		if skip[c.Path()] {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			// The error handler has not run yet; report what it will send.
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("url", c.OriginalURL()),
			zap.Int("status", status),
			zap.Int64("latency", latency.Nanoseconds()),
			zap.String("ip", c.IP()),
			zap.String("user_agent", c.Get(fiber.HeaderUserAgent)),
			zap.String("request_id", c.Get(fiber.HeaderXRequestID)),
			zap.Int64("content_length", int64(len(c.Response().Body()))),
		}
		if user, ok := CurrentUser(c); ok {
			fields = append(fields, zap.Uint("user_id", user.ID), zap.String("username", user.Name))
		}
		if err != nil {
			fields = append(fields, zap.String("error", err.Error()))
		}

		if cfg.File != nil {
			cfg.File.Info("request", fields...)
		}
		if cfg.Console != nil {
			cfg.Console.Debug("request",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Duration("latency", latency))
		}
		return err
	}
}
