package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"PriceCast/pkg/logger"
)

// RequestLogging logs every request at debug level and failed ones as errors.
func RequestLogging(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("uri", req.RequestURI),
				logger.String("remote", c.RealIP()),
				logger.Int("status", c.Response().Status),
				logger.Duration("latency_ms", time.Since(start)),
			}
			if c.Response().Status >= 500 {
				log.Error("http request failed", append(fields, logger.Error(err))...)
			} else {
				log.Debug("http request", fields...)
			}
			return nil
		}
	}
}
