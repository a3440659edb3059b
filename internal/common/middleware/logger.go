package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.uber.org/zap"
)

// ============================================================
// Request Logging
// ============================================================

// Logger пишет по одной записи zap на запрос. Уровень зависит от статуса:
// 5xx - error, 4xx - warn, остальное - info.
func Logger(log *zap.Logger) fiber.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return logger.New(logger.Config{
		// латентность замеряется, только если тег есть в формате
		Format: "${status} ${latency} ${method} ${path}",
		LoggerFunc: func(c fiber.Ctx, data *logger.Data, _ *logger.Config) error {
			status := c.Response().StatusCode()
			fields := []zap.Field{
				zap.Int("status", status),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Duration("latency", data.Stop.Sub(data.Start)),
				zap.String("ip", c.IP()),
			}
			if data.ChainErr != nil {
				fields = append(fields, zap.Error(data.ChainErr))
			}

			switch {
			case status >= fiber.StatusInternalServerError:
				log.Error("request", fields...)
			case status >= fiber.StatusBadRequest:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}
			return nil
		},
	})
}
