package middleware

import (
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if a, ok := ActorFromContext(c); ok {
				fields = append(fields, zap.Uint("actor_id", a.UserID), zap.String("role", string(a.Role)))
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				log.Warn("request", fields...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
