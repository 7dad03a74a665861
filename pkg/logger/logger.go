package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/etbur/eschool-portal/pkg/config"
	"github.com/etbur/eschool-portal/pkg/middleware/requestid"
)

// SessionRemainingHeader is the response header the session guard sets; it is copied into access logs.
const SessionRemainingHeader = "X-Session-Remaining"

// New builds the process logger from cfg.Log. Every entry carries the service name and the API root.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Log.Format {
	case "console":
		zapCfg.Encoding = "console"
	default:
		zapCfg.Encoding = "json"
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build(zap.Fields(
		zap.String("service", "eschool-portal"),
		zap.String("env", cfg.Env),
		zap.String("api_base_url", cfg.API.BaseURL),
	))
}

// GinMiddleware logs every gateway request once it completes. Server errors log at error level,
// client errors at warn, the rest at debug so session polling does not flood production logs.
func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestid.Value(c)),
		}
		if remaining := c.Writer.Header().Get(SessionRemainingHeader); remaining != "" {
			fields = append(fields, zap.String("session_remaining", remaining))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			l.Error("gateway request", fields...)
		case status >= 400:
			l.Warn("gateway request", fields...)
		default:
			l.Debug("gateway request", fields...)
		}
	}
}
