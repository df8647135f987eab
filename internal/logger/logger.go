package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	IsDevelopment bool
	Encoding      string
	Level         string
}

// New builds a zap logger. Development mode switches to the console encoder
// and debug level.
func New(cfg Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.IsDevelopment {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.Encoding != "" {
		zapCfg.Encoding = cfg.Encoding
	}
	if cfg.IsDevelopment {
		zapCfg.Encoding = "console"
	}

	level := zapcore.InfoLevel
	if cfg.IsDevelopment {
		level = zapcore.DebugLevel
	}
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, err
		}
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
