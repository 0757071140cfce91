package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger. json switches the console encoder to
// json, debug lowers the level to debug and adds stack traces to errors. A
// non-empty app is attached to every entry.
func New(app string, json bool, debug bool) (*zap.Logger, error) {
	cfg := zap.Config{
		Encoding:          "console",
		Level:             zap.NewAtomicLevelAt(zapcore.InfoLevel),
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		EncoderConfig:     encoderConfig(),
		DisableStacktrace: !debug,
	}

	if json {
		cfg.Encoding = "json"
		// The server logs every request; keep bursts of identical lines bounded.
		if !debug {
			cfg.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
		}
	}

	if debug {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}

	if app != "" {
		cfg.InitialFields = map[string]any{"app": app}
	}

	return cfg.Build()
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey: "step",

		LevelKey:    "level",
		EncodeLevel: zapcore.LowercaseLevelEncoder,

		TimeKey:    "time",
		EncodeTime: zapcore.RFC3339TimeEncoder,

		CallerKey:    "caller",
		EncodeCaller: zapcore.ShortCallerEncoder,

		StacktraceKey:  "stacktrace",
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}
