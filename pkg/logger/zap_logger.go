package logger

import (
	"fmt"
	"io"
	"os"

	"orderdesk/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	_defaultMaxSize    = 100
	_defaultMaxBackups = 7
	_defaultMaxAge     = 30
)

type ZapLogger struct {
	logger *zap.Logger
	level  zapcore.Level

	console    io.Writer
	filename   string
	maxSize    int
	maxBackups int
	maxAge     int
}

// NewZapLogger writes JSON to the console sink and, when a filename is set,
// to a rotated file. Options override what cfg says.
func NewZapLogger(cfg *config.Config, opts ...Option) (*ZapLogger, error) {
	const op = "logger.NewZapLogger"

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		FunctionKey:   zapcore.OmitKey,
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}

	level, err := ParseLevel(cfg.Logger.Level)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	l := &ZapLogger{
		level:      toZapLevel(level),
		console:    os.Stdout,
		filename:   cfg.Logger.Filename,
		maxSize:    orDefault(cfg.Logger.MaxSize, _defaultMaxSize),
		maxBackups: orDefault(cfg.Logger.MaxBackups, _defaultMaxBackups),
		maxAge:     orDefault(cfg.Logger.MaxAge, _defaultMaxAge),
	}

	for _, opt := range opts {
		opt(l)
	}

	if err := l.validate(); err != nil {
		return nil, fmt.Errorf("%s: validation: %w", op, err)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(l.console)}
	if l.filename != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   l.filename,
			MaxSize:    l.maxSize,
			MaxBackups: l.maxBackups,
			MaxAge:     l.maxAge,
			Compress:   true,
		}))
	}

	minLevel := l.level
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(sinks...),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= minLevel
		}),
	)

	l.logger = zap.New(core,
		zap.Fields(
			zap.String("service", cfg.App.Name),
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.Env),
		),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zap.ErrorLevel),
	)

	return l, nil
}

func (l *ZapLogger) Zap() *zap.Logger {
	return l.logger
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
