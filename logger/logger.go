package logger

import (
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where logs go. Stdout is reserved for MCP frames, so logs
// are written to stderr unless a file path is given.
type Options struct {
	Debug bool
	Path  string

	// Rotation settings for Path, in megabytes / files / days.
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// InitLogger builds the process logger and installs it as zap's global logger.
// The returned func flushes buffered entries.
func InitLogger(opts Options) (func(), error) {
	level := zap.InfoLevel
	if opts.Debug {
		level = zap.DebugLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer
	if opts.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    orDefault(opts.MaxSize, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAge, 28),
			Compress:   true,
		}
		// lumberjack opens lazily; surface permission problems at startup.
		if _, err := rotator.Write(nil); err != nil {
			return nil, errors.Wrapf(err, "failed to open log file %s", opts.Path)
		}
		sink = zapcore.AddSync(rotator)
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), sink, level)
	l := zap.New(core, zap.AddCaller())
	undo := zap.ReplaceGlobals(l)

	return func() {
		_ = l.Sync()
		undo()
	}, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
