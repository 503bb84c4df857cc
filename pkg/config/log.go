package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// RotationSchema marks the output paths written through lumberjack.
	RotationSchema = "rotate"

	_callerDepth = 2

	_defaultLogLevel            = "INFO"
	_defaultLogZapEncoding      = "json"
	_defaultLogEnableRotation   = false
	_defaultLogRotateMaxSize    = 64
	_defaultLogRotateMaxAge     = 30
	_defaultLogRotateMaxBackups = 8
)

var (
	_defaultLogZapOutputPaths = []string{"stderr"}

	_bufPool = buffer.NewPool()

	// zap sinks are registered per process, so the first rotation settings win.
	_registerRotation sync.Once
	_rotationErr      error
)

// Log configures the client logger and, optionally, rotation of its log files.
type Log struct {
	Zap            zap.Config
	Rotate         Rotate
	EnableRotation bool
	Level          string
}

// Rotate mirrors the settings of lumberjack.Logger.
type Rotate struct {
	// MaxSize is the size in megabytes a log file reaches before it is rotated.
	MaxSize int
	// MaxAge is the number of days rotated files are kept. Zero keeps them forever.
	MaxAge int
	// MaxBackups is the number of rotated files kept. Zero keeps all of them.
	MaxBackups int
	// LocalTime names rotated files with local time instead of UTC.
	LocalTime bool
	// Compress gzips rotated files.
	Compress bool
}

// NewLog returns the production logging configuration with short callers and ISO8601 timestamps.
func NewLog() *Log {
	log := &Log{
		Zap: zap.NewProductionConfig(),
	}
	log.Zap.EncoderConfig.EncodeCaller = encodeCaller
	log.Zap.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	log.Zap.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	return log
}

// Adjust derives the zap settings from Level and EnableRotation.
func (l *Log) Adjust() error {
	if len(l.Zap.ErrorOutputPaths) == 0 {
		l.Zap.ErrorOutputPaths = make([]string, len(l.Zap.OutputPaths))
		copy(l.Zap.ErrorOutputPaths, l.Zap.OutputPaths)
	}

	if l.EnableRotation {
		wd, err := os.Getwd()
		if err != nil {
			return errors.WithMessage(err, "get current directory")
		}
		l.Zap.OutputPaths = addRotationSchema(l.Zap.OutputPaths, wd)
		l.Zap.ErrorOutputPaths = addRotationSchema(l.Zap.ErrorOutputPaths, wd)
	}

	if l.Level == "" {
		l.Level = _defaultLogLevel
	}
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return errors.WithMessage(err, "parse log level")
	}
	l.Zap.Level = zap.NewAtomicLevelAt(level)

	return nil
}

// Logger builds a logger. It should be called after Adjust.
func (l *Log) Logger() (*zap.Logger, error) {
	if l.EnableRotation {
		if err := l.setupRotation(); err != nil {
			return nil, errors.WithMessage(err, "setup rotation")
		}
	}

	logger, err := l.Zap.Build()
	if err != nil {
		return nil, errors.WithMessage(err, "build logger")
	}
	return logger, nil
}

func logConfigure(v *viper.Viper, fs *pflag.FlagSet) {
	fs.String("log-level", _defaultLogLevel, "the minimum enabled logging level")
	fs.StringSlice("log-zap-output-paths", _defaultLogZapOutputPaths, "a list of URLs or file paths to write logging output to")
	fs.StringSlice("log-zap-error-output-paths", []string{}, "a list of URLs to write internal logger errors to (default ${log-zap-output-paths})")
	fs.String("log-zap-encoding", _defaultLogZapEncoding, "the logger's encoding, \"json\" or \"console\"")
	fs.Bool("log-enable-rotation", _defaultLogEnableRotation, "whether to rotate log files")
	fs.Int("log-rotate-max-size", _defaultLogRotateMaxSize, "maximum size in megabytes of a log file before it gets rotated")
	fs.Int("log-rotate-max-age", _defaultLogRotateMaxAge, "maximum number of days to retain rotated log files")
	fs.Int("log-rotate-max-backups", _defaultLogRotateMaxBackups, "maximum number of rotated log files to retain")
	fs.Bool("log-rotate-local-time", false, "name rotated log files with the local time instead of UTC")
	fs.Bool("log-rotate-compress", false, "gzip rotated log files")
	_ = v.BindPFlag("log.level", fs.Lookup("log-level"))
	_ = v.BindPFlag("log.zap.outputPaths", fs.Lookup("log-zap-output-paths"))
	_ = v.BindPFlag("log.zap.errorOutputPaths", fs.Lookup("log-zap-error-output-paths"))
	_ = v.BindPFlag("log.zap.encoding", fs.Lookup("log-zap-encoding"))
	_ = v.BindPFlag("log.enableRotation", fs.Lookup("log-enable-rotation"))
	_ = v.BindPFlag("log.rotate.maxSize", fs.Lookup("log-rotate-max-size"))
	_ = v.BindPFlag("log.rotate.maxAge", fs.Lookup("log-rotate-max-age"))
	_ = v.BindPFlag("log.rotate.maxBackups", fs.Lookup("log-rotate-max-backups"))
	_ = v.BindPFlag("log.rotate.localTime", fs.Lookup("log-rotate-local-time"))
	_ = v.BindPFlag("log.rotate.compress", fs.Lookup("log-rotate-compress"))
}

// encodeCaller keeps the last _callerDepth directories of the caller's path.
func encodeCaller(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	if !caller.Defined {
		enc.AppendString("<unknown>")
		return
	}

	idx := indexByteBackward(caller.File, '/', _callerDepth+1)
	if idx == -1 {
		enc.AppendString(caller.FullPath())
		return
	}

	buf := _bufPool.Get()
	defer buf.Free()
	buf.AppendString(caller.File[idx+1:])
	buf.AppendByte(':')
	buf.AppendInt(int64(caller.Line))
	enc.AppendString(buf.String())
}

func indexByteBackward(s string, c byte, cnt int) int {
	idx := len(s)
	for cnt > 0 && idx != -1 {
		idx = strings.LastIndexByte(s[:idx], c)
		cnt--
	}
	return idx
}

type rotation struct {
	lumberjack.Logger
}

// Sync implements zap.Sink.
func (*rotation) Sync() error {
	return nil
}

func (l *Log) setupRotation() error {
	rotate := l.Rotate
	_registerRotation.Do(func() {
		_rotationErr = zap.RegisterSink(RotationSchema, func(u *url.URL) (zap.Sink, error) {
			return &rotation{lumberjack.Logger{
				Filename:   u.Path,
				MaxSize:    rotate.MaxSize,
				MaxAge:     rotate.MaxAge,
				MaxBackups: rotate.MaxBackups,
				LocalTime:  rotate.LocalTime,
				Compress:   rotate.Compress,
			}}, nil
		})
	})
	if _rotationErr != nil {
		return errors.Wrap(_rotationErr, "register sink")
	}
	return nil
}

func addRotationSchema(paths []string, wd string) []string {
	results := make([]string, len(paths))
	for i, path := range paths {
		switch {
		case path == "stderr" || path == "stdout":
			results[i] = path
		case strings.HasPrefix(path, RotationSchema+":"):
			results[i] = path
		default:
			if !filepath.IsAbs(path) {
				path = filepath.Join(wd, path)
			}
			results[i] = fmt.Sprintf("%s:%s", RotationSchema, path)
		}
	}
	return results
}
