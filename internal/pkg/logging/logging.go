package logging

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func DefaultConfig() zap.Config {
	logConf := zap.NewProductionConfig()
	logConf.Sampling = nil
	logConf.EncoderConfig.TimeKey = "time"
	logConf.EncoderConfig.LevelKey = "severity"
	logConf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConf.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return logConf
}

// FileOptions configures a rotating log file. An empty Path keeps the
// output paths of the zap config.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Build creates a logger from the config, writing to a rotating file
// when a file path is set.
func Build(logConf zap.Config, fileOpts FileOptions) (*zap.Logger, error) {
	if fileOpts.Path == "" {
		return logConf.Build()
	}

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   fileOpts.Path,
		MaxSize:    fileOpts.MaxSizeMB,
		MaxBackups: fileOpts.MaxBackups,
		MaxAge:     fileOpts.MaxAgeDays,
		Compress:   fileOpts.Compress,
	})
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(logConf.EncoderConfig),
		writer,
		logConf.Level,
	)

	return zap.New(core, zap.AddCaller(), zap.ErrorOutput(writer)), nil
}

func ParseLevel(l string) (zapcore.Level, error) {
	l = strings.ToLower(strings.TrimSpace(l))
	switch l {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "dpanic":
		return zapcore.DPanicLevel, nil
	case "panic":
		return zapcore.PanicLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		level, err := strconv.ParseInt(l, 10, 8)
		if err != nil {
			return 0, err
		}
		return zapcore.Level(level), nil
	}
}
