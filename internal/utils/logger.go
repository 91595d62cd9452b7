package utils

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 全局日志器, InitLogger 之前丢弃所有输出
var Logger = zerolog.Nop()

const (
	mainLogName  = "productfinder.log"
	errorLogName = "productfinder_error.log"
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string // trace, debug, info, warn, error
	LogDir     string
	MaxSize    int    // 单个日志文件最大大小(MB)
	MaxBackups int    // 保留的旧日志文件数量
	MaxAge     int    // 保留天数
	Compress   bool   // 是否压缩旧日志
	NoConsole  bool   // 只写文件, 不输出到 stderr
	RunID      string // 写入每一行的 run 字段, 与运行报告文件名一致
}

// DefaultLogConfig 默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		LogDir:     "logs",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// InitLogger 初始化全局日志: 主日志文件, 只含 error 以上的错误日志文件, 以及可选的控制台
// 同时替换 zerolog/log 的全局 Logger, crawlers 包直接使用它
func InitLogger(config LogConfig) error {
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx := zerolog.New(zerolog.MultiLevelWriter(logWriters(config)...)).With().Timestamp()
	if config.RunID != "" {
		ctx = ctx.Str("run", config.RunID)
	}
	Logger = ctx.Logger()
	log.Logger = Logger

	Logger.Debug().
		Str("level", level.String()).
		Str("log_dir", config.LogDir).
		Msg("日志系统初始化完成")
	return nil
}

// logWriters 按配置组装输出目标
func logWriters(config LogConfig) []io.Writer {
	rotated := func(name string) io.Writer {
		return &lumberjack.Logger{
			Filename:   filepath.Join(config.LogDir, name),
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		}
	}

	writers := []io.Writer{
		rotated(mainLogName),
		&FilteredWriter{Writer: rotated(errorLogName), MinLevel: zerolog.ErrorLevel},
	}
	if !config.NoConsole {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:          os.Stderr,
			TimeFormat:   time.TimeOnly,
			PartsExclude: []string{"run"},
		})
	}
	return writers
}

// ForWebsite 返回带 website 字段的子日志器, 并发处理多个站点时用于区分输出
func ForWebsite(website string) zerolog.Logger {
	return Logger.With().Str("website", website).Logger()
}

// FilteredWriter 只放行 MinLevel 及以上的日志
type FilteredWriter struct {
	Writer   io.Writer
	MinLevel zerolog.Level
}

// Write 无级别信息时直接写入
func (w *FilteredWriter) Write(p []byte) (n int, err error) {
	return w.Writer.Write(p)
}

// WriteLevel 实现 zerolog.LevelWriter
func (w *FilteredWriter) WriteLevel(level zerolog.Level, p []byte) (n int, err error) {
	if level < w.MinLevel {
		return len(p), nil
	}
	return w.Writer.Write(p)
}

// Infof 格式化信息日志
func Infof(format string, args ...any) {
	Logger.Info().Msgf(format, args...)
}

// Warnf 格式化警告日志
func Warnf(format string, args ...any) {
	Logger.Warn().Msgf(format, args...)
}

// Debugf 格式化调试日志
func Debugf(format string, args ...any) {
	Logger.Debug().Msgf(format, args...)
}

// Errorf 格式化错误日志
func Errorf(format string, args ...any) {
	Logger.Error().Msgf(format, args...)
}

// Error 带 error 字段的错误日志
func Error(err error, msg string) {
	Logger.Error().Err(err).Msg(msg)
}
