// Package logger 提供统一的日志框架
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// EngineLogger 排班引擎专用日志器
type EngineLogger struct {
	base *zerolog.Logger
}

// NewEngineLogger 创建排班引擎日志器
func NewEngineLogger() *EngineLogger {
	l := Get().With().Str("component", "engine").Logger()
	return &EngineLogger{base: &l}
}

// StartGeneration 记录排班生成开始
func (l *EngineLogger) StartGeneration(startDate, endDate string, departments, shifts, nurses int) {
	l.base.Info().
		Str("start_date", startDate).
		Str("end_date", endDate).
		Int("departments", departments).
		Int("shifts", shifts).
		Int("nurses", nurses).
		Msg("开始生成排班")
}

// GenerationComplete 记录排班生成完成
func (l *EngineLogger) GenerationComplete(assigned, unassigned int, duration time.Duration) {
	l.base.Info().
		Int("assigned_shifts", assigned).
		Int("unassigned_shifts", unassigned).
		Dur("duration", duration).
		Msg("排班生成完成")
}

// ConstraintViolation 记录约束违反
func (l *EngineLogger) ConstraintViolation(rule, nurse, details string) {
	l.base.Debug().
		Str("rule", rule).
		Str("nurse", nurse).
		Str("details", details).
		Msg("约束违反")
}

// ShiftAssigned 记录班次分配
func (l *EngineLogger) ShiftAssigned(shiftID, nurseID string, score float64) {
	l.base.Debug().
		Str("shift_id", shiftID).
		Str("nurse_id", nurseID).
		Float64("score", score).
		Msg("班次已分配")
}

// ShiftUnderstaffed 记录班次人员不足
func (l *EngineLogger) ShiftUnderstaffed(shiftID string, assigned, required int) {
	l.base.Warn().
		Str("shift_id", shiftID).
		Int("assigned", assigned).
		Int("required", required).
		Msg("班次人员不足")
}

// SwapAccepted 记录优化换班被接受
func (l *EngineLogger) SwapAccepted(assignmentID, fromNurse, toNurse string, improvement float64) {
	l.base.Info().
		Str("assignment_id", assignmentID).
		Str("from_nurse", fromNurse).
		Str("to_nurse", toNurse).
		Float64("improvement", improvement).
		Msg("接受换班建议")
}

// OptimizeComplete 记录优化完成
func (l *EngineLogger) OptimizeComplete(evaluated, proposed int, duration time.Duration) {
	l.base.Info().
		Int("evaluated_swaps", evaluated).
		Int("proposed_swaps", proposed).
		Dur("duration", duration).
		Msg("排班优化完成")
}
