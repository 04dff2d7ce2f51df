package logs

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 定义日志级别常量（数值越大，级别越高）
const (
	LevelTrace   = iota // 0（最低，最详细）
	LevelDebug          // 1
	LevelVerbose        // 2
	LevelInfo           // 3
	LevelWarning        // 4
	LevelError          // 5（最高，最严重）
)

// Logger 组件持有的日志接口，printf 风格
type Logger interface {
	Trace(format string, v ...interface{})
	Debug(format string, v ...interface{})
	Verbose(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	// Named 返回带子模块名的 Logger
	Named(name string) Logger
	Sync() error
}

// zapLogger 基于 zap 的实现；Trace/Verbose 在 zap 里没有对应级别，由 level 字段自行过滤
type zapLogger struct {
	s     *zap.SugaredLogger
	level int
}

// Options 构建 Logger 的参数
type Options struct {
	Name     string
	Level    int
	Encoding string // "console" 或 "json"
}

// New 按 Options 创建 Logger
func New(opts Options) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if opts.Encoding != "" {
		cfg.Encoding = opts.Encoding
	} else {
		cfg.Encoding = "console"
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(opts.Level))

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	if opts.Name != "" {
		base = base.Named(opts.Name)
	}
	return &zapLogger{s: base.Sugar(), level: opts.Level}, nil
}

// NewNodeLogger 创建节点日志；构建失败时退化为 zap 开发配置
func NewNodeLogger(name string, level int) Logger {
	l, err := New(Options{Name: name, Level: level})
	if err != nil {
		return &zapLogger{s: zap.NewExample().Sugar().Named(name), level: level}
	}
	return l
}

// NewNopLogger 测试用，丢弃所有输出
func NewNopLogger() Logger {
	return &zapLogger{s: zap.NewNop().Sugar(), level: LevelError + 1}
}

// ParseLevel 把配置里的字符串转成级别常量
func ParseLevel(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "verbose":
		return LevelVerbose
	case "warn", "warning":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func zapLevel(level int) zapcore.Level {
	switch {
	case level <= LevelVerbose:
		return zapcore.DebugLevel
	case level == LevelInfo:
		return zapcore.InfoLevel
	case level == LevelWarning:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func (l *zapLogger) Trace(format string, v ...interface{}) {
	if l.level <= LevelTrace {
		l.s.Debugf("[TRACE] "+format, v...)
	}
}

func (l *zapLogger) Debug(format string, v ...interface{}) {
	if l.level <= LevelDebug {
		l.s.Debugf(format, v...)
	}
}

func (l *zapLogger) Verbose(format string, v ...interface{}) {
	if l.level <= LevelVerbose {
		l.s.Debugf("[VERBOSE] "+format, v...)
	}
}

func (l *zapLogger) Info(format string, v ...interface{}) {
	if l.level <= LevelInfo {
		l.s.Infof(format, v...)
	}
}

func (l *zapLogger) Warn(format string, v ...interface{}) {
	if l.level <= LevelWarning {
		l.s.Warnf(format, v...)
	}
}

func (l *zapLogger) Error(format string, v ...interface{}) {
	if l.level <= LevelError {
		l.s.Errorf(format, v...)
	}
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{s: l.s.Named(name), level: l.level}
}

func (l *zapLogger) Sync() error {
	return l.s.Sync()
}

// ========== 包级别的日志方法 ==========

var (
	globalMu sync.RWMutex
	global   = NewNodeLogger("timelock", LevelInfo)
)

// SetGlobal 替换包级别 Logger（serve 命令启动时调用）
func SetGlobal(l Logger) {
	if l == nil {
		return
	}
	globalMu.Lock()
	global = l
	globalMu.Unlock()
}

// Global 返回包级别 Logger
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

func Trace(format string, v ...interface{})   { Global().Trace(format, v...) }
func Debug(format string, v ...interface{})   { Global().Debug(format, v...) }
func Verbose(format string, v ...interface{}) { Global().Verbose(format, v...) }
func Info(format string, v ...interface{})    { Global().Info(format, v...) }
func Warn(format string, v ...interface{})    { Global().Warn(format, v...) }
func Error(format string, v ...interface{})   { Global().Error(format, v...) }
