// Package logx provides structured logging backed by zap with context-aware debug logging.
//
// Loggers are cheap handles bound to a component name. The underlying zap core is
// process-wide and may be reconfigured at any time with Configure; existing handles
// pick up the new core on their next call.
package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by Configure and the --log-level flag.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Options controls the process-wide logger.
type Options struct {
	Writer io.Writer // Defaults to os.Stderr
	Level  Level
	JSON   bool
}

// Logger is a component-scoped logger with printf-style methods.
type Logger struct {
	component string
}

type ctxKey struct{}

var (
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	baseMu  sync.RWMutex
	base    = newZap(os.Stderr, false)
	domains map[string]bool // nil means every domain
)

func init() { //nolint:gochecknoinits // Required for env var initialization
	initDebugFromEnv()
}

// initDebugFromEnv honors DEBUG=1 and DEBUG_DOMAINS=a,b.
func initDebugFromEnv() {
	if debug := os.Getenv("DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		level.SetLevel(zapcore.DebugLevel)
	}
	if raw := os.Getenv("DEBUG_DOMAINS"); raw != "" {
		SetDebugDomains(strings.Split(raw, ","))
	}
}

func newZap(w io.Writer, json bool) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.NameKey = "component"
	encCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format("2006-01-02T15:04:05.000Z"))
	}

	var encoder zapcore.Encoder
	if json {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core)
}

// ParseLevel converts a level name into a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

// Configure replaces the process-wide core. An empty level keeps the current one.
func Configure(opts Options) error {
	if opts.Level != "" {
		lvl, err := ParseLevel(string(opts.Level))
		if err != nil {
			return err
		}
		level.SetLevel(lvl)
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	baseMu.Lock()
	defer baseMu.Unlock()
	_ = base.Sync()
	base = newZap(w, opts.JSON)
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	baseMu.RLock()
	defer baseMu.RUnlock()
	_ = base.Sync()
}

// SetDebugDomains restricts context debug logging to the given domains.
// An empty list enables every domain.
func SetDebugDomains(list []string) {
	baseMu.Lock()
	defer baseMu.Unlock()

	if len(list) == 0 {
		domains = nil
		return
	}
	domains = make(map[string]bool, len(list))
	for _, d := range list {
		if d = strings.TrimSpace(d); d != "" {
			domains[d] = true
		}
	}
}

// IsDebugEnabled returns whether debug level is active.
func IsDebugEnabled() bool {
	return level.Enabled(zapcore.DebugLevel)
}

// IsDebugEnabledForDomain returns whether debug logging is enabled for a specific domain.
func IsDebugEnabledForDomain(domain string) bool {
	if !IsDebugEnabled() {
		return false
	}
	baseMu.RLock()
	defer baseMu.RUnlock()
	return domains == nil || domains[domain]
}

func current() *zap.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base
}

// NewLogger returns a logger bound to a component name.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// Zap exposes the named zap logger for structured fields.
func (l *Logger) Zap() *zap.Logger {
	return current().Named(l.component)
}

func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	l.Zap().Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	l.Zap().Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.Zap().Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.Zap().Error(fmt.Sprintf(format, args...))
}

// WithComponent stores a component name on the context for Debug.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, ctxKey{}, component)
}

func componentFrom(ctx context.Context) string {
	if ctx != nil {
		if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
			return id
		}
	}
	return "unknown"
}

// Debug logs a debug message with context and domain filtering.
//
//	logx.Debug(ctx, "factory", "trying model %s", model)
//
// Environment variable control:
//
//	DEBUG=1                              # Enable debug for all domains
//	DEBUG=1 DEBUG_DOMAINS=factory        # Enable debug only for the factory domain
//	DEBUG=1 DEBUG_DOMAINS=factory,agents # Enable debug for multiple domains
func Debug(ctx context.Context, domain, format string, args ...any) {
	if !IsDebugEnabledForDomain(domain) {
		return
	}
	current().Named(componentFrom(ctx)).Debug(fmt.Sprintf(format, args...), zap.String("domain", domain))
}

// DebugFlow logs workflow step information with context and domain.
func DebugFlow(ctx context.Context, domain, step, status string, extra ...string) {
	extraInfo := ""
	if len(extra) > 0 {
		extraInfo = fmt.Sprintf(" - %s", extra[0])
	}
	Debug(ctx, domain, "Flow %s: %s%s", step, status, extraInfo)
}

var defaultLogger = NewLogger("system")

func Warnf(format string, args ...any) {
	defaultLogger.Warn(format, args...)
}

// Wrap logs msg + ": " + err.Error() and returns fmt.Errorf("%s: %w", msg, err).
//
//	if err != nil { return logx.Wrap(err, "open history") }
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrappedErr := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrappedErr.Error())
	return wrappedErr
}
