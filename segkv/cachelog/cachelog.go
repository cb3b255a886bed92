// Package cachelog provides category-scoped structured logging for the container:
// container lifecycle, eviction/passivation, persistence (the store collaborator),
// and errors. Each category tees to a rotating file (lumberjack) and to a console
// handler whose format is chosen based on whether stdout is a terminal.
package cachelog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps category-scoped slog.Logger instances.
type Logger struct {
	container  *slog.Logger
	eviction   *slog.Logger
	persist    *slog.Logger
	errorLog   *slog.Logger
	levelVar   slog.LevelVar
	serviceTag string
}

var global *Logger

// Container returns the category-scoped logger for container lifecycle events
// (start/stop, segment assignment, listener registration).
func Container() *slog.Logger { return categoryOrDefault(func(l *Logger) *slog.Logger { return l.container }) }

// Eviction returns the category-scoped logger for eviction/passivation/activation
// events.
func Eviction() *slog.Logger { return categoryOrDefault(func(l *Logger) *slog.Logger { return l.eviction }) }

// Persistence returns the category-scoped logger for the passivation store.
func Persistence() *slog.Logger { return categoryOrDefault(func(l *Logger) *slog.Logger { return l.persist }) }

// Error returns the category-scoped logger for ContainerError-level events.
func Error() *slog.Logger { return categoryOrDefault(func(l *Logger) *slog.Logger { return l.errorLog }) }

func categoryOrDefault(pick func(*Logger) *slog.Logger) *slog.Logger {
	if global == nil {
		return slog.Default()
	}
	if l := pick(global); l != nil {
		return l
	}
	return slog.Default()
}

// LevelVar exposes the shared, runtime-adjustable log level.
func LevelVar() *slog.LevelVar {
	if global == nil {
		var lv slog.LevelVar
		lv.Set(slog.LevelInfo)
		return &lv
	}
	return &global.levelVar
}

// rollingWriter builds a lumberjack-backed rotating writer with sane defaults.
func rollingWriter(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}
}

// multiHandler fans a record out to several handlers (JSON file + console).
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if err := h.Handle(ctx, r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		out = append(out, h.WithAttrs(attrs))
	}
	return &multiHandler{handlers: out}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		out = append(out, h.WithGroup(name))
	}
	return &multiHandler{handlers: out}
}

// consoleHandler picks a text handler; when stdout isn't a terminal (e.g. piped to
// a log collector) it drops source locations to keep lines compact.
func consoleHandler(w *os.File, levelVar *slog.LevelVar) slog.Handler {
	addSource := isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd())
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: addSource,
	})
}

func buildCategoryLogger(serviceTag, category string, fileWriter *lumberjack.Logger, consoleWriter *os.File, levelVar *slog.LevelVar) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: true,
	})
	handler := &multiHandler{handlers: []slog.Handler{jsonHandler, consoleHandler(consoleWriter, levelVar)}}
	return slog.New(handler).With(
		slog.String("service", serviceTag),
		slog.String("category", category),
	)
}

// Setup configures the four category loggers, rotating each category to its own
// file under logDir and routing errors to stderr, everything else to stdout.
// serviceTag identifies this process in every log line (e.g. the node name in a
// clustered deployment).
func Setup(logDir, serviceTag string) error {
	if logDir == "" {
		logDir = filepath.Join(".", "logs")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}
	if serviceTag == "" {
		serviceTag = "segkv"
	}

	l := &Logger{serviceTag: serviceTag}
	l.levelVar.Set(slog.LevelInfo)

	containerFile := rollingWriter(filepath.Join(logDir, "container.log"))
	evictionFile := rollingWriter(filepath.Join(logDir, "eviction.log"))
	persistFile := rollingWriter(filepath.Join(logDir, "persistence.log"))
	errorFile := rollingWriter(filepath.Join(logDir, "error.log"))

	l.container = buildCategoryLogger(serviceTag, "container", containerFile, os.Stdout, &l.levelVar)
	l.eviction = buildCategoryLogger(serviceTag, "eviction", evictionFile, os.Stdout, &l.levelVar)
	l.persist = buildCategoryLogger(serviceTag, "persistence", persistFile, os.Stdout, &l.levelVar)
	l.errorLog = buildCategoryLogger(serviceTag, "error", errorFile, os.Stderr, &l.levelVar)

	global = l
	slog.SetDefault(l.container)
	return nil
}
