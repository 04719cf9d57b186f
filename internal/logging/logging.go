// Package logging configures the structured loggers of the application.
// Loggers can be created with New at any time, also as package variables
// before Init ran; they pick up the configured output once Init is done.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/do/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	// Filename of the log file, empty logs to stdout only
	Filename   string     `yaml:"filename"`
	MaxSize    int        `yaml:"maxsize"` // megabytes
	MaxBackups int        `yaml:"maxbackups"`
	MaxAge     int        `yaml:"maxage"` // days
	Compress   bool       `yaml:"compress"`
	Gelf       GelfConfig `yaml:"gelf"`
}

var (
	level   = new(slog.LevelVar)
	handler atomic.Pointer[slog.Handler]
	Root    = New("root")

	closersLock sync.Mutex
	closers     []io.Closer
)

func init() {
	var h slog.Handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	handler.Store(&h)
}

// New creates a named logger
func New(name string) *slog.Logger {
	return slog.New(&lazyHandler{}).With("name", name)
}

type loggingConfig interface {
	GetLoggingConfig() Config
}

// Service closes the log outputs on shutdown of the injector
type Service struct{}

// Init configures logging from the injected config
func Init(inj do.Injector) error {
	if err := Setup(do.MustInvokeAs[loggingConfig](inj).GetLoggingConfig()); err != nil {
		return err
	}
	do.ProvideValue(inj, &Service{})
	return nil
}

func (s *Service) Shutdown() error {
	return Close()
}

// Setup replaces the outputs of all loggers
func Setup(cfg Config) error {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	level.Set(lvl)

	var w io.Writer = os.Stdout
	newClosers := make([]io.Closer, 0)
	if cfg.Filename != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		w = io.MultiWriter(os.Stdout, lj)
		newClosers = append(newClosers, lj)
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	if cfg.Gelf.URL != "" {
		gh, err := newGelfHandler(cfg.Gelf, level)
		if err != nil {
			return err
		}
		h = fanout{h, gh}
		newClosers = append(newClosers, gh)
	}

	Close()
	closersLock.Lock()
	closers = newClosers
	closersLock.Unlock()
	handler.Store(&h)
	return nil
}

// SetHandler replaces the output, e.g. in tests
func SetHandler(h slog.Handler) {
	handler.Store(&h)
}

// Close closes log files and remote connections
func Close() error {
	closersLock.Lock()
	defer closersLock.Unlock()
	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	closers = nil
	return first
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
	return l, nil
}

// lazyHandler resolves the current output on every record, attributes and
// groups are replayed on it.
type lazyHandler struct {
	ops []func(slog.Handler) slog.Handler
}

func (l *lazyHandler) resolve() slog.Handler {
	h := *handler.Load()
	for _, op := range l.ops {
		h = op(h)
	}
	return h
}

func (l *lazyHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return (*handler.Load()).Enabled(ctx, lvl)
}

func (l *lazyHandler) Handle(ctx context.Context, r slog.Record) error {
	return l.resolve().Handle(ctx, r)
}

func (l *lazyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return l.with(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (l *lazyHandler) WithGroup(name string) slog.Handler {
	return l.with(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (l *lazyHandler) with(op func(slog.Handler) slog.Handler) slog.Handler {
	ops := make([]func(slog.Handler) slog.Handler, len(l.ops), len(l.ops)+1)
	copy(ops, l.ops)
	return &lazyHandler{ops: append(ops, op)}
}

// fanout writes every record to all handlers
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := make(fanout, len(f))
	for i, h := range f {
		n[i] = h.WithAttrs(attrs)
	}
	return n
}

func (f fanout) WithGroup(name string) slog.Handler {
	n := make(fanout, len(f))
	for i, h := range f {
		n[i] = h.WithGroup(name)
	}
	return n
}
