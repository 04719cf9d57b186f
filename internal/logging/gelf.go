package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aphistic/golf"
)

type GelfConfig struct {
	// URL of the graylog input, e.g. udp://graylog:12201
	URL      string `yaml:"url"`
	Facility string `yaml:"facility"`
}

// gelfHandler ships log records to a graylog server
type gelfHandler struct {
	client *golf.Client
	logger *golf.Logger
	level  slog.Leveler
	attrs  map[string]interface{}
	group  string
}

func newGelfHandler(cfg GelfConfig, level slog.Leveler) (*gelfHandler, error) {
	c, err := golf.NewClient()
	if err != nil {
		return nil, err
	}
	if err := c.Dial(cfg.URL); err != nil {
		c.Close()
		return nil, fmt.Errorf("can't connect to gelf server %s: %w", cfg.URL, err)
	}
	l, err := c.NewLogger()
	if err != nil {
		c.Close()
		return nil, err
	}
	facility := cfg.Facility
	if facility == "" {
		facility = "go_mapview"
	}
	l.SetAttr("facility", facility)
	if host, err := os.Hostname(); err == nil {
		l.SetAttr("source_host", host)
	}
	return &gelfHandler{
		client: c,
		logger: l,
		level:  level,
		attrs:  map[string]interface{}{},
	}, nil
}

func (g *gelfHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= g.level.Level()
}

func (g *gelfHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]interface{}, len(g.attrs)+r.NumAttrs())
	for k, v := range g.attrs {
		attrs[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		g.put(attrs, a)
		return true
	})
	switch {
	case r.Level >= slog.LevelError:
		return g.logger.Errm(attrs, "%s", r.Message)
	case r.Level >= slog.LevelWarn:
		return g.logger.Warnm(attrs, "%s", r.Message)
	case r.Level >= slog.LevelInfo:
		return g.logger.Infom(attrs, "%s", r.Message)
	}
	return g.logger.Dbgm(attrs, "%s", r.Message)
}

func (g *gelfHandler) put(attrs map[string]interface{}, a slog.Attr) {
	key := a.Key
	if g.group != "" {
		key = g.group + "." + key
	}
	attrs[key] = a.Value.Resolve().String()
}

func (g *gelfHandler) WithAttrs(as []slog.Attr) slog.Handler {
	n := g.clone()
	for _, a := range as {
		g.put(n.attrs, a)
	}
	return n
}

func (g *gelfHandler) WithGroup(name string) slog.Handler {
	n := g.clone()
	n.group = strings.TrimPrefix(g.group+"."+name, ".")
	return n
}

func (g *gelfHandler) clone() *gelfHandler {
	attrs := make(map[string]interface{}, len(g.attrs))
	for k, v := range g.attrs {
		attrs[k] = v
	}
	return &gelfHandler{
		client: g.client,
		logger: g.logger,
		level:  g.level,
		attrs:  attrs,
		group:  g.group,
	}
}

// Close only the handler created by Setup is closed, clones share the client
func (g *gelfHandler) Close() error {
	return g.client.Close()
}
