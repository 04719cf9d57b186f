// Package httpcache is a caching http.RoundTripper for map tiles. Responses
// are kept in a badger database as long as the tile server allows it
// (Cache-Control, Expires, Age), tile servers like OpenStreetMap require
// clients to respect these headers.
package httpcache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/pquerna/cachecontrol"
	"github.com/pquerna/cachecontrol/cacheobject"
)

const (
	// HeaderCache is set on every response served by the transport, HIT or MISS
	HeaderCache = "X-Cache"
	keyPrefix   = "tile:"
)

type Config struct {
	Path string `yaml:"path"`
	// MaxAge is used for responses without any caching header
	MaxAge   time.Duration `yaml:"maxage"`
	InMemory bool          `yaml:"-"`
}

type entry struct {
	Status int
	Header http.Header
	Body   []byte
}

// Transport serves cached tiles and stores fresh ones
type Transport struct {
	log    *slog.Logger
	db     *badger.DB
	next   http.RoundTripper
	maxAge time.Duration
}

func New(cfg Config, next http.RoundTripper, log *slog.Logger) (*Transport, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(&badgerLogger{log: log})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open http cache at '%s'", cfg.Path)
	}
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{
		log:    log,
		db:     db,
		next:   next,
		maxAge: cfg.MaxAge,
	}, nil
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !cacheable(req) {
		return t.next.RoundTrip(req)
	}
	key := []byte(keyPrefix + req.URL.String())

	if e, ok := t.load(key); ok {
		t.log.Debug(fmt.Sprintf("cache hit: %s", req.URL))
		return e.response(req, "HIT"), nil
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	ttl := freshness(req, resp, t.maxAge)
	if ttl <= 0 {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	e := entry{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}
	if err := t.store(key, e, ttl); err != nil {
		t.log.Warn(fmt.Sprintf("can't cache %s: %v", req.URL, err))
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.Header.Set(HeaderCache, "MISS")
	return resp, nil
}

func (t *Transport) load(key []byte) (entry, bool) {
	var e entry
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&e)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			t.log.Warn(fmt.Sprintf("error reading cache: %v", err))
		}
		return e, false
	}
	return e, true
}

func (t *Transport) store(key []byte, e entry, ttl time.Duration) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return errors.Wrap(err, "encode cache entry")
	}
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, buf.Bytes()).WithTTL(ttl))
	})
}

// Purge removes all cached tiles
func (t *Transport) Purge() error {
	return t.db.DropPrefix([]byte(keyPrefix))
}

func (t *Transport) Close() error {
	return t.db.Close()
}

func (e entry) response(req *http.Request, state string) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(HeaderCache, state)
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

func cacheable(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return false
	}
	cc, err := cacheobject.ParseRequestCacheControl(req.Header.Get("Cache-Control"))
	return err == nil && !cc.NoStore
}

// freshness how long a response may be served from the cache, fallback is
// used when the server sends nothing to compute an expiry from.
func freshness(req *http.Request, resp *http.Response, fallback time.Duration) time.Duration {
	cc, err := cacheobject.ParseResponseCacheControl(resp.Header.Get("Cache-Control"))
	if err != nil || cc.NoCachePresent {
		return 0
	}
	// the age is taken off below, the expiry is computed for a fresh response
	r := *resp
	r.Header = resp.Header.Clone()
	r.Header.Del("Age")
	reasons, expires, err := cachecontrol.CachableResponse(req, &r, cachecontrol.Options{})
	if err != nil || len(reasons) > 0 {
		return 0
	}
	if expires.IsZero() {
		return fallback
	}
	ttl := time.Until(expires)
	if age, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Age"))); err == nil && age > 0 {
		ttl -= time.Duration(age) * time.Second
	}
	return ttl
}

type badgerLogger struct {
	log *slog.Logger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(f, v...)))
}
