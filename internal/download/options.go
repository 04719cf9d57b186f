package download

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/do/v2"
	"github.com/willie68/go_mapview/internal/httpcache"
	"github.com/willie68/go_mapview/internal/logging"
	"github.com/willie68/go_mapview/pkg/fileutils"
)

// DefaultUserAgent identifies the client against tile servers
const DefaultUserAgent = "go_mapview/0.1"

// HTTPOptions controls how tiles are fetched over http, e.g. caching
type HTTPOptions struct {
	// Cache path of the http cache directory, empty disables caching.
	// Some providers (e.g. OpenStreetMap) require clients to respect the
	// Expires header https://operations.osmfoundation.org/policies/tiles/
	Cache string `yaml:"cache"`
	// MaxAge cache lifetime of tiles without caching headers
	MaxAge    time.Duration `yaml:"maxage"`
	UserAgent string        `yaml:"useragent"`
	// Timeout per tile download, 0 means no timeout
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultHTTPOptions no cache, 30 seconds per tile
func DefaultHTTPOptions() HTTPOptions {
	return HTTPOptions{
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
		MaxAge:    24 * time.Hour,
	}
}

// Client is the one http client shared by all tile downloads
type Client struct {
	*http.Client
	cache *httpcache.Transport
}

// NewClient creates the shared client. protocols registers additional url
// schemes, e.g. mbtiles, on the transport.
func NewClient(opts HTTPOptions, protocols map[string]http.RoundTripper, log *slog.Logger) (*Client, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxIdleConnsPerHost = MaxInFlight
	for scheme, rt := range protocols {
		base.RegisterProtocol(scheme, rt)
	}
	c := &Client{
		Client: &http.Client{Transport: base},
	}
	if opts.Cache != "" {
		if fileutils.FileExists(opts.Cache) && !fileutils.IsDir(opts.Cache) {
			return nil, fmt.Errorf("cache path %s is not a directory", opts.Cache)
		}
		ct, err := httpcache.New(httpcache.Config{Path: opts.Cache, MaxAge: opts.MaxAge}, base, log)
		if err != nil {
			return nil, err
		}
		c.cache = ct
		c.Transport = ct
	}
	return c, nil
}

// Cache the http cache, nil if caching is disabled
func (c *Client) Cache() *httpcache.Transport {
	return c.cache
}

func (c *Client) Close() error {
	c.CloseIdleConnections()
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}

type httpConfig interface {
	GetHTTPConfig() HTTPOptions
}

type protocolSource interface {
	Protocols() map[string]http.RoundTripper
}

// Init provides the shared client. Additional url schemes are taken from an
// injected protocol source, e.g. the provider factory.
func Init(inj do.Injector) error {
	opts := do.MustInvokeAs[httpConfig](inj).GetHTTPConfig()
	var protocols map[string]http.RoundTripper
	if ps, err := do.InvokeAs[protocolSource](inj); err == nil {
		protocols = ps.Protocols()
	}
	c, err := NewClient(opts, protocols, logging.New("http"))
	if err != nil {
		return err
	}
	do.ProvideValue(inj, c)
	return nil
}

// Shutdown closes the client when the injector shuts down
func (c *Client) Shutdown() error {
	return c.Close()
}
