// Package provider contains the tile sources. A source only knows how to build
// the url of a tile, downloading is done by the download package.
package provider

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/samber/do/v2"
	"github.com/willie68/go_mapview/internal/logging"
	"github.com/willie68/go_mapview/internal/model"
)

const (
	TypeXYZ     = "xyz"
	TypeTMS     = "tms"
	TypeWMS     = "wms"
	TypeMBTiles = "mbtiles"

	defaultTileSize = 256
	defaultMaxZoom  = 19
)

// Provider is a configured tile source
type Provider interface {
	Name() string
	TileURL(id model.TileID) string
	// TileSize the size of the delivered tiles in pixel
	TileSize() uint32
	MaxZoom() uint8
	Attribution() string
}

type ConfigMap map[string]Config

type Config struct {
	// URL is either a template with {z}, {x}, {y} and optional {s}
	// placeholders or a base url, which gets /z/x/y.png appended
	URL         string   `yaml:"url"`
	Type        string   `yaml:"type"` // xyz, tms, wms, mbtiles
	TileSize    uint32   `yaml:"tilesize"`
	MaxZoom     uint8    `yaml:"maxzoom"`
	Subdomains  []string `yaml:"subdomains"`
	Attribution string   `yaml:"attribution"`
	// wms parameters
	Layers  string `yaml:"layers"`
	Format  string `yaml:"format"`
	Styles  string `yaml:"styles"`
	Version string `yaml:"version"`
	// Path for file based providers
	Path string `yaml:"path"`
}

var (
	ErrNotFound = errors.New("provider not found")
)

type providerConfig interface {
	GetProviderConfig() ConfigMap
}

// Factory knows all configured providers
type Factory struct {
	log       *slog.Logger
	configs   ConfigMap
	providers map[string]Provider
	mbtiles   *MBTilesTransport
}

// Init registers the factory and every provider as named service
func Init(inj do.Injector) error {
	f, err := NewFactory(do.MustInvokeAs[providerConfig](inj).GetProviderConfig())
	if err != nil {
		return err
	}
	do.ProvideValue(inj, f)
	for name, p := range f.providers {
		do.ProvideNamedValue(inj, name, p)
	}
	return nil
}

func NewFactory(configs ConfigMap) (*Factory, error) {
	f := &Factory{
		log:       logging.New("provider"),
		configs:   configs,
		providers: make(map[string]Provider),
		mbtiles:   NewMBTilesTransport(),
	}
	for name, config := range configs {
		p, err := f.create(name, config)
		if err != nil {
			f.Shutdown()
			return nil, err
		}
		f.providers[name] = p
		f.log.Info(fmt.Sprintf("provider %s (%s) registered", name, strings.ToLower(config.Type)))
	}
	return f, nil
}

func (f *Factory) create(name string, config Config) (Provider, error) {
	if config.TileSize == 0 {
		config.TileSize = defaultTileSize
	}
	if config.MaxZoom == 0 {
		config.MaxZoom = defaultMaxZoom
	}
	switch strings.ToLower(config.Type) {
	case TypeXYZ, "":
		return newTemplateProvider(name, config, false)
	case TypeTMS:
		return newTemplateProvider(name, config, true)
	case TypeWMS:
		return newWMSProvider(name, config)
	case TypeMBTiles:
		db, err := OpenMBTiles(name, config)
		if err != nil {
			return nil, err
		}
		f.mbtiles.Add(db)
		return db, nil
	}
	return nil, fmt.Errorf("unknown provider type: %s", config.Type)
}

func (f *Factory) HasProvider(name string) bool {
	_, ok := f.providers[name]
	return ok
}

func (f *Factory) Provider(name string) (Provider, error) {
	p, ok := f.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// Names sorted names of all providers
func (f *Factory) Names() []string {
	names := make([]string, 0, len(f.providers))
	for n := range f.providers {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Protocols additional url schemes the http client must serve
func (f *Factory) Protocols() map[string]http.RoundTripper {
	return map[string]http.RoundTripper{
		SchemeMBTiles: f.mbtiles,
	}
}

// Shutdown closes file based providers
func (f *Factory) Shutdown() error {
	f.mbtiles.Close()
	return nil
}
