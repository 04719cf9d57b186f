package provider

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/pkg/errors"
	"github.com/willie68/go_mapview/internal/model"
)

// wmsProvider requests every tile as GetMap with the tile bounds in EPSG:3857
type wmsProvider struct {
	name   string
	config Config
	base   *url.URL
}

func newWMSProvider(name string, config Config) (*wmsProvider, error) {
	base, err := url.Parse(config.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "provider %s: invalid url", name)
	}
	if config.Version == "" {
		config.Version = "1.3.0"
	}
	if config.Format == "" {
		config.Format = "image/png"
	}
	return &wmsProvider{
		name:   name,
		config: config,
		base:   base,
	}, nil
}

func (p *wmsProvider) Name() string {
	return p.name
}

func (p *wmsProvider) TileSize() uint32 {
	return p.config.TileSize
}

func (p *wmsProvider) MaxZoom() uint8 {
	return p.config.MaxZoom
}

func (p *wmsProvider) Attribution() string {
	return p.config.Attribution
}

func (p *wmsProvider) TileURL(id model.TileID) string {
	bb := mercatorBounds(id)
	size := strconv.Itoa(int(p.config.TileSize))

	params := p.base.Query()
	params.Set("service", "WMS")
	params.Set("request", "GetMap")
	params.Set("layers", p.config.Layers)
	params.Set("styles", p.config.Styles)
	params.Set("format", p.config.Format)
	params.Set("bbox", fmt.Sprintf("%.9f,%.9f,%.9f,%.9f", bb.Min.X(), bb.Min.Y(), bb.Max.X(), bb.Max.Y()))
	params.Set("width", size)
	params.Set("height", size)
	params.Set("version", p.config.Version)
	if p.config.Version == "1.3.0" {
		params.Set("crs", "EPSG:3857")
	} else {
		params.Set("srs", "EPSG:3857")
	}

	u := *p.base
	u.RawQuery = params.Encode()
	return u.String()
}

// mercatorBounds the tile bounds in web mercator meters
func mercatorBounds(id model.TileID) orb.Bound {
	b := id.MapTile().Bound()
	return orb.Bound{
		Min: project.WGS84.ToMercator(b.Min),
		Max: project.WGS84.ToMercator(b.Max),
	}
}
