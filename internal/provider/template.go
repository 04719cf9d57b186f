package provider

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/willie68/go_mapview/internal/model"
)

// templateProvider serves xyz and tms tile servers
type templateProvider struct {
	name   string
	config Config
	isTMS  bool
}

func newTemplateProvider(name string, config Config, isTMS bool) (*templateProvider, error) {
	if config.URL == "" {
		return nil, errors.New("provider " + name + ": url missing")
	}
	return &templateProvider{
		name:   name,
		config: config,
		isTMS:  isTMS,
	}, nil
}

func (p *templateProvider) Name() string {
	return p.name
}

func (p *templateProvider) TileSize() uint32 {
	return p.config.TileSize
}

func (p *templateProvider) MaxZoom() uint8 {
	return p.config.MaxZoom
}

func (p *templateProvider) Attribution() string {
	return p.config.Attribution
}

func (p *templateProvider) TileURL(id model.TileID) string {
	if p.isTMS {
		// TMS counts rows from the bottom
		id = id.FlipY()
	}
	if !strings.Contains(p.config.URL, "{z}") {
		return fmt.Sprintf("%s/%d/%d/%d.png", strings.TrimSuffix(p.config.URL, "/"), id.Zoom, id.X, id.Y)
	}
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(int(id.Zoom)),
		"{x}", strconv.FormatUint(uint64(id.X), 10),
		"{y}", strconv.FormatUint(uint64(id.Y), 10),
		"{s}", p.subdomain(id),
	)
	return r.Replace(p.config.URL)
}

// subdomain spreads the tiles evenly over the subdomains
func (p *templateProvider) subdomain(id model.TileID) string {
	sd := p.config.Subdomains
	if len(sd) == 0 {
		return ""
	}
	return sd[(int(id.X)+int(id.Y))%len(sd)]
}
