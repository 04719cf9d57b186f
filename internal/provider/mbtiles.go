package provider

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/i0tool5/mbtiles-go"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/willie68/go_mapview/internal/logging"
	"github.com/willie68/go_mapview/internal/model"
	"github.com/willie68/go_mapview/pkg/fileutils"
)

// SchemeMBTiles is served by the MBTilesTransport: mbtiles://<provider>/<z>/<x>/<y>
const SchemeMBTiles = "mbtiles"

type metadata struct {
	Name    string
	Format  string
	Maxzoom int
	Minzoom int
	BBox    *orb.Bound
}

// MBTilesProvider serves tiles out of a local mbtiles file
type MBTilesProvider struct {
	name   string
	log    *slog.Logger
	config Config
	db     *mbtiles.MBtiles
	meta   metadata
	dlock  sync.Mutex
}

func OpenMBTiles(name string, config Config) (*MBTilesProvider, error) {
	log := logging.New("mbtiles").With("provider", name)
	if !fileutils.FileExists(config.Path) {
		return nil, errors.Errorf("mbtiles file '%s' not found", config.Path)
	}
	db, err := mbtiles.Open(config.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open mbtiles database '%s'", config.Path)
	}
	log.Info(fmt.Sprintf("mbtiles format: %s", db.GetTileFormat().String()))
	meta, err := db.ReadMetadata()
	if err != nil {
		log.Error(fmt.Sprintf("failed to read mbtiles metadata: %v", err))
	}
	p := &MBTilesProvider{
		name:   name,
		log:    log,
		config: config,
		db:     db,
	}
	p.meta = parseMetadata(meta)
	if p.meta.Maxzoom > 0 && p.meta.Maxzoom < 256 {
		p.config.MaxZoom = uint8(p.meta.Maxzoom)
	}
	return p, nil
}

func (p *MBTilesProvider) Name() string {
	return p.name
}

func (p *MBTilesProvider) TileSize() uint32 {
	return p.config.TileSize
}

func (p *MBTilesProvider) MaxZoom() uint8 {
	return p.config.MaxZoom
}

func (p *MBTilesProvider) Attribution() string {
	return p.config.Attribution
}

func (p *MBTilesProvider) TileURL(id model.TileID) string {
	return fmt.Sprintf("%s://%s/%d/%d/%d", SchemeMBTiles, p.name, id.Zoom, id.X, id.Y)
}

// Tile reads the tile data, mbtiles stores rows in tms order
func (p *MBTilesProvider) Tile(id model.TileID) ([]byte, error) {
	z := int(id.Zoom)
	if z < p.meta.Minzoom || (p.meta.Maxzoom > 0 && z > p.meta.Maxzoom) {
		return nil, fmt.Errorf("zoom level %d out of bounds (%d - %d)", z, p.meta.Minzoom, p.meta.Maxzoom)
	}
	if p.meta.BBox != nil && !p.meta.BBox.Intersects(id.MapTile().Bound()) {
		return nil, fmt.Errorf("tile %s out of bounds", id)
	}
	var data []byte
	flipped := id.FlipY()
	p.dlock.Lock()
	err := p.db.ReadTile(int64(z), int64(flipped.X), int64(flipped.Y), &data)
	p.dlock.Unlock()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tile %s", id)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("tile %s not found", id)
	}
	return data, nil
}

func (p *MBTilesProvider) Close() {
	p.db.Close()
}

func parseMetadata(meta map[string]any) metadata {
	var md metadata
	md.Name, _ = meta["name"].(string)
	md.Format, _ = meta["format"].(string)
	md.Maxzoom = metaInt(meta["maxzoom"])
	md.Minzoom = metaInt(meta["minzoom"])
	if bbox, ok := meta["bounds"].([]float64); ok && len(bbox) == 4 {
		md.BBox = &orb.Bound{Min: orb.Point{bbox[0], bbox[1]}, Max: orb.Point{bbox[2], bbox[3]}}
	}
	return md
}

func metaInt(v any) int {
	switch i := v.(type) {
	case int:
		return i
	case int64:
		return int(i)
	case float64:
		return int(i)
	case string:
		n, _ := strconv.Atoi(i)
		return n
	}
	return 0
}

type tileReader interface {
	Tile(id model.TileID) ([]byte, error)
}

// MBTilesTransport answers mbtiles:// requests out of the registered databases
type MBTilesTransport struct {
	lock sync.RWMutex
	dbs  map[string]tileReader
}

func NewMBTilesTransport() *MBTilesTransport {
	return &MBTilesTransport{
		dbs: make(map[string]tileReader),
	}
}

func (t *MBTilesTransport) Add(p *MBTilesProvider) {
	t.register(p.Name(), p)
}

func (t *MBTilesTransport) register(name string, r tileReader) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.dbs[name] = r
}

func (t *MBTilesTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.lock.RLock()
	db, ok := t.dbs[req.URL.Host]
	t.lock.RUnlock()
	if !ok {
		return response(req, http.StatusNotFound, nil), nil
	}
	id, err := parseTilePath(req.URL.Path)
	if err != nil {
		return response(req, http.StatusBadRequest, []byte(err.Error())), nil
	}
	data, err := db.Tile(id)
	if err != nil {
		return response(req, http.StatusNotFound, []byte(err.Error())), nil
	}
	return response(req, http.StatusOK, data), nil
}

func (t *MBTilesTransport) Close() {
	t.lock.Lock()
	defer t.lock.Unlock()
	for name, db := range t.dbs {
		if c, ok := db.(interface{ Close() }); ok {
			c.Close()
		}
		delete(t.dbs, name)
	}
}

func parseTilePath(path string) (model.TileID, error) {
	var id model.TileID
	p := strings.Split(strings.Trim(path, "/"), "/")
	if len(p) != 3 {
		return id, errors.New("path error")
	}
	z, err := strconv.ParseUint(p[0], 10, 8)
	if err != nil {
		return id, errors.New("error in zoom level")
	}
	x, err := strconv.ParseUint(p[1], 10, 32)
	if err != nil {
		return id, errors.New("error in x axis")
	}
	y, err := strconv.ParseUint(strings.TrimSuffix(p[2], ".png"), 10, 32)
	if err != nil {
		return id, errors.New("error in y axis")
	}
	id = model.TileID{X: uint32(x), Y: uint32(y), Zoom: uint8(z)}
	if !id.Valid() {
		return id, errors.New("invalid tile coordinates")
	}
	return id, nil
}

func response(req *http.Request, status int, body []byte) *http.Response {
	h := http.Header{}
	if status == http.StatusOK {
		h.Set("Content-Type", http.DetectContentType(body))
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
