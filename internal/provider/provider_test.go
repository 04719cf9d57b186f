package provider

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willie68/go_mapview/internal/model"
)

type testConfig ConfigMap

func (c testConfig) GetProviderConfig() ConfigMap {
	return ConfigMap(c)
}

func TestTemplateURLs(t *testing.T) {
	ast := assert.New(t)
	id := model.TileID{X: 1, Y: 2, Zoom: 3}
	tt := []struct {
		name   string
		config Config
		exp    string
	}{
		{"xyz template", Config{Type: "xyz", URL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png"}, "https://tile.openstreetmap.org/3/1/2.png"},
		{"xyz base", Config{Type: "xyz", URL: "http://localhost:8580/osm/xyz/"}, "http://localhost:8580/osm/xyz/3/1/2.png"},
		{"tms template", Config{Type: "tms", URL: "https://tms.example.org/{z}/{x}/{y}.jpg"}, "https://tms.example.org/3/1/5.jpg"},
		{"subdomains", Config{Type: "xyz", URL: "https://{s}.tiles.example.org/{z}/{x}/{y}.png", Subdomains: []string{"a", "b", "c"}}, "https://a.tiles.example.org/3/1/2.png"},
		{"default type", Config{URL: "https://t.example.org/{z}-{x}-{y}"}, "https://t.example.org/3-1-2"},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFactory(ConfigMap{"p": tc.config})
			require.NoError(t, err)
			p, err := f.Provider("p")
			require.NoError(t, err)
			ast.Equal(tc.exp, p.TileURL(id))
			ast.Equal(uint32(256), p.TileSize())
			ast.Equal(uint8(19), p.MaxZoom())
		})
	}
}

func TestWMSURL(t *testing.T) {
	ast := assert.New(t)
	f, err := NewFactory(ConfigMap{"gebco": {
		Type:     "wms",
		URL:      "https://geoserver.example.org/wms?map=sea",
		Layers:   "gebco2021:gebco_2021",
		TileSize: 512,
	}})
	require.NoError(t, err)
	p, err := f.Provider("gebco")
	require.NoError(t, err)

	u, err := url.Parse(p.TileURL(model.TileID{X: 0, Y: 0, Zoom: 0}))
	require.NoError(t, err)
	q := u.Query()
	ast.Equal("geoserver.example.org", u.Host)
	ast.Equal("sea", q.Get("map"))
	ast.Equal("GetMap", q.Get("request"))
	ast.Equal("gebco2021:gebco_2021", q.Get("layers"))
	ast.Equal("image/png", q.Get("format"))
	ast.Equal("512", q.Get("width"))
	ast.Equal("EPSG:3857", q.Get("crs"))

	bbox := strings.Split(q.Get("bbox"), ",")
	require.Len(t, bbox, 4)
	const half = 20037508.342789
	for i, exp := range []float64{-half, -half, half, half} {
		v, err := strconv.ParseFloat(bbox[i], 64)
		ast.NoError(err)
		ast.InDelta(exp, v, 1)
	}
}

func TestFactory(t *testing.T) {
	ast := assert.New(t)

	_, err := NewFactory(ConfigMap{"x": {Type: "ftp", URL: "ftp://x"}})
	ast.Error(err)
	_, err = NewFactory(ConfigMap{"x": {Type: "xyz"}})
	ast.Error(err)

	inj := do.New()
	do.ProvideValue(inj, testConfig{
		"osm":  {Type: "xyz", URL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png"},
		"topo": {Type: "tms", URL: "https://topo.example.org"},
	})
	require.NoError(t, Init(inj))

	f := do.MustInvoke[*Factory](inj)
	ast.Equal([]string{"osm", "topo"}, f.Names())
	ast.True(f.HasProvider("osm"))
	ast.False(f.HasProvider("gebco"))
	_, err = f.Provider("gebco")
	ast.True(errors.Is(err, ErrNotFound))

	p := do.MustInvokeNamed[Provider](inj, "topo")
	ast.Equal("topo", p.Name())
	ast.Contains(f.Protocols(), SchemeMBTiles)
	ast.NoError(f.Shutdown())
}

type memTiles map[model.TileID][]byte

func (m memTiles) Tile(id model.TileID) ([]byte, error) {
	data, ok := m[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func TestMBTilesTransport(t *testing.T) {
	ast := assert.New(t)
	tr := NewMBTilesTransport()
	tr.register("offline", memTiles{{X: 1, Y: 2, Zoom: 3}: []byte("\x89PNG\r\n\x1a\n....")})

	base := &http.Transport{}
	base.RegisterProtocol(SchemeMBTiles, tr)
	cl := &http.Client{Transport: base}

	tt := []struct {
		url    string
		status int
	}{
		{"mbtiles://offline/3/1/2", http.StatusOK},
		{"mbtiles://offline/3/1/3", http.StatusNotFound},
		{"mbtiles://offline/3/9/3", http.StatusBadRequest},
		{"mbtiles://offline/a/1/2", http.StatusBadRequest},
		{"mbtiles://unknown/3/1/2", http.StatusNotFound},
	}
	for _, tc := range tt {
		t.Run(tc.url, func(t *testing.T) {
			resp, err := cl.Get(tc.url)
			require.NoError(t, err)
			defer resp.Body.Close()
			ast.Equal(tc.status, resp.StatusCode)
			if tc.status == http.StatusOK {
				ast.Equal("image/png", resp.Header.Get("Content-Type"))
				body, _ := io.ReadAll(resp.Body)
				ast.True(strings.HasPrefix(string(body), "\x89PNG"))
			}
		})
	}
	tr.Close()
}

func TestParseMetadata(t *testing.T) {
	ast := assert.New(t)
	md := parseMetadata(map[string]any{
		"name":    "sea",
		"format":  "png",
		"minzoom": 2,
		"maxzoom": "12",
		"bounds":  []float64{5, 47, 15, 55},
	})
	ast.Equal("sea", md.Name)
	ast.Equal(2, md.Minzoom)
	ast.Equal(12, md.Maxzoom)
	ast.NotNil(md.BBox)
	ast.Equal(55.0, md.BBox.Max.Lat())

	ast.Equal(metadata{}, parseMetadata(nil))
}
