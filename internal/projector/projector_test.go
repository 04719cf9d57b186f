package projector

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/willie68/go_mapview/internal/center"
	"github.com/willie68/go_mapview/internal/model"
)

var viewport = model.Rect{Min: model.Pos2{X: 10, Y: 20}, Max: model.Pos2{X: 810, Y: 620}}

func detachedAt(pos model.Position) center.Center {
	return center.Exact(model.NewAdjustedPosition(pos, model.Vec2{}))
}

// randomZoom alternates whole and fractional zooms in 0..20
func randomZoom(rnd *rand.Rand, i int) float64 {
	if i%2 == 0 {
		return float64(rnd.IntN(21))
	}
	return rnd.Float64() * 20
}

func TestGlobalRoundTrip(t *testing.T) {
	ast := assert.New(t)
	rnd := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 2000; i++ {
		zoom := randomZoom(rnd, i)
		anchor := model.FromLonLat(rnd.Float64()*360-180, rnd.Float64()*170-85)
		p := NewGlobal(State{Zoom: zoom, Center: detachedAt(anchor)})
		p.SetViewport(viewport)

		pos := model.FromLonLat(rnd.Float64()*360-180, rnd.Float64()*170-85)
		back := p.Unproject(p.Project(pos))
		ast.InDelta(pos.Lon(), back.Lon(), 1e-7, "zoom %v pos %v", zoom, pos)
		ast.InDelta(pos.Lat(), back.Lat(), 1e-7, "zoom %v pos %v", zoom, pos)
	}
}

func TestLocalRoundTrip(t *testing.T) {
	ast := assert.New(t)
	rnd := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 2000; i++ {
		zoom := randomZoom(rnd, i)
		p := NewLocal(State{Zoom: zoom, Center: detachedAt(model.Position{X: rnd.Float64() * 100, Y: rnd.Float64() * 100})})
		p.SetViewport(viewport)

		pos := model.Position{X: rnd.Float64()*2e4 - 1e4, Y: rnd.Float64()*2e4 - 1e4}
		back := p.Unproject(p.Project(pos))
		ast.InDelta(pos.X, back.X, 1e-6, "zoom %v pos %v", zoom, pos)
		ast.InDelta(pos.Y, back.Y, 1e-6, "zoom %v pos %v", zoom, pos)
	}
}

func TestAnchorIsViewportCenter(t *testing.T) {
	ast := assert.New(t)
	my := model.FromLonLat(13.4, 52.5)
	detached := model.FromLonLat(-3.7, 40.4)

	tt := []struct {
		name   string
		kind   Kind
		center center.Center
		anchor model.Position
	}{
		{"global follows", KindGlobal, center.MyPosition(), my},
		{"global detached", KindGlobal, detachedAt(detached), detached},
		{"local follows", KindLocal, center.MyPosition(), my},
		{"local detached", KindLocal, detachedAt(detached), detached},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			p := New(tc.kind, State{Zoom: 12, Center: tc.center, MyPosition: my})
			p.SetViewport(viewport)
			ast.Equal(tc.anchor, p.Anchor())
			ast.Equal(viewport, p.Viewport())
			px := p.Project(tc.anchor)
			ast.InDelta(viewport.Center().X, px.X, 1e-6)
			ast.InDelta(viewport.Center().Y, px.Y, 1e-6)
		})
	}
}

func TestAnchorResolvesOffset(t *testing.T) {
	ast := assert.New(t)
	c := center.Exact(model.NewAdjustedPosition(model.FromLonLat(0, 0), model.Vec2{X: 64}))
	p := NewGlobal(State{Zoom: 0, Center: c})

	// 64 of 256 pixels is a quarter of the world, dragging right moves the center west
	ast.InDelta(-90, p.Anchor().Lon(), 1e-9)
	ast.InDelta(0, p.Anchor().Lat(), 1e-9)

	zeroed := c.ZeroOffset(p)
	ast.Equal(model.Vec2{}, zeroed.Pos.Offset)
	ast.InDelta(-90, zeroed.Pos.Position.Lon(), 1e-9)
}

func TestShift(t *testing.T) {
	ast := assert.New(t)
	g := NewGlobal(State{Zoom: 0})
	pos := g.Shift(model.FromLonLat(0, 0), model.Vec2{X: 128})
	ast.InDelta(-180, pos.Lon(), 1e-9)

	l := NewLocal(State{Zoom: 20})
	lp := l.Shift(model.Position{X: 1, Y: 1}, model.Vec2{X: 1000, Y: 1000})
	ast.InDelta(0, lp.X, 1e-9)
	// screen y down is local y up
	ast.InDelta(2, lp.Y, 1e-9)

	// shifting equals unproject(project(pos) - offset) on screen level
	g.SetViewport(viewport)
	p := model.FromLonLat(8, 47)
	off := model.Vec2{X: 12, Y: -30}
	exp := g.Unproject(g.Project(p).SubVec(off))
	got := g.Shift(p, off)
	ast.InDelta(exp.Lon(), got.Lon(), 1e-9)
	ast.InDelta(exp.Lat(), got.Lat(), 1e-9)
}

func TestLocalProjection(t *testing.T) {
	ast := assert.New(t)
	ast.InDelta(0.001, UnitsPerPoint(20), 1e-15)
	ast.InDelta(1.024, UnitsPerPoint(10), 1e-12)

	l := NewLocal(State{Zoom: 20})
	l.SetViewport(model.RectFromSize(800, 600))
	px := l.Project(model.Position{X: 1, Y: 1})
	ast.InDelta(1400, px.X, 1e-9)
	ast.InDelta(-700, px.Y, 1e-9)

	ast.Equal(UnitsPerPoint(20), l.ScalePixelsPerMeter(model.Position{X: 1e6}))
	_, ok := l.TileID(model.Position{}, 5, 256)
	ast.False(ok)
}

func TestScalePixelsPerMeter(t *testing.T) {
	ast := assert.New(t)
	g := NewGlobal(State{Zoom: 0})
	equator := 256 / EarthCircumference
	ast.InDelta(equator, g.ScalePixelsPerMeter(model.FromLonLat(0, 0)), 1e-15)
	ast.InDelta(2*equator, g.ScalePixelsPerMeter(model.FromLonLat(0, 60)), 1e-12)
	ast.InDelta(2*equator, g.ScalePixelsPerMeter(model.FromLonLat(0, -60)), 1e-12)

	g10 := NewGlobal(State{Zoom: 10})
	ast.InDelta(1024*equator, g10.ScalePixelsPerMeter(model.FromLonLat(0, 0)), 1e-9)
}

func TestTileIDExample(t *testing.T) {
	ast := assert.New(t)
	g := NewGlobal(State{Zoom: 0})
	id, ok := g.TileID(model.FromLonLat(0, 0), 0, 256)
	ast.True(ok)
	ast.Equal(model.TileID{X: 0, Y: 0, Zoom: 0}, id)

	id, _ = g.TileID(model.FromLonLat(0.1, 0.1), 1, 256)
	ast.Equal(model.TileID{X: 1, Y: 0, Zoom: 1}, id)
}

func TestTileIDSourceTileSize(t *testing.T) {
	ast := assert.New(t)
	g := NewGlobal(State{})
	pos := model.FromLonLat(13.4, 52.5)

	small, _ := g.TileID(pos, 10, 256)
	big, _ := g.TileID(pos, 10, 512)
	huge, _ := g.TileID(pos, 1, 1024)
	ast.Equal(uint8(10), small.Zoom)
	ast.Equal(uint8(9), big.Zoom)
	ast.Equal(small.X/2, big.X)
	ast.Equal(small.Y/2, big.Y)
	ast.Equal(model.TileID{}, huge)
}

func TestTileIDDeterministicAndBounded(t *testing.T) {
	ast := assert.New(t)
	g := NewGlobal(State{})
	rnd := rand.New(rand.NewPCG(5, 6))
	edges := []model.Position{
		model.FromLonLat(180, 90), model.FromLonLat(-180, -90),
		model.FromLonLat(180, -90), model.FromLonLat(-180, 90),
	}
	for i := 0; i < 1000; i++ {
		pos := model.FromLonLat(rnd.Float64()*360-180, rnd.Float64()*180-90)
		if i < len(edges) {
			pos = edges[i]
		}
		zoom := uint8(rnd.IntN(21))
		a, _ := g.TileID(pos, zoom, 256)
		b, _ := g.TileID(pos, zoom, 256)
		ast.Equal(a, b)
		ast.Equal(zoom, a.Zoom)
		ast.True(a.Valid(), "%v at %v", pos, a)
	}
}

func TestTileIDMatchesOrb(t *testing.T) {
	ast := assert.New(t)
	g := NewGlobal(State{})
	rnd := rand.New(rand.NewPCG(7, 8))
	for i := 0; i < 500; i++ {
		lon, lat := rnd.Float64()*358-179, rnd.Float64()*168-84
		zoom := uint8(rnd.IntN(19))
		id, _ := g.TileID(model.FromLonLat(lon, lat), zoom, 256)
		exp := maptile.At(orb.Point{lon, lat}, maptile.Zoom(zoom))
		ast.Equal(exp.X, id.X)
		ast.Equal(exp.Y, id.Y)
	}
}

func TestMercatorNormalized(t *testing.T) {
	ast := assert.New(t)
	x, y := MercatorNormalized(model.FromLonLat(0, 0))
	ast.Equal(0.5, x)
	ast.Equal(0.5, y)

	x, _ = MercatorNormalized(model.FromLonLat(-180, 0))
	ast.InDelta(0, x, 1e-15)
	_, y = MercatorNormalized(model.FromLonLat(0, 85.0511287798))
	ast.InDelta(0, y, 1e-9)
	ast.True(math.IsInf(TotalPixels(math.Inf(1)), 1))
}

func TestParseKind(t *testing.T) {
	ast := assert.New(t)
	k, err := ParseKind("Local")
	ast.NoError(err)
	ast.Equal(KindLocal, k)
	k, err = ParseKind("")
	ast.NoError(err)
	ast.Equal(KindGlobal, k)
	_, err = ParseKind("polar")
	ast.Error(err)
	ast.Equal("global", KindGlobal.String())
}
