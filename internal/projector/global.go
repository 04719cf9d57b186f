package projector

import (
	"math"

	"github.com/willie68/go_mapview/internal/model"
)

// EarthCircumference at the equator in meters
const EarthCircumference = 40_075_016.686

// TotalPixels the width of the whole world in pixels at this zoom level
func TotalPixels(zoom float64) float64 {
	return math.Exp2(zoom) * TileSize
}

// MercatorNormalized projects a position with web mercator into the range 0..1
// https://wiki.openstreetmap.org/wiki/Slippy_map_tilenames
func MercatorNormalized(pos model.Position) (float64, float64) {
	x := pos.Lon() * math.Pi / 180
	y := math.Asinh(math.Tan(pos.Lat() * math.Pi / 180))

	return (1 + x/math.Pi) / 2, (1 - y/math.Pi) / 2
}

// Global projects longitude and latitude with web mercator
type Global struct {
	screen
	zoom float64
}

func NewGlobal(st State) *Global {
	g := &Global{zoom: st.Zoom}
	g.anchor = st.Center.EffectivePosition(g, st.MyPosition)
	return g
}

func (g *Global) Zoom() float64 {
	return g.zoom
}

func (g *Global) ScalePixelsPerMeter(pos model.Position) float64 {
	perMeterEquator := TotalPixels(g.zoom) / EarthCircumference
	return perMeterEquator / math.Cos(math.Abs(pos.Lat())*math.Pi/180)
}

func (g *Global) BitmapProject(pos model.Position) model.Pos2 {
	x, y := MercatorNormalized(pos)
	total := TotalPixels(g.zoom)
	return model.Pos2{X: x * total, Y: y * total}
}

func (g *Global) BitmapUnproject(px model.Pos2) model.Position {
	total := TotalPixels(g.zoom)

	lon := (px.X/total*2 - 1) * math.Pi
	lat := math.Atan(math.Sinh((1 - px.Y/total*2) * math.Pi))

	return model.FromLonLat(lon*180/math.Pi, lat*180/math.Pi)
}

func (g *Global) BitmapToScreen(px model.Pos2) model.Pos2 {
	return g.toScreen(g, px)
}

func (g *Global) BitmapFromScreen(px model.Pos2) model.Pos2 {
	return g.fromScreen(g, px)
}

func (g *Global) Project(pos model.Position) model.Pos2 {
	return g.toScreen(g, g.BitmapProject(pos))
}

func (g *Global) Unproject(px model.Pos2) model.Position {
	return g.BitmapUnproject(g.fromScreen(g, px))
}

// TileID some sources deliver bigger tiles, e.g. 512px bundling four 256px
// tiles, so the zoom is lowered by log2(sourceTileSize/TileSize).
func (g *Global) TileID(pos model.Position, zoom uint8, sourceTileSize uint32) (model.TileID, bool) {
	x, y := MercatorNormalized(pos)

	if adjust := math.Log2(float64(sourceTileSize) / TileSize); adjust >= 1 {
		if d := uint8(adjust); d < zoom {
			zoom -= d
		} else {
			zoom = 0
		}
	}

	n := math.Exp2(float64(zoom))
	return model.TileID{
		X:    gridIndex(x, n),
		Y:    gridIndex(y, n),
		Zoom: zoom,
	}, true
}

// gridIndex maps a normalized coordinate into [0, n)
func gridIndex(v, n float64) uint32 {
	i := math.Floor(v * n)
	if !(i >= 0) {
		return 0
	}
	if i > n-1 {
		return uint32(n - 1)
	}
	return uint32(i)
}

func (g *Global) Shift(pos model.Position, offset model.Vec2) model.Position {
	return shift(g, pos, offset)
}

func (g *Global) Position(p model.AdjustedPosition) model.Position {
	return resolve(g, p)
}

func (g *Global) ZeroOffset(p model.AdjustedPosition) model.AdjustedPosition {
	return zeroOffset(g, p)
}
