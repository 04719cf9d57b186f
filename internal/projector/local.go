package projector

import (
	"math"

	"github.com/willie68/go_mapview/internal/model"
)

// UnitsPerPoint how many local units one pixel represents at this zoom
func UnitsPerPoint(zoom float64) float64 {
	return 0.001 * math.Exp2(20-zoom)
}

// Local projects planar positions. Local y grows upwards, screen rows grow
// downwards, so y is flipped.
type Local struct {
	screen
	zoom float64
}

func NewLocal(st State) *Local {
	l := &Local{zoom: st.Zoom}
	l.anchor = st.Center.EffectivePosition(l, st.MyPosition)
	return l
}

func (l *Local) Zoom() float64 {
	return l.zoom
}

func (l *Local) ScalePixelsPerMeter(_ model.Position) float64 {
	return UnitsPerPoint(l.zoom)
}

func (l *Local) BitmapProject(pos model.Position) model.Pos2 {
	u := UnitsPerPoint(l.zoom)
	return model.Pos2{X: pos.X / u, Y: -pos.Y / u}
}

func (l *Local) BitmapUnproject(px model.Pos2) model.Position {
	u := UnitsPerPoint(l.zoom)
	return model.Position{X: px.X * u, Y: -px.Y * u}
}

func (l *Local) BitmapToScreen(px model.Pos2) model.Pos2 {
	return l.toScreen(l, px)
}

func (l *Local) BitmapFromScreen(px model.Pos2) model.Pos2 {
	return l.fromScreen(l, px)
}

func (l *Local) Project(pos model.Position) model.Pos2 {
	return l.toScreen(l, l.BitmapProject(pos))
}

func (l *Local) Unproject(px model.Pos2) model.Position {
	return l.BitmapUnproject(l.fromScreen(l, px))
}

// TileID local maps have no tile grid
func (l *Local) TileID(_ model.Position, _ uint8, _ uint32) (model.TileID, bool) {
	return model.TileID{}, false
}

func (l *Local) Shift(pos model.Position, offset model.Vec2) model.Position {
	return shift(l, pos, offset)
}

func (l *Local) Position(p model.AdjustedPosition) model.Position {
	return resolve(l, p)
}

func (l *Local) ZeroOffset(p model.AdjustedPosition) model.AdjustedPosition {
	return zeroOffset(l, p)
}
