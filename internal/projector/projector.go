// Package projector relates world positions to screen pixels. Two strategies
// exist: Global projects longitude/latitude with web mercator, Local treats
// positions as planar coordinates and uses an affine transformation.
package projector

import (
	"fmt"
	"strings"

	"github.com/willie68/go_mapview/internal/center"
	"github.com/willie68/go_mapview/internal/model"
)

// TileSize is the internal tile size in pixels
const TileSize = 256

type Kind int

const (
	KindGlobal Kind = iota
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindGlobal:
		return "global"
	case KindLocal:
		return "local"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "global":
		return KindGlobal, nil
	case "local":
		return KindLocal, nil
	}
	return KindGlobal, fmt.Errorf("unknown projection: %s", s)
}

// State is the snapshot a projector is built from
type State struct {
	Zoom       float64
	Center     center.Center
	MyPosition model.Position
}

// Projector converts between world positions and pixels. Project and
// Unproject are composed of a bitmap projection, which maps the world into an
// unbounded pixel space of the current zoom, and a screen transform, which
// moves the anchor position into the center of the viewport.
type Projector interface {
	// ScalePixelsPerMeter the local scale at the position
	ScalePixelsPerMeter(pos model.Position) float64
	Project(pos model.Position) model.Pos2
	Unproject(px model.Pos2) model.Position
	BitmapProject(pos model.Position) model.Pos2
	BitmapUnproject(px model.Pos2) model.Position
	BitmapToScreen(px model.Pos2) model.Pos2
	BitmapFromScreen(px model.Pos2) model.Pos2
	// Zoom the zoom level of the bitmap space
	Zoom() float64
	// TileID the tile containing the position, false if there is no tile grid
	TileID(pos model.Position, zoom uint8, sourceTileSize uint32) (model.TileID, bool)
	// SetViewport must be called every frame before projecting
	SetViewport(r model.Rect)
	Viewport() model.Rect
	// Anchor the position mapped to the viewport center
	Anchor() model.Position
	Shift(pos model.Position, offset model.Vec2) model.Position
	Position(p model.AdjustedPosition) model.Position
	ZeroOffset(p model.AdjustedPosition) model.AdjustedPosition
}

var (
	_ Projector = (*Global)(nil)
	_ Projector = (*Local)(nil)
)

// New creates the projector of the given kind
func New(kind Kind, st State) Projector {
	if kind == KindLocal {
		return NewLocal(st)
	}
	return NewGlobal(st)
}

type bitmapProjection interface {
	BitmapProject(pos model.Position) model.Pos2
	BitmapUnproject(px model.Pos2) model.Position
}

// screen is the part both strategies share: viewport, anchor and the
// transformation between bitmap and screen pixels.
type screen struct {
	viewport model.Rect
	anchor   model.Position
}

func (s *screen) SetViewport(r model.Rect) {
	s.viewport = r
}

func (s *screen) Viewport() model.Rect {
	return s.viewport
}

func (s *screen) Anchor() model.Position {
	return s.anchor
}

func (s *screen) toScreen(b bitmapProjection, px model.Pos2) model.Pos2 {
	anchor := b.BitmapProject(s.anchor)
	return s.viewport.Center().Add(px.Sub(anchor))
}

func (s *screen) fromScreen(b bitmapProjection, px model.Pos2) model.Pos2 {
	anchor := b.BitmapProject(s.anchor)
	return anchor.Add(px.Sub(s.viewport.Center()))
}

// shift works in bitmap space, so it does not depend on the anchor and can be
// used while the anchor itself is resolved.
func shift(b bitmapProjection, pos model.Position, offset model.Vec2) model.Position {
	return b.BitmapUnproject(b.BitmapProject(pos).SubVec(offset))
}

func zeroOffset(b bitmapProjection, p model.AdjustedPosition) model.AdjustedPosition {
	if p.Offset.IsZero() {
		return p
	}
	return model.NewAdjustedPosition(shift(b, p.Position, p.Offset), model.Vec2{})
}

func resolve(b bitmapProjection, p model.AdjustedPosition) model.Position {
	if p.Offset.IsZero() {
		return p.Position
	}
	return shift(b, p.Position, p.Offset)
}
