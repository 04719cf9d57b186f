package model

import "fmt"

// Position is a world coordinate. In global mode X is the longitude and Y the
// latitude in degrees, in local mode both are planar units.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// FromLonLat creates a geographic position
func FromLonLat(lon, lat float64) Position {
	return Position{X: lon, Y: lat}
}

// Lon longitude in degrees
func (p Position) Lon() float64 {
	return p.X
}

// Lat latitude in degrees
func (p Position) Lat() float64 {
	return p.Y
}

func (p Position) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.X, p.Y)
}

// AdjustedPosition is a position with a pending pixel offset, which is not
// yet folded into the position.
type AdjustedPosition struct {
	Position Position `json:"position"`
	Offset   Vec2     `json:"offset"`
}

func NewAdjustedPosition(pos Position, offset Vec2) AdjustedPosition {
	return AdjustedPosition{Position: pos, Offset: offset}
}

// Shift returns a copy with the offset added to the pending one
func (a AdjustedPosition) Shift(offset Vec2) AdjustedPosition {
	return AdjustedPosition{
		Position: a.Position,
		Offset:   a.Offset.Add(offset),
	}
}
