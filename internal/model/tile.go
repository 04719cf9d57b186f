package model

import (
	"fmt"

	"github.com/paulmach/orb/maptile"
)

// TileID is the grid address of one tile at a zoom level
type TileID struct {
	X    uint32 `json:"x"`
	Y    uint32 `json:"y"`
	Zoom uint8  `json:"zoom"`
}

func (t TileID) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Zoom, t.X, t.Y)
}

// Valid checks that x and y are inside the 2^zoom grid
func (t TileID) Valid() bool {
	if t.Zoom > 31 {
		return false
	}
	n := uint64(1) << t.Zoom
	return uint64(t.X) < n && uint64(t.Y) < n
}

// FlipY converts between xyz and tms row numbering
func (t TileID) FlipY() TileID {
	n := uint32(1) << t.Zoom
	t.Y = n - t.Y - 1
	return t
}

// MapTile converts the id into an orb tile, e.g. for bound calculations
func (t TileID) MapTile() maptile.Tile {
	return maptile.New(t.X, t.Y, maptile.Zoom(t.Zoom))
}
