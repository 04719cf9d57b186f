package mapview

import (
	"errors"
	"math"

	"github.com/willie68/go_mapview/internal/center"
	"github.com/willie68/go_mapview/internal/model"
)

const (
	MinZoom = 0.0
	MaxZoom = 26.0
)

var ErrInvalidZoom = errors.New("invalid zoom")

// Memory is the state of a map that survives frames: the zoom and the center
// mode. It is owned by the view and only changed under its lock.
type Memory struct {
	Center center.Center
	zoom   float64
}

// NewMemory a memory following the live position
func NewMemory(zoom float64) (Memory, error) {
	m := Memory{Center: center.MyPosition()}
	if err := m.SetZoom(zoom); err != nil {
		return Memory{}, err
	}
	return m, nil
}

func validZoom(zoom float64) bool {
	return !math.IsNaN(zoom) && zoom >= MinZoom && zoom <= MaxZoom
}

func (m *Memory) Zoom() float64 {
	return m.zoom
}

// SetZoom sets the zoom, it has to be in the range MinZoom..MaxZoom
func (m *Memory) SetZoom(zoom float64) error {
	if !validZoom(zoom) {
		return ErrInvalidZoom
	}
	m.zoom = zoom
	return nil
}

// ZoomIn increases the zoom by one. The pending offset of the center is
// measured in pixels of the current zoom, so it is folded before.
func (m *Memory) ZoomIn(f center.OffsetFolder) error {
	return m.zoomBy(f, 1)
}

func (m *Memory) ZoomOut(f center.OffsetFolder) error {
	return m.zoomBy(f, -1)
}

func (m *Memory) zoomBy(f center.OffsetFolder, delta float64) error {
	z := m.zoom + delta
	if z < MinZoom || z > MaxZoom {
		return ErrInvalidZoom
	}
	m.Center = m.Center.ZeroOffset(f)
	m.zoom = z
	return nil
}

// FollowMyPosition attaches the map to the live position again
func (m *Memory) FollowMyPosition() {
	m.Center = center.MyPosition()
}

// CenterAt detaches the map and centers it on the position
func (m *Memory) CenterAt(pos model.Position) {
	m.Center = center.Exact(model.NewAdjustedPosition(pos, model.Vec2{}))
}

// Detached returns the center position, false if the map follows the live position
func (m *Memory) Detached(r center.Resolver) (model.Position, bool) {
	return m.Center.Detached(r)
}
