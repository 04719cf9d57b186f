// Package center tracks the position the map view is centered on. The view
// follows a live position until it gets dragged, afterwards it stays
// detached until it is explicitly switched back to the live position.
package center

import (
	"fmt"

	"github.com/willie68/go_mapview/internal/model"
)

type Mode int

const (
	// ModeMyPosition follows the live position, e.g. a location sensor
	ModeMyPosition Mode = iota
	// ModeExact is pinned to a detached position
	ModeExact
	// ModeMoving the map is being dragged
	ModeMoving
	// ModeInertia the map glides after a drag and slows down
	ModeInertia
)

func (m Mode) String() string {
	switch m {
	case ModeMyPosition:
		return "myposition"
	case ModeExact:
		return "exact"
	case ModeMoving:
		return "moving"
	case ModeInertia:
		return "inertia"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Center is a tagged variant. Pos is used by all modes except
// ModeMyPosition, Direction by ModeMoving and ModeInertia, Amount only by
// ModeInertia. The zero value follows the live position.
//
// A Center is never changed in place, every transition returns a new value.
type Center struct {
	Mode      Mode                   `json:"mode"`
	Pos       model.AdjustedPosition `json:"pos"`
	Direction model.Vec2             `json:"direction"`
	Amount    float64                `json:"amount"`
}

// Resolver resolves the pending pixel offset of an adjusted position.
type Resolver interface {
	Position(p model.AdjustedPosition) model.Position
}

// OffsetFolder folds the pending offset of an adjusted position into the position.
type OffsetFolder interface {
	ZeroOffset(p model.AdjustedPosition) model.AdjustedPosition
}

// DragInput is the pointer state of one frame
type DragInput struct {
	// Dragging the primary button drags the map in this frame
	Dragging bool
	// Stopped the drag ended in this frame
	Stopped bool
	// Delta the drag movement of this frame in pixels
	Delta model.Vec2
}

func MyPosition() Center {
	return Center{Mode: ModeMyPosition}
}

func Exact(pos model.AdjustedPosition) Center {
	return Center{Mode: ModeExact, Pos: pos}
}

func Moving(pos model.AdjustedPosition, direction model.Vec2) Center {
	return Center{Mode: ModeMoving, Pos: pos, Direction: direction}
}

func Inertia(pos model.AdjustedPosition, direction model.Vec2, amount float64) Center {
	return Center{Mode: ModeInertia, Pos: pos, Direction: direction, Amount: amount}
}

// RecalculateDrag applies the drag input of a frame. The boolean reports
// whether the input was relevant for the center.
func (c Center) RecalculateDrag(in DragInput, myPosition model.Position) (Center, bool) {
	switch {
	case in.Dragging:
		pos, ok := c.AdjustedPosition()
		if !ok {
			pos = model.NewAdjustedPosition(myPosition, model.Vec2{})
		}
		return Moving(pos, in.Delta), true
	case in.Stopped:
		if c.Mode == ModeMoving {
			return Inertia(c.Pos, c.Direction, 1.0), true
		}
		return c, true
	}
	return c, false
}

// UpdateMovement advances a moving or gliding center by one frame. The
// inertia amount must already be decayed by the caller.
func (c Center) UpdateMovement() (Center, bool) {
	switch c.Mode {
	case ModeMoving:
		return Moving(c.Pos.Shift(c.Direction), c.Direction), true
	case ModeInertia:
		if c.Amount <= 0 {
			return Exact(c.Pos), true
		}
		return Inertia(c.Pos.Shift(c.Direction.Scale(c.Amount)), c.Direction, c.Amount), true
	}
	return c, false
}

// AdjustedPosition returns the held position, false when following the live position
func (c Center) AdjustedPosition() (model.AdjustedPosition, bool) {
	if c.Mode == ModeMyPosition {
		return model.AdjustedPosition{}, false
	}
	return c.Pos, true
}

// IsDetached true if the center does not follow the live position
func (c Center) IsDetached() bool {
	return c.Mode != ModeMyPosition
}

// Detached returns the exact position if the map is detached
func (c Center) Detached(r Resolver) (model.Position, bool) {
	pos, ok := c.AdjustedPosition()
	if !ok {
		return model.Position{}, false
	}
	return r.Position(pos), true
}

// EffectivePosition the real position at the map's center
func (c Center) EffectivePosition(r Resolver, myPosition model.Position) model.Position {
	if pos, ok := c.Detached(r); ok {
		return pos
	}
	return myPosition
}

// ZeroOffset folds the pending offset into the held position
func (c Center) ZeroOffset(f OffsetFolder) Center {
	if c.Mode == ModeMyPosition {
		return c
	}
	c.Pos = f.ZeroOffset(c.Pos)
	return c
}

// Shift shifts the held position by the given pixels, if detached
func (c Center) Shift(offset model.Vec2) Center {
	if c.Mode == ModeMyPosition {
		return c
	}
	c.Pos = c.Pos.Shift(offset)
	return c
}
