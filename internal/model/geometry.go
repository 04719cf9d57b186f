package model

// Vec2 a pixel offset
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Scale(f float64) Vec2 {
	return Vec2{X: v.X * f, Y: v.Y * f}
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Pos2 a pixel point, either in bitmap or in screen space
type Pos2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Pos2) Add(v Vec2) Pos2 {
	return Pos2{X: p.X + v.X, Y: p.Y + v.Y}
}

func (p Pos2) SubVec(v Vec2) Pos2 {
	return Pos2{X: p.X - v.X, Y: p.Y - v.Y}
}

// Sub the vector pointing from o to p
func (p Pos2) Sub(o Pos2) Vec2 {
	return Vec2{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p Pos2) ToVec2() Vec2 {
	return Vec2{X: p.X, Y: p.Y}
}

// Rect an axis aligned pixel rectangle, normally the viewport
type Rect struct {
	Min Pos2 `json:"min"`
	Max Pos2 `json:"max"`
}

// RectFromSize a rect starting at the origin
func RectFromSize(width, height float64) Rect {
	return Rect{Max: Pos2{X: width, Y: height}}
}

func (r Rect) Width() float64 {
	return r.Max.X - r.Min.X
}

func (r Rect) Height() float64 {
	return r.Max.Y - r.Min.Y
}

func (r Rect) Center() Pos2 {
	return Pos2{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Intersects checks if both rects overlap with a non empty area
func (r Rect) Intersects(o Rect) bool {
	return r.Min.X < o.Max.X && o.Min.X < r.Max.X && r.Min.Y < o.Max.Y && o.Min.Y < r.Max.Y
}
