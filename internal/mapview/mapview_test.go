package mapview

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willie68/go_mapview/internal/center"
	"github.com/willie68/go_mapview/internal/download"
	"github.com/willie68/go_mapview/internal/model"
	"github.com/willie68/go_mapview/internal/projector"
	"github.com/willie68/go_mapview/internal/provider"
)

type fakeSource struct {
	size    uint32
	maxZoom uint8
}

func (f fakeSource) Name() string        { return "fake" }
func (f fakeSource) TileSize() uint32    { return f.size }
func (f fakeSource) MaxZoom() uint8      { return f.maxZoom }
func (f fakeSource) Attribution() string { return "" }

func (f fakeSource) TileURL(id model.TileID) string {
	return "https://tiles.example.org/" + id.String()
}

func tid(x, y uint32, z uint8) model.TileID {
	return model.TileID{X: x, Y: y, Zoom: z}
}

var osm = fakeSource{size: 256, maxZoom: 19}

func testConfig() Config {
	return Config{
		Provider: "fake",
		Position: model.FromLonLat(10, 50),
		Zoom:     10,
		Width:    512,
		Height:   512,
	}
}

func texture() *download.Texture {
	return &download.Texture{Image: image.NewRGBA(image.Rect(0, 0, 256, 256)), Format: "png"}
}

func TestMemoryZoom(t *testing.T) {
	ast := assert.New(t)
	m, err := NewMemory(MaxZoom)
	ast.NoError(err)
	p := projector.New(projector.KindGlobal, projector.State{Zoom: m.Zoom()})

	ast.ErrorIs(m.ZoomIn(p), ErrInvalidZoom)
	ast.Equal(MaxZoom, m.Zoom())
	ast.NoError(m.ZoomOut(p))
	ast.Equal(MaxZoom-1, m.Zoom())

	ast.NoError(m.SetZoom(MinZoom))
	ast.ErrorIs(m.ZoomOut(p), ErrInvalidZoom)
	ast.ErrorIs(m.SetZoom(27), ErrInvalidZoom)
	ast.ErrorIs(m.SetZoom(-0.5), ErrInvalidZoom)

	_, err = NewMemory(30)
	ast.ErrorIs(err, ErrInvalidZoom)
}

func TestMemoryZoomFoldsOffset(t *testing.T) {
	ast := assert.New(t)
	m, err := NewMemory(5)
	require.NoError(t, err)
	m.Center = center.Exact(model.NewAdjustedPosition(model.FromLonLat(0, 0), model.Vec2{X: 100}))
	p := projector.New(projector.KindGlobal, projector.State{Zoom: m.Zoom(), Center: m.Center})
	want := p.Position(m.Center.Pos)

	ast.NoError(m.ZoomIn(p))
	ast.True(m.Center.Pos.Offset.IsZero())
	ast.InDelta(want.Lon(), m.Center.Pos.Position.Lon(), 1e-9)
}

func TestMemoryCenter(t *testing.T) {
	ast := assert.New(t)
	m, err := NewMemory(3)
	require.NoError(t, err)
	p := projector.New(projector.KindGlobal, projector.State{Zoom: 3})

	_, ok := m.Detached(p)
	ast.False(ok)

	m.CenterAt(model.FromLonLat(7, 51))
	pos, ok := m.Detached(p)
	ast.True(ok)
	ast.Equal(model.FromLonLat(7, 51), pos)

	m.FollowMyPosition()
	ast.False(m.Center.IsDetached())
}

func TestVisibleTiles(t *testing.T) {
	tt := []struct {
		name   string
		kind   projector.Kind
		zoom   float64
		pos    model.Position
		width  float64
		height float64
		want   []model.TileID
	}{
		{
			name: "world", zoom: 0, width: 256, height: 256,
			want: []model.TileID{tid(0, 0, 0)},
		},
		{
			name: "zoom 1", zoom: 1, width: 256, height: 256,
			want: []model.TileID{tid(0, 0, 1), tid(1, 0, 1), tid(0, 1, 1), tid(1, 1, 1)},
		},
		{
			name: "corner", zoom: 3, width: 100, height: 100,
			want: []model.TileID{tid(3, 3, 3), tid(4, 3, 3), tid(3, 4, 3), tid(4, 4, 3)},
		},
		{
			name: "inside one tile", zoom: 3, width: 10, height: 10, pos: model.FromLonLat(22.5, 20),
			want: []model.TileID{tid(4, 3, 3)},
		},
		{
			name: "local", kind: projector.KindLocal, zoom: 3, width: 100, height: 100,
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			ast := assert.New(t)
			p := projector.New(tc.kind, projector.State{Zoom: tc.zoom, MyPosition: tc.pos})
			p.SetViewport(model.RectFromSize(tc.width, tc.height))
			got := VisibleTiles(p, uint8(tc.zoom), 256)
			ast.ElementsMatch(tc.want, got)
		})
	}
}

func TestStoreEvictsOldest(t *testing.T) {
	ast := assert.New(t)
	s := NewStore(2)
	a := model.TileID{X: 0, Y: 0, Zoom: 1}
	b := model.TileID{X: 1, Y: 0, Zoom: 1}
	c := model.TileID{X: 0, Y: 1, Zoom: 1}

	s.Put(a, texture())
	s.Put(b, texture())
	s.Put(a, texture())
	ast.Equal(2, s.Len())
	s.Put(c, texture())

	ast.Equal(2, s.Len())
	ast.False(s.Has(a))
	ast.True(s.Has(b))
	ast.True(s.Has(c))
}

func TestFrameRequestsAndDrains(t *testing.T) {
	ast := assert.New(t)
	v, err := New(testConfig(), osm)
	require.NoError(t, err)
	now := time.Now()

	st := v.Frame(FrameInput{Now: now})
	ast.Positive(st.Visible)
	ast.Equal(st.Visible, st.Requested)
	ast.Len(v.requests, st.Requested)

	// requested tiles are pending
	st = v.Frame(FrameInput{Now: now.Add(time.Second)})
	ast.Equal(0, st.Requested)
	ast.False(st.Repaint)

	id := <-v.requests
	v.Results() <- download.Result{Tile: id, Texture: texture()}
	st = v.Frame(FrameInput{Now: now.Add(2 * time.Second)})
	ast.Equal(1, st.Received)
	ast.True(st.Repaint)
	_, ok := v.Tile(id)
	ast.True(ok)

	state := v.State()
	ast.Equal(1, state.Stored)
	ast.Equal(st.Visible-1, state.Pending)
	ast.Contains(state.Visible, id.String())
	ast.EqualValues(3, state.Frames)
}

func TestFrameRetriesLostRequests(t *testing.T) {
	ast := assert.New(t)
	cfg := testConfig()
	cfg.Retry = 5 * time.Second
	v, err := New(cfg, osm)
	require.NoError(t, err)
	now := time.Now()

	first := v.Frame(FrameInput{Now: now})
	for range first.Requested {
		<-v.requests
	}
	st := v.Frame(FrameInput{Now: now.Add(6 * time.Second)})
	ast.Equal(first.Requested, st.Requested)
}

func TestDragAndGlide(t *testing.T) {
	ast := assert.New(t)
	v, err := New(testConfig(), osm)
	require.NoError(t, err)
	now := time.Now()

	v.Drag(model.Vec2{X: 10})
	st := v.Tick(now)
	ast.True(st.Moved)
	state := v.State()
	ast.Equal("moving", state.Mode)
	ast.True(state.Detached)
	ast.Less(state.Center.Lon(), 10.0)
	ast.InDelta(50.0, state.Center.Lat(), 1e-9)

	v.Release()
	v.Tick(now.Add(16 * time.Millisecond))
	ast.Equal("inertia", v.State().Mode)

	for i := 1; i <= 10; i++ {
		v.Tick(now.Add(16*time.Millisecond + time.Duration(i)*100*time.Millisecond))
	}
	ast.Equal("exact", v.State().Mode)

	v.FollowMyPosition()
	v.Tick(now.Add(2 * time.Second))
	state = v.State()
	ast.Equal("myposition", state.Mode)
	ast.Equal(model.FromLonLat(10, 50), state.Center)
}

func TestDragAndReleaseBetweenFrames(t *testing.T) {
	ast := assert.New(t)
	v, err := New(testConfig(), osm)
	require.NoError(t, err)
	now := time.Now()

	v.Drag(model.Vec2{Y: 5})
	v.Release()
	v.Tick(now)
	ast.Equal("moving", v.State().Mode)
	v.Tick(now.Add(10 * time.Millisecond))
	ast.Equal("inertia", v.State().Mode)
}

func TestViewZoom(t *testing.T) {
	ast := assert.New(t)
	v, err := New(testConfig(), osm)
	require.NoError(t, err)

	ast.NoError(v.ZoomIn())
	ast.Equal(11.0, v.State().Zoom)
	ast.NoError(v.ZoomOut())
	ast.NoError(v.ZoomOut())
	ast.Equal(9.0, v.State().Zoom)
	ast.ErrorIs(v.SetZoom(40), ErrInvalidZoom)
	ast.NoError(v.SetZoom(26))
	ast.ErrorIs(v.ZoomIn(), ErrInvalidZoom)
}

func TestRejectedZoomKeepsCenter(t *testing.T) {
	ast := assert.New(t)
	v, err := New(testConfig(), osm)
	require.NoError(t, err)

	v.Drag(model.Vec2{X: 40, Y: -20})
	v.Tick(time.Now())
	before := v.memory.Center
	ast.False(before.Pos.Offset.IsZero())

	ast.ErrorIs(v.SetZoom(40), ErrInvalidZoom)
	ast.Equal(before, v.memory.Center)
	ast.Equal(10.0, v.State().Zoom)

	ast.NoError(v.SetZoom(12.5))
	ast.True(v.memory.Center.Pos.Offset.IsZero())
}

func TestTileZoomLimitedBySource(t *testing.T) {
	ast := assert.New(t)
	cfg := testConfig()
	cfg.Zoom = 20
	v, err := New(cfg, fakeSource{size: 256, maxZoom: 15})
	require.NoError(t, err)

	v.Frame(FrameInput{Now: time.Now()})
	id := <-v.requests
	ast.EqualValues(15, id.Zoom)
}

func TestProjectUnproject(t *testing.T) {
	ast := assert.New(t)
	v, err := New(testConfig(), osm)
	require.NoError(t, err)

	px := v.Project(model.FromLonLat(10, 50))
	ast.InDelta(256, px.X, 1e-6)
	ast.InDelta(256, px.Y, 1e-6)

	v.CenterAt(model.FromLonLat(11, 49))
	pos := v.Unproject(model.Pos2{X: 256, Y: 256})
	ast.InDelta(11, pos.Lon(), 1e-9)
	ast.InDelta(49, pos.Lat(), 1e-9)
}

func TestNewErrors(t *testing.T) {
	ast := assert.New(t)
	cfg := testConfig()
	cfg.Projection = "polar"
	_, err := New(cfg, osm)
	ast.Error(err)

	cfg = testConfig()
	cfg.Zoom = 30
	_, err = New(cfg, osm)
	ast.ErrorIs(err, ErrInvalidZoom)

	cfg = testConfig()
	cfg.Decay.Kind = "quadratic"
	_, err = New(cfg, osm)
	ast.Error(err)
}

func TestRunStops(t *testing.T) {
	cfg := testConfig()
	cfg.FPS = 100
	v, err := New(cfg, osm)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, v.Run(ctx))
	assert.Positive(t, v.State().Frames)
}

type viewCfg Config

func (c viewCfg) GetViewConfig() Config {
	return Config(c)
}

func TestInit(t *testing.T) {
	ast := assert.New(t)
	inj := do.New()
	do.ProvideValue(inj, viewCfg(testConfig()))
	do.ProvideNamedValue[provider.Provider](inj, "fake", osm)

	ast.NoError(Init(inj))
	v := do.MustInvoke[*View](inj)
	ast.Equal("global", v.State().Projection)

	inj = do.New()
	cfg := testConfig()
	cfg.Provider = "unknown"
	do.ProvideValue(inj, viewCfg(cfg))
	ast.Error(Init(inj))
}
