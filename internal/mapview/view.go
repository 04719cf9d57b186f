// Package mapview drives the map: it keeps zoom and center between frames,
// applies drag input, computes the visible tiles and exchanges tile requests
// and downloaded tiles with the download scheduler.
package mapview

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/do/v2"
	"github.com/willie68/go_mapview/internal/center"
	"github.com/willie68/go_mapview/internal/download"
	"github.com/willie68/go_mapview/internal/logging"
	"github.com/willie68/go_mapview/internal/model"
	"github.com/willie68/go_mapview/internal/projector"
	"github.com/willie68/go_mapview/internal/provider"
)

const (
	defaultFPS      = 30
	defaultMaxTiles = 512
	defaultRetry    = 30 * time.Second
	requestBuffer   = 64
)

type Config struct {
	// Provider name of the tile provider to show
	Provider   string `yaml:"provider"`
	Projection string `yaml:"projection"` // global or local
	// Position the initial live position
	Position model.Position     `yaml:"position"`
	Zoom     float64            `yaml:"zoom"`
	Width    int                `yaml:"width"`
	Height   int                `yaml:"height"`
	FPS      int                `yaml:"fps"`
	MaxTiles int                `yaml:"maxtiles"`
	Retry    time.Duration      `yaml:"retry"`
	Decay    center.DecayConfig `yaml:"decay"`
}

// Source is the tile source the view requests tiles for
type Source interface {
	TileSize() uint32
	MaxZoom() uint8
}

type viewConfig interface {
	GetViewConfig() Config
}

// FrameInput the input of one frame
type FrameInput struct {
	Drag center.DragInput
	Now  time.Time
}

// FrameStats what happened in a frame
type FrameStats struct {
	Moved     bool
	Visible   int
	Requested int
	Received  int
	// Repaint the frame changed something visible
	Repaint bool
}

// State a snapshot of the view
type State struct {
	Projection          string         `json:"projection"`
	Mode                string         `json:"mode"`
	Detached            bool           `json:"detached"`
	Center              model.Position `json:"center"`
	MyPosition          model.Position `json:"myPosition"`
	Zoom                float64        `json:"zoom"`
	Viewport            model.Rect     `json:"viewport"`
	ScalePixelsPerMeter float64        `json:"scalePixelsPerMeter"`
	Visible             []string       `json:"visible"`
	Stored              int            `json:"stored"`
	Pending             int            `json:"pending"`
	Frames              uint64         `json:"frames"`
}

type dragState struct {
	held     bool
	released bool
	delta    model.Vec2
}

// View is the host of one map. All methods are safe for concurrent use, the
// frames are driven by Run or by calling Tick/Frame directly.
type View struct {
	log        *slog.Logger
	lock       sync.Mutex
	kind       projector.Kind
	source     Source
	memory     Memory
	myPosition model.Position
	viewport   model.Rect
	decay      center.Decay
	fps        int
	drag       dragState
	last       time.Time
	frames     uint64
	visible    []model.TileID

	requests chan model.TileID
	results  chan download.Result
	store    *Store
	pending  *pending
	repaint  atomic.Bool
}

// Init provides the view for the configured provider
func Init(inj do.Injector) error {
	cfg := do.MustInvokeAs[viewConfig](inj).GetViewConfig()
	src, err := do.InvokeNamed[provider.Provider](inj, cfg.Provider)
	if err != nil {
		return fmt.Errorf("unknown provider %q: %w", cfg.Provider, err)
	}
	v, err := New(cfg, src)
	if err != nil {
		return err
	}
	do.ProvideValue(inj, v)
	return nil
}

func New(cfg Config, source Source) (*View, error) {
	kind, err := projector.ParseKind(cfg.Projection)
	if err != nil {
		return nil, err
	}
	memory, err := NewMemory(cfg.Zoom)
	if err != nil {
		return nil, fmt.Errorf("zoom %.2f: %w", cfg.Zoom, err)
	}
	decay, err := center.NewDecay(cfg.Decay)
	if err != nil {
		return nil, err
	}
	if cfg.FPS <= 0 {
		cfg.FPS = defaultFPS
	}
	if cfg.MaxTiles <= 0 {
		cfg.MaxTiles = defaultMaxTiles
	}
	if cfg.Retry <= 0 {
		cfg.Retry = defaultRetry
	}
	return &View{
		log:        logging.New("mapview"),
		kind:       kind,
		source:     source,
		memory:     memory,
		myPosition: cfg.Position,
		viewport:   model.RectFromSize(float64(cfg.Width), float64(cfg.Height)),
		decay:      decay,
		fps:        cfg.FPS,
		requests:   make(chan model.TileID, requestBuffer),
		results:    make(chan download.Result, download.MaxInFlight),
		store:      NewStore(cfg.MaxTiles),
		pending:    newPending(cfg.Retry),
	}, nil
}

// Requests the tile requests for the download scheduler
func (v *View) Requests() <-chan model.TileID {
	return v.requests
}

// Results the channel the download scheduler delivers to
func (v *View) Results() chan<- download.Result {
	return v.results
}

// RequestRepaint marks the next frame for repaint, used as the scheduler's
// repaint hook.
func (v *View) RequestRepaint() {
	v.repaint.Store(true)
}

// Run drives the frames with the configured rate until the context is done
func (v *View) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(v.fps))
	defer ticker.Stop()
	v.log.Info(fmt.Sprintf("view running with %d fps, projection %s", v.fps, v.kind))
	for {
		select {
		case <-ctx.Done():
			v.log.Info("view stopped")
			return nil
		case now := <-ticker.C:
			v.Tick(now)
		}
	}
}

// Tick runs a frame with the drag input collected since the last frame
func (v *View) Tick(now time.Time) FrameStats {
	v.lock.Lock()
	in := FrameInput{Drag: v.takeDrag(), Now: now}
	v.lock.Unlock()
	return v.Frame(in)
}

func (v *View) takeDrag() center.DragInput {
	var in center.DragInput
	d := &v.drag
	switch {
	case d.held || !d.delta.IsZero():
		in.Dragging = true
		in.Delta = d.delta
		d.delta = model.Vec2{}
	case d.released:
		in.Stopped = true
		d.released = false
	}
	return in
}

// Frame updates the center, takes over the delivered tiles and requests the
// visible ones not yet stored.
func (v *View) Frame(in FrameInput) FrameStats {
	v.lock.Lock()
	defer v.lock.Unlock()

	var dt time.Duration
	if !v.last.IsZero() {
		dt = in.Now.Sub(v.last)
	}
	v.last = in.Now
	v.frames++

	var st FrameStats
	c, _ := v.memory.Center.RecalculateDrag(in.Drag, v.myPosition)
	c = center.ApplyDecay(c, v.decay, dt)
	c, st.Moved = c.UpdateMovement()
	v.memory.Center = c

	p := v.projector()
	st.Received = v.drain()
	st.Visible, st.Requested = v.request(p, in.Now)
	st.Repaint = v.repaint.Swap(false) || st.Moved || st.Received > 0
	return st
}

func (v *View) projector() projector.Projector {
	p := projector.New(v.kind, projector.State{
		Zoom:       v.memory.Zoom(),
		Center:     v.memory.Center,
		MyPosition: v.myPosition,
	})
	p.SetViewport(v.viewport)
	return p
}

func (v *View) drain() int {
	n := 0
	for {
		select {
		case r := <-v.results:
			v.store.Put(r.Tile, r.Texture)
			v.pending.done(r.Tile)
			n++
		default:
			return n
		}
	}
}

func (v *View) tileZoom() uint8 {
	z := uint8(math.Round(v.memory.Zoom()))
	if v.source != nil && z > v.source.MaxZoom() {
		z = v.source.MaxZoom()
	}
	return z
}

func (v *View) request(p projector.Projector, now time.Time) (int, int) {
	if v.source == nil {
		v.visible = nil
		return 0, 0
	}
	v.visible = VisibleTiles(p, v.tileZoom(), v.source.TileSize())
	requested := 0
	for _, id := range v.visible {
		if v.store.Has(id) || !v.pending.due(id, now) {
			continue
		}
		select {
		case v.requests <- id:
			v.pending.add(id, now)
			requested++
		default:
			// queue full, the tile is requested again in a later frame
			return len(v.visible), requested
		}
	}
	return len(v.visible), requested
}

// Drag moves the map by the pixel delta, the map keeps held until Release
func (v *View) Drag(delta model.Vec2) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.drag.held = true
	v.drag.released = false
	v.drag.delta = v.drag.delta.Add(delta)
}

// Release ends a drag, the map glides out
func (v *View) Release() {
	v.lock.Lock()
	defer v.lock.Unlock()
	if v.drag.held {
		v.drag.held = false
		v.drag.released = true
	}
}

func (v *View) ZoomIn() error {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.memory.ZoomIn(v.projector())
}

func (v *View) ZoomOut() error {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.memory.ZoomOut(v.projector())
}

func (v *View) SetZoom(zoom float64) error {
	v.lock.Lock()
	defer v.lock.Unlock()
	if !validZoom(zoom) {
		return ErrInvalidZoom
	}
	v.memory.Center = v.memory.Center.ZeroOffset(v.projector())
	return v.memory.SetZoom(zoom)
}

func (v *View) FollowMyPosition() {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.memory.FollowMyPosition()
}

func (v *View) CenterAt(pos model.Position) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.memory.CenterAt(pos)
}

// SetMyPosition updates the live position
func (v *View) SetMyPosition(pos model.Position) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.myPosition = pos
}

func (v *View) SetViewport(width, height int) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.viewport = model.RectFromSize(float64(width), float64(height))
}

// Unproject the world position under the screen pixel
func (v *View) Unproject(px model.Pos2) model.Position {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.projector().Unproject(px)
}

func (v *View) Project(pos model.Position) model.Pos2 {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.projector().Project(pos)
}

// Tile a stored tile texture
func (v *View) Tile(id model.TileID) (*download.Texture, bool) {
	return v.store.Get(id)
}

func (v *View) State() State {
	v.lock.Lock()
	defer v.lock.Unlock()
	p := v.projector()
	anchor := p.Anchor()
	visible := make([]string, 0, len(v.visible))
	for _, id := range v.visible {
		visible = append(visible, id.String())
	}
	return State{
		Projection:          v.kind.String(),
		Mode:                v.memory.Center.Mode.String(),
		Detached:            v.memory.Center.IsDetached(),
		Center:              anchor,
		MyPosition:          v.myPosition,
		Zoom:                v.memory.Zoom(),
		Viewport:            v.viewport,
		ScalePixelsPerMeter: p.ScalePixelsPerMeter(anchor),
		Visible:             visible,
		Stored:              v.store.Len(),
		Pending:             v.pending.len(),
		Frames:              v.frames,
	}
}
