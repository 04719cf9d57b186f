package mapview

import (
	"sync"
	"time"

	"github.com/willie68/go_mapview/internal/download"
	"github.com/willie68/go_mapview/internal/model"
	"github.com/willie68/go_mapview/internal/projector"
)

// maxVisible limits the flood fill for huge viewports
const maxVisible = 1024

// VisibleTiles collects the tiles intersecting the viewport, starting with the
// tile under the anchor and walking to the neighbours until a tile is out of
// sight. Projections without a tile grid have no visible tiles.
func VisibleTiles(p projector.Projector, zoom uint8, sourceTileSize uint32) []model.TileID {
	first, ok := p.TileID(p.Anchor(), zoom, sourceTileSize)
	if !ok {
		return nil
	}
	n := uint32(1) << first.Zoom
	size := projector.TotalPixels(p.Zoom()) / float64(n)
	viewport := p.Viewport()

	visited := map[model.TileID]bool{first: true}
	queue := []model.TileID{first}
	tiles := make([]model.TileID, 0)
	for len(queue) > 0 && len(tiles) < maxVisible {
		t := queue[0]
		queue = queue[1:]
		if !TileRect(p, t, size).Intersects(viewport) {
			continue
		}
		tiles = append(tiles, t)
		for _, nb := range neighbours(t, n) {
			if !visited[nb] {
				visited[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	return tiles
}

// TileRect the screen rect of a tile with the given size in bitmap pixels
func TileRect(p projector.Projector, t model.TileID, size float64) model.Rect {
	tl := p.BitmapToScreen(model.Pos2{X: float64(t.X) * size, Y: float64(t.Y) * size})
	return model.Rect{Min: tl, Max: tl.Add(model.Vec2{X: size, Y: size})}
}

func neighbours(t model.TileID, n uint32) []model.TileID {
	nbs := make([]model.TileID, 0, 4)
	if t.X > 0 {
		nbs = append(nbs, model.TileID{X: t.X - 1, Y: t.Y, Zoom: t.Zoom})
	}
	if t.X+1 < n {
		nbs = append(nbs, model.TileID{X: t.X + 1, Y: t.Y, Zoom: t.Zoom})
	}
	if t.Y > 0 {
		nbs = append(nbs, model.TileID{X: t.X, Y: t.Y - 1, Zoom: t.Zoom})
	}
	if t.Y+1 < n {
		nbs = append(nbs, model.TileID{X: t.X, Y: t.Y + 1, Zoom: t.Zoom})
	}
	return nbs
}

// Store holds the received textures. If more than max tiles are stored, the
// oldest ones are evicted first.
type Store struct {
	lock     sync.RWMutex
	max      int
	textures map[model.TileID]*download.Texture
	order    []model.TileID
}

func NewStore(max int) *Store {
	return &Store{
		max:      max,
		textures: make(map[model.TileID]*download.Texture),
	}
}

func (s *Store) Put(id model.TileID, t *download.Texture) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.textures[id]; !ok {
		s.order = append(s.order, id)
	}
	s.textures[id] = t
	for s.max > 0 && len(s.order) > s.max {
		delete(s.textures, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Store) Get(id model.TileID) (*download.Texture, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	t, ok := s.textures[id]
	return t, ok
}

func (s *Store) Has(id model.TileID) bool {
	_, ok := s.Get(id)
	return ok
}

func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.textures)
}

// pending tiles requested but not yet received. A failed download never
// comes back, so a request expires and may be repeated after retry.
type pending struct {
	retry time.Duration
	tiles map[model.TileID]time.Time
}

func newPending(retry time.Duration) *pending {
	return &pending{retry: retry, tiles: make(map[model.TileID]time.Time)}
}

func (p *pending) due(id model.TileID, now time.Time) bool {
	at, ok := p.tiles[id]
	return !ok || now.Sub(at) >= p.retry
}

func (p *pending) add(id model.TileID, now time.Time) {
	p.tiles[id] = now
}

func (p *pending) done(id model.TileID) {
	delete(p.tiles, id)
}

func (p *pending) len() int {
	return len(p.tiles)
}
