// Package prefetch warms the http cache with the tiles around a position, so
// the map can be used offline afterwards.
package prefetch

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/willie68/go_mapview/internal/download"
	"github.com/willie68/go_mapview/internal/logging"
	"github.com/willie68/go_mapview/internal/model"
)

// MaxZoom the deepest zoom level prefetched, deeper levels are capped
const MaxZoom = 30

var log = logging.New("prefetch")

// Stats result of a prefetch run
type Stats struct {
	Tiles  int
	Loaded int
	Failed int
}

// Tiles the tiles of all zoom levels up to maxZoom, which are at most radius
// tiles away from the tile containing the position.
func Tiles(pos model.Position, maxZoom uint8, radius uint32) []model.TileID {
	maxZoom = min(maxZoom, MaxZoom)
	tiles := make([]model.TileID, 0)
	for z := range maxZoom + 1 {
		c := maptile.At(orb.Point{pos.Lon(), pos.Lat()}, maptile.Zoom(z))
		n := uint32(1) << z
		x0, x1 := span(c.X, radius, n)
		y0, y1 := span(c.Y, radius, n)
		for x := x0; x <= x1; x++ {
			for y := y0; y <= y1; y++ {
				tiles = append(tiles, model.TileID{X: x, Y: y, Zoom: z})
			}
		}
	}
	return tiles
}

func span(c, radius, n uint32) (uint32, uint32) {
	lo := uint32(0)
	if c > radius {
		lo = c - radius
	}
	hi := c + radius
	if hi >= n {
		hi = n - 1
	}
	return lo, hi
}

// Prefetch downloads the tiles with at most download.MaxInFlight parallel
// downloads. The decoded tiles are dropped, only the caching transport of
// the client keeps them.
func Prefetch(ctx context.Context, src download.Source, client *http.Client, userAgent string, tiles []model.TileID) (Stats, error) {
	st := Stats{Tiles: len(tiles)}
	if len(tiles) == 0 {
		return st, nil
	}
	var finished, failed atomic.Int32
	all := make(chan struct{})
	fetcher := download.NewHTTPFetcher(client, userAgent, log)
	counting := func(ctx context.Context, id model.TileID, url string) (*download.Texture, error) {
		tex, err := fetcher.Fetch(ctx, id, url)
		if err != nil {
			failed.Add(1)
		}
		if int(finished.Add(1)) == len(tiles) {
			close(all)
		}
		return tex, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s := download.New(src, client, userAgent, download.WithFetcher(counting), download.WithLogger(log))
	requests := make(chan model.TileID)
	results := make(chan download.Result, download.MaxInFlight)
	done := make(chan error, 1)
	go func() {
		done <- s.Run(runCtx, requests, results)
	}()
	go func() {
		for range results {
		}
	}()

	log.Info(fmt.Sprintf("prefetching %d tiles", len(tiles)))
	for _, t := range tiles {
		select {
		case requests <- t:
		case <-ctx.Done():
			cancel()
			<-done
			close(results)
			return st, ctx.Err()
		}
	}

	select {
	case <-all:
	case <-ctx.Done():
	}
	cancel()
	<-done
	close(results)

	st.Failed = int(failed.Load())
	st.Loaded = int(finished.Load()) - st.Failed
	log.Info(fmt.Sprintf("prefetch done, %d loaded, %d failed", st.Loaded, st.Failed))
	return st, ctx.Err()
}
