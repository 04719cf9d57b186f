// Package download fetches map tiles continuously. A single loop takes tile
// requests from a channel, runs at most MaxInFlight downloads at the same time
// and hands decoded tiles over to a result channel.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/willie68/go_mapview/internal/logging"
	"github.com/willie68/go_mapview/internal/measurement"
	"github.com/willie68/go_mapview/internal/model"
)

// MaxInFlight is the maximum number of concurrent downloads
const MaxInFlight = 6

const (
	pointDownload = "download"
	pointDeliver  = "deliver"
)

// Source supplies the url of a tile
type Source interface {
	TileURL(id model.TileID) string
}

// Result a downloaded and decoded tile
type Result struct {
	Tile    model.TileID
	Texture *Texture
}

type state int

const (
	stateIdle state = iota
	stateFilling
	stateSaturated
)

func (s state) String() string {
	return [...]string{"idle", "filling", "saturated"}[s]
}

// download is one finished unit of work, reported by its task
type download struct {
	seq     uint64
	tile    model.TileID
	url     string
	texture *Texture
	err     error
}

// Scheduler runs the download loop. The in flight set is owned by the loop,
// tasks report back via the done channel only.
type Scheduler struct {
	log      *slog.Logger
	source   Source
	fetch    Fetcher
	repaint  func()
	metrics  *measurement.Service
	timeout  time.Duration
	done     chan download
	inflight map[uint64]model.TileID
	seq      uint64
}

type Option func(s *Scheduler)

// WithFetcher replaces the http download, e.g. for offline sources or tests
func WithFetcher(f Fetcher) Option {
	return func(s *Scheduler) {
		s.fetch = f
	}
}

// WithRepaint is called after every delivered tile
func WithRepaint(repaint func()) Option {
	return func(s *Scheduler) {
		s.repaint = repaint
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) {
		s.log = log
	}
}

func WithMetrics(m *measurement.Service) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithTimeout limits a single download, 0 disables the limit
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// New creates a scheduler downloading with the given client and user agent
func New(source Source, client *http.Client, userAgent string, opts ...Option) *Scheduler {
	s := &Scheduler{
		log:      logging.New("download"),
		source:   source,
		metrics:  measurement.New(false),
		done:     make(chan download, MaxInFlight),
		inflight: make(map[uint64]model.TileID, MaxInFlight),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetch == nil {
		s.fetch = NewHTTPFetcher(client, userAgent, s.log).Fetch
	}
	return s
}

func (s *Scheduler) state() state {
	switch n := len(s.inflight); {
	case n == 0:
		return stateIdle
	case n < MaxInFlight:
		return stateFilling
	}
	return stateSaturated
}

// Run downloads the requested tiles until the request channel is closed or
// the context is done. Failed downloads are logged and dropped, they are
// never retried. While MaxInFlight downloads are running, no requests are
// taken from the channel, so they queue up on the producer side.
func (s *Scheduler) Run(ctx context.Context, requests <-chan model.TileID, results chan<- Result) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for {
		switch s.state() {
		case stateIdle:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case id, ok := <-requests:
				if !ok {
					return ErrRequestsClosed
				}
				s.start(ctx, id)
			}
		case stateFilling:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case id, ok := <-requests:
				if !ok {
					return ErrRequestsClosed
				}
				s.start(ctx, id)
			case d := <-s.done:
				if err := s.complete(ctx, d, results); err != nil {
					return err
				}
			}
		case stateSaturated:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case d := <-s.done:
				if err := s.complete(ctx, d, results); err != nil {
					return err
				}
			}
		}
	}
}

// RunContinuously runs the loop and reports its end once. Only a context
// cancelled with ErrShutdown as cause is a regular stop, any other
// cancellation means the receiver of the tiles is gone.
func (s *Scheduler) RunContinuously(ctx context.Context, requests <-chan model.TileID, results chan<- Result) {
	err := s.Run(ctx, requests, results)
	if cause := context.Cause(ctx); cause != nil {
		if errors.Is(cause, ErrShutdown) {
			s.log.Info("tile download stopped")
			return
		}
		err = cause
	}
	s.log.Error(fmt.Sprintf("tile download loop ended: %v", err))
}

func (s *Scheduler) start(ctx context.Context, id model.TileID) {
	s.seq++
	seq := s.seq
	url := s.source.TileURL(id)
	s.inflight[seq] = id
	s.log.Debug(fmt.Sprintf("downloading '%s'", url))

	go func() {
		tctx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			tctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		m := s.metrics.Start(pointDownload)
		tex, err := s.fetch(tctx, id, url)
		if err != nil {
			m.SetError()
		}
		m.Stop()
		// done has room for every task in flight, so this never blocks
		s.done <- download{seq: seq, tile: id, url: url, texture: tex, err: err}
	}()
}

func (s *Scheduler) complete(ctx context.Context, d download, results chan<- Result) error {
	delete(s.inflight, d.seq)
	if d.err != nil {
		s.log.Warn(fmt.Sprintf("%s download of tile %s failed: %v", Classify(d.err), d.tile, d.err))
		return nil
	}

	m := s.metrics.Start(pointDeliver)
	defer m.Stop()
	select {
	case results <- Result{Tile: d.tile, Texture: d.texture}:
	case <-ctx.Done():
		m.SetError()
		return ctx.Err()
	}
	if s.repaint != nil {
		s.repaint()
	}
	return nil
}
