// Package shttp runs the http servers of the service, the api and the
// health server on their own ports.
package shttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/samber/do/v2"
	"github.com/willie68/go_mapview/internal/logging"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Port       int
	HealthPort int
}

type serverConfig interface {
	GetServerConfig() Config
}

type SHttp struct {
	log     *slog.Logger
	cfg     Config
	lock    sync.Mutex
	servers []*http.Server
	addrs   []net.Addr
	wg      sync.WaitGroup
}

func Init(inj do.Injector) {
	do.ProvideValue(inj, New(do.MustInvokeAs[serverConfig](inj).GetServerConfig()))
}

func New(cfg Config) *SHttp {
	return &SHttp{
		log: logging.New("shttp"),
		cfg: cfg,
	}
}

// StartServers starts the api server and, if a health port is configured,
// the health server. Without a health port the health routes are mounted
// into the api router.
func (s *SHttp) StartServers(router, healthRouter http.Handler) error {
	if s.cfg.HealthPort <= 0 && healthRouter != nil {
		mux := http.NewServeMux()
		mux.Handle("/health/", healthRouter)
		mux.Handle("/", router)
		router = mux
		healthRouter = nil
	}
	if err := s.start("api", s.cfg.Port, router); err != nil {
		return err
	}
	if healthRouter != nil {
		if err := s.start("health", s.cfg.HealthPort, healthRouter); err != nil {
			s.ShutdownServers()
			return err
		}
	}
	return nil
}

func (s *SHttp) start(name string, port int, handler http.Handler) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("can't listen for %s server: %w", name, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.lock.Lock()
	s.servers = append(s.servers, srv)
	s.addrs = append(s.addrs, ln.Addr())
	s.lock.Unlock()

	s.log.Info(fmt.Sprintf("starting %s server on %s", name, ln.Addr().String()))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(fmt.Sprintf("%s server stopped: %v", name, err))
		}
	}()
	return nil
}

// Addrs the listening addresses, api first
func (s *SHttp) Addrs() []net.Addr {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]net.Addr(nil), s.addrs...)
}

// ShutdownServers stops all servers gracefully
func (s *SHttp) ShutdownServers() {
	s.lock.Lock()
	servers := s.servers
	s.servers = nil
	s.addrs = nil
	s.lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			s.log.Error(fmt.Sprintf("error on shutdown: %v", err))
		}
	}
	s.wg.Wait()
}
