package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	flag "github.com/spf13/pflag"
	"github.com/willie68/go_mapview/configs"
	"github.com/willie68/go_mapview/internal"
	"github.com/willie68/go_mapview/internal/api"
	"github.com/willie68/go_mapview/internal/config"
	"github.com/willie68/go_mapview/internal/download"
	"github.com/willie68/go_mapview/internal/logging"
	"github.com/willie68/go_mapview/internal/mapview"
	"github.com/willie68/go_mapview/internal/model"
	"github.com/willie68/go_mapview/internal/prefetch"
	"github.com/willie68/go_mapview/internal/provider"
	"github.com/willie68/go_mapview/internal/shttp"
	"github.com/willie68/go_mapview/pkg/extstrgutils"
	"github.com/willie68/go_mapview/pkg/fileutils"
	"golang.org/x/sync/errgroup"
)

var (
	log          *slog.Logger
	configFile   string
	showVersion  bool
	initConfig   bool
	port         int
	providerName string
	position     string
	pfZoom       int
	pfRadius     int
)

func init() {
	flag.BoolVarP(&initConfig, "init", "i", false, "init config, writes out a default config.")
	flag.BoolVarP(&showVersion, "version", "v", false, "showing the version")
	flag.StringVarP(&configFile, "config", "c", "config.yaml", "this is the path and filename to the config file")
	flag.IntVarP(&port, "port", "p", 0, "overwrite the port (8580) of the config")
	flag.StringVar(&providerName, "provider", "", "overwrite the provider of the view")
	flag.StringVar(&position, "position", "", "the live position as \"lon,lat\"")
	flag.IntVarP(&pfZoom, "zoom", "z", -1, "max zoom for prefetch tiles around the position, -1 no prefetching")
	flag.IntVarP(&pfRadius, "radius", "r", 2, "prefetch radius in tiles")
	flag.Usage = func() {
		fmt.Printf("Usage of %s:\n", os.Args[0])
		fmt.Println("more on https://github.com/willie68/go_mapview")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("examples:")
		fmt.Println("write the default config, add your providers and run")
		fmt.Printf("%s -i > config.yaml\n", os.Args[0])
		fmt.Printf("%s -c config.yaml\n", os.Args[0])
		fmt.Println("show another provider at a given position")
		fmt.Printf("%s -c config.yaml --provider topo --position \"7.1,50.7\"\n", os.Args[0])
		fmt.Println("fill the http cache with the tiles around the position up to zoom 12, switch caching on in the config first")
		fmt.Printf("%s -c config.yaml -z 12 -r 3\n", os.Args[0])
	}
}

func main() {
	flag.Parse()
	if showVersion {
		fmt.Println(config.NewVersion().String())
		os.Exit(0)
	}
	if initConfig {
		fmt.Println(configs.ConfigFile)
		os.Exit(0)
	}
	if !fileutils.FileExists(configFile) {
		fmt.Fprint(os.Stderr, "no config given or dosn't exists.\r\n\r\n")
		showUsage()
		os.Exit(1)
	}
	err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	pos, err := parsePosition(position)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\r\n\r\n", err)
		showUsage()
		os.Exit(1)
	}
	config.SetParameter(config.WithPort(port), config.WithProvider(providerName), config.WithPosition(pos))
	js := config.JSON()
	if js == "" {
		panic("error on marshal config to json")
	}
	fmt.Printf("Config:\n%s\n", js)

	inj := do.New()
	if err := internal.Init(inj); err != nil {
		fmt.Fprintf(os.Stderr, "can't start: %v\r\n", err)
		os.Exit(1)
	}
	log = logging.New("main")
	log.Info("starting map view")

	router, err := api.APIRoutes(inj)
	if err != nil {
		log.Error(fmt.Sprintf("could not create api routes: %v", err))
		os.Exit(1)
	}
	healthRouter := api.HealthRoutes(inj)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, shutdown := context.WithCancelCause(context.Background())
	defer shutdown(nil)
	context.AfterFunc(sigCtx, func() { shutdown(download.ErrShutdown) })

	if pfZoom >= 0 {
		prefetchTiles(ctx, inj)
	}

	sh := do.MustInvoke[*shttp.SHttp](inj)
	if err := sh.StartServers(router, healthRouter); err != nil {
		log.Error(fmt.Sprintf("could not start servers: %v", err))
		os.Exit(1)
	}

	view := do.MustInvoke[*mapview.View](inj)
	scheduler := do.MustInvoke[*download.Scheduler](inj)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scheduler.RunContinuously(gctx, view.Requests(), view.Results())
		return nil
	})
	g.Go(func() error {
		return view.Run(gctx)
	})

	log.Info("waiting for clients")
	if err := g.Wait(); err != nil {
		log.Error(fmt.Sprintf("view stopped with error: %v", err))
	}

	sh.ShutdownServers()
	log.Info("server finished")

	internal.Stop(inj)
	os.Exit(0)
}

func prefetchTiles(ctx context.Context, inj do.Injector) {
	cfg := config.Get()
	client := do.MustInvoke[*download.Client](inj)
	if client.Cache() == nil {
		log.Warn("prefetching without http cache, the tiles are not kept")
	}
	src := do.MustInvokeNamed[provider.Provider](inj, cfg.View.Provider)
	zoom := src.MaxZoom()
	if pfZoom < int(zoom) {
		zoom = uint8(pfZoom)
	}
	tiles := prefetch.Tiles(cfg.View.Position, zoom, uint32(max(pfRadius, 0)))
	if _, err := prefetch.Prefetch(ctx, src, client.Client, cfg.HTTP.UserAgent, tiles); err != nil {
		log.Error(fmt.Sprintf("prefetch stopped: %v", err))
	}
}

func parsePosition(s string) (*model.Position, error) {
	if s == "" {
		return nil, nil
	}
	fs, err := extstrgutils.ParseFloats(s, 2)
	if err != nil {
		return nil, fmt.Errorf("invalid position: %w", err)
	}
	pos := model.FromLonLat(fs[0], fs[1])
	return &pos, nil
}

func showUsage() {
	flag.Usage()
}
