package internal

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/willie68/go_mapview/internal/config"
	"github.com/willie68/go_mapview/internal/download"
	"github.com/willie68/go_mapview/internal/logging"
	"github.com/willie68/go_mapview/internal/mapview"
	"github.com/willie68/go_mapview/internal/measurement"
	"github.com/willie68/go_mapview/internal/provider"
	"github.com/willie68/go_mapview/internal/shttp"
)

var log = logging.New("internal")

// Init wires all services of the map view into the injector
func Init(inj do.Injector) error {
	config.Init(inj)
	if err := logging.Init(inj); err != nil {
		return fmt.Errorf("can't init logging: %w", err)
	}
	measurement.Init(inj)
	if err := provider.Init(inj); err != nil {
		return fmt.Errorf("can't init providers: %w", err)
	}
	if err := download.Init(inj); err != nil {
		return fmt.Errorf("can't init http client: %w", err)
	}
	if err := mapview.Init(inj); err != nil {
		return fmt.Errorf("can't init view: %w", err)
	}
	initScheduler(inj)
	shttp.Init(inj)
	return nil
}

// initScheduler the scheduler downloads the tiles of the view's provider and
// repaints the view on every delivery
func initScheduler(inj do.Injector) {
	cfg := do.MustInvoke[*config.Config](inj)
	client := do.MustInvoke[*download.Client](inj)
	view := do.MustInvoke[*mapview.View](inj)
	src := do.MustInvokeNamed[provider.Provider](inj, cfg.View.Provider)

	s := download.New(src, client.Client, cfg.HTTP.UserAgent,
		download.WithRepaint(view.RequestRepaint),
		download.WithMetrics(do.MustInvoke[*measurement.Service](inj)),
		download.WithTimeout(cfg.HTTP.Timeout),
	)
	do.ProvideValue(inj, s)
}

// Stop closes the http client, the file based providers and the log outputs
func Stop(inj do.Injector) {
	if err := do.Shutdown[*download.Client](inj); err != nil {
		log.Error(fmt.Sprintf("error on close http client: %v", err))
	}
	if err := do.Shutdown[*provider.Factory](inj); err != nil {
		log.Error(fmt.Sprintf("error on close providers: %v", err))
	}
	if err := do.Shutdown[*logging.Service](inj); err != nil {
		log.Error(fmt.Sprintf("error on close logging: %v", err))
	}
}
