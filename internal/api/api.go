// Package api is the http surface of the service: it drives the map view and
// serves the delivered tiles and the metrics.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/samber/do/v2"
	"github.com/willie68/go_mapview/internal/logging"
	"github.com/willie68/go_mapview/internal/measurement"
)

// defining all sub pathes for api v1
const (
	// APIVersion the actual implemented api version
	APIVersion = "1"
	baseURL    = "/api/v" + APIVersion
)

var logger = logging.New("api")

// Handler a http REST interface handler
type Handler interface {
	// Routes get the routes
	Routes() (string, *chi.Mux)
}

type errResponse struct {
	Error string `json:"error"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, errResponse{Error: err.Error()})
}

// APIRoutes the routes of the api server
func APIRoutes(inj do.Injector) (*chi.Mux, error) {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	vh, err := NewViewHandler(inj)
	if err != nil {
		return nil, err
	}
	th, err := NewTilesHandler(inj)
	if err != nil {
		return nil, err
	}
	ph, err := NewProvidersHandler(inj)
	if err != nil {
		return nil, err
	}
	for _, h := range []Handler{vh, th, ph} {
		path, sub := h.Routes()
		router.Mount(baseURL+path, sub)
	}
	if metrics, err := do.Invoke[*measurement.Service](inj); err == nil {
		router.Mount(baseURL+"/metrics", metrics.Routes())
	}

	_ = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		logger.Debug("api route: " + method + " " + route)
		return nil
	})
	return router, nil
}

// HealthRoutes liveness and readiness of the service
func HealthRoutes(inj do.Injector) *chi.Mux {
	router := chi.NewRouter()
	router.Get("/health/livez", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	router.Get("/health/readyz", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{}
		code := http.StatusOK
		for name, err := range inj.HealthCheck() {
			if err != nil {
				status[name] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if code == http.StatusOK {
			status["status"] = "ok"
		}
		render.Status(r, code)
		render.JSON(w, r, status)
	})
	return router
}
