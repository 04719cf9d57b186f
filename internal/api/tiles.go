package api

import (
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/samber/do/v2"
	"github.com/willie68/go_mapview/internal/download"
	"github.com/willie68/go_mapview/internal/logging"
	"github.com/willie68/go_mapview/internal/mapview"
	"github.com/willie68/go_mapview/internal/measurement"
	"github.com/willie68/go_mapview/internal/model"
	"github.com/willie68/go_mapview/internal/provider"
)

type tileStore interface {
	Tile(id model.TileID) (*download.Texture, bool)
}

// TilesHandler serves the tiles delivered to the view, re-encoded as png
type TilesHandler struct {
	log     *slog.Logger
	tiles   tileStore
	metrics *measurement.Service
}

func NewTilesHandler(inj do.Injector) (*TilesHandler, error) {
	v, err := do.Invoke[*mapview.View](inj)
	if err != nil {
		return nil, err
	}
	metrics, err := do.Invoke[*measurement.Service](inj)
	if err != nil {
		metrics = measurement.New(false)
	}
	return &TilesHandler{
		log:     logging.New("api"),
		tiles:   v,
		metrics: metrics,
	}, nil
}

func (h *TilesHandler) Routes() (string, *chi.Mux) {
	router := chi.NewRouter()
	router.Get("/{z}/{x}/{y}.png", h.GetTile)
	return "/tiles", router
}

func (h *TilesHandler) GetTile(w http.ResponseWriter, r *http.Request) {
	td := h.metrics.Start("getTile")
	defer td.Stop()

	// URL: /api/v1/tiles/{z}/{x}/{y}.png
	h.log.Debug(fmt.Sprintf("path: %s", r.URL.Path))
	id, err := h.getRequestParameter(r)
	if err != nil {
		td.SetError()
		http.Error(w, fmt.Sprintf("Path error: %s", err.Error()), http.StatusBadRequest)
		return
	}

	tex, ok := h.tiles.Tile(id)
	if !ok {
		http.Error(w, fmt.Sprintf("tile %s not loaded", id), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, tex.Image); err != nil {
		td.SetError()
		h.log.Error(fmt.Sprintf("can't encode tile %s: %v", id, err))
	}
}

func (h *TilesHandler) getRequestParameter(r *http.Request) (id model.TileID, err error) {
	zs := chi.URLParam(r, "z")
	xs := chi.URLParam(r, "x")
	ys := chi.URLParam(r, "y")

	z, err := strconv.ParseUint(zs, 10, 8)
	if err != nil {
		return id, errors.New("error in zoom level")
	}
	x, err := strconv.ParseUint(xs, 10, 32)
	if err != nil {
		return id, errors.New("error in x axis")
	}
	ys = strings.TrimSuffix(ys, filepath.Ext(ys))
	y, err := strconv.ParseUint(ys, 10, 32)
	if err != nil {
		return id, errors.New("error in y axis")
	}
	id = model.TileID{X: uint32(x), Y: uint32(y), Zoom: uint8(z)}
	if !id.Valid() {
		return id, errors.New("invalid tile coordinates")
	}
	return id, nil
}

type providerInfo struct {
	Name        string `json:"name"`
	TileSize    uint32 `json:"tileSize"`
	MaxZoom     uint8  `json:"maxZoom"`
	Attribution string `json:"attribution"`
}

type providerFactory interface {
	Names() []string
	Provider(name string) (provider.Provider, error)
}

// ProvidersHandler lists the configured tile providers
type ProvidersHandler struct {
	factory providerFactory
}

func NewProvidersHandler(inj do.Injector) (*ProvidersHandler, error) {
	f, err := do.InvokeAs[providerFactory](inj)
	if err != nil {
		return nil, err
	}
	return &ProvidersHandler{factory: f}, nil
}

func (h *ProvidersHandler) Routes() (string, *chi.Mux) {
	router := chi.NewRouter()
	router.Get("/", h.GetProviders)
	router.Get("/{name}", h.GetProvider)
	return "/providers", router
}

func (h *ProvidersHandler) GetProviders(w http.ResponseWriter, r *http.Request) {
	infos := make([]providerInfo, 0)
	for _, n := range h.factory.Names() {
		if p, err := h.factory.Provider(n); err == nil {
			infos = append(infos, info(p))
		}
	}
	render.JSON(w, r, infos)
}

func (h *ProvidersHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	p, err := h.factory.Provider(chi.URLParam(r, "name"))
	if err != nil {
		renderError(w, r, http.StatusNotFound, err)
		return
	}
	render.JSON(w, r, info(p))
}

func info(p provider.Provider) providerInfo {
	return providerInfo{
		Name:        p.Name(),
		TileSize:    p.TileSize(),
		MaxZoom:     p.MaxZoom(),
		Attribution: p.Attribution(),
	}
}
