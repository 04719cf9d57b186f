package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/samber/do/v2"
	"github.com/willie68/go_mapview/internal/logging"
	"github.com/willie68/go_mapview/internal/mapview"
	"github.com/willie68/go_mapview/internal/model"
)

type ViewHandler struct {
	log  *slog.Logger
	view *mapview.View
}

type zoomRequest struct {
	Zoom float64 `json:"zoom"`
}

type viewportRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func NewViewHandler(inj do.Injector) (*ViewHandler, error) {
	v, err := do.Invoke[*mapview.View](inj)
	if err != nil {
		return nil, err
	}
	return &ViewHandler{
		log:  logging.New("api"),
		view: v,
	}, nil
}

func (h *ViewHandler) Routes() (string, *chi.Mux) {
	router := chi.NewRouter()
	router.Get("/", h.GetState)
	router.Post("/drag", h.PostDrag)
	router.Post("/release", h.PostRelease)
	router.Post("/zoom/in", h.PostZoomIn)
	router.Post("/zoom/out", h.PostZoomOut)
	router.Put("/zoom", h.PutZoom)
	router.Post("/follow", h.PostFollow)
	router.Post("/center", h.PostCenter)
	router.Put("/position", h.PutPosition)
	router.Put("/viewport", h.PutViewport)
	router.Get("/unproject", h.GetUnproject)
	router.Get("/project", h.GetProject)
	return "/view", router
}

func (h *ViewHandler) GetState(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.view.State())
}

// PostDrag body is the pixel delta {"x": 10, "y": -3}, the map keeps held
// until released
func (h *ViewHandler) PostDrag(w http.ResponseWriter, r *http.Request) {
	var delta model.Vec2
	if err := render.DecodeJSON(r.Body, &delta); err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	h.view.Drag(delta)
	render.NoContent(w, r)
}

func (h *ViewHandler) PostRelease(w http.ResponseWriter, r *http.Request) {
	h.view.Release()
	render.NoContent(w, r)
}

func (h *ViewHandler) PostZoomIn(w http.ResponseWriter, r *http.Request) {
	h.zoomResult(w, r, h.view.ZoomIn())
}

func (h *ViewHandler) PostZoomOut(w http.ResponseWriter, r *http.Request) {
	h.zoomResult(w, r, h.view.ZoomOut())
}

func (h *ViewHandler) PutZoom(w http.ResponseWriter, r *http.Request) {
	var zr zoomRequest
	if err := render.DecodeJSON(r.Body, &zr); err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	h.zoomResult(w, r, h.view.SetZoom(zr.Zoom))
}

func (h *ViewHandler) zoomResult(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, mapview.ErrInvalidZoom) {
		renderError(w, r, http.StatusUnprocessableEntity, err)
		return
	}
	if err != nil {
		h.log.Error(fmt.Sprintf("zoom failed: %v", err))
		renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, h.view.State())
}

func (h *ViewHandler) PostFollow(w http.ResponseWriter, r *http.Request) {
	h.view.FollowMyPosition()
	render.JSON(w, r, h.view.State())
}

func (h *ViewHandler) PostCenter(w http.ResponseWriter, r *http.Request) {
	var pos model.Position
	if err := render.DecodeJSON(r.Body, &pos); err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	h.view.CenterAt(pos)
	render.JSON(w, r, h.view.State())
}

// PutPosition sets the live position, e.g. from a location sensor
func (h *ViewHandler) PutPosition(w http.ResponseWriter, r *http.Request) {
	var pos model.Position
	if err := render.DecodeJSON(r.Body, &pos); err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	h.view.SetMyPosition(pos)
	render.NoContent(w, r)
}

func (h *ViewHandler) PutViewport(w http.ResponseWriter, r *http.Request) {
	var vr viewportRequest
	if err := render.DecodeJSON(r.Body, &vr); err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	if vr.Width <= 0 || vr.Height <= 0 {
		renderError(w, r, http.StatusBadRequest, errors.New("width and height must be positive"))
		return
	}
	h.view.SetViewport(vr.Width, vr.Height)
	render.NoContent(w, r)
}

// GetUnproject ?x=&y= screen pixel to world position
func (h *ViewHandler) GetUnproject(w http.ResponseWriter, r *http.Request) {
	x, y, err := queryXY(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	render.JSON(w, r, h.view.Unproject(model.Pos2{X: x, Y: y}))
}

// GetProject ?x=&y= world position to screen pixel
func (h *ViewHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	x, y, err := queryXY(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	render.JSON(w, r, h.view.Project(model.Position{X: x, Y: y}))
}

func queryXY(r *http.Request) (float64, float64, error) {
	q := r.URL.Query()
	x, err := strconv.ParseFloat(q.Get("x"), 64)
	if err != nil {
		return 0, 0, errors.New("error in x")
	}
	y, err := strconv.ParseFloat(q.Get("y"), 64)
	if err != nil {
		return 0, 0, errors.New("error in y")
	}
	return x, y, nil
}
