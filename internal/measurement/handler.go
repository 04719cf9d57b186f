package measurement

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Routes metrics api: list all points, reset all or a single point
func (s *Service) Routes() *chi.Mux {
	router := chi.NewRouter()
	router.Get("/", s.getMetricsHandler)
	router.Post("/reset", s.resetMetricsHandler)
	router.Post("/reset/{name}", s.resetPointHandler)
	return router
}

func (s *Service) getMetricsHandler(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, s.Datas())
}

func (s *Service) resetMetricsHandler(w http.ResponseWriter, r *http.Request) {
	s.Reset()
	render.NoContent(w, r)
}

func (s *Service) resetPointHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.Point(name).Reset()
	render.NoContent(w, r)
}
