// Package measurement collects timings of named points, e.g. tile downloads.
package measurement

import (
	"slices"
	"strings"
	"sync"

	"github.com/samber/do/v2"
)

// Service holds all measure points. An inactive service hands out monitors
// which measure nothing.
type Service struct {
	active bool
	plock  sync.Mutex
	points map[string]*Point
}

type Data struct {
	Name      string `json:"name"`
	Min       int64  `json:"min"`
	Max       int64  `json:"max"`
	Average   int64  `json:"average"`
	Total     int64  `json:"total"`
	Count     int    `json:"count"`
	Errors    int    `json:"errors"`
	Active    int    `json:"active"`
	MaxActive int    `json:"maxActive"`
}

type Config struct {
	Active bool `yaml:"active"`
}

type metricsConfig interface {
	GetMetricsConfig() Config
}

// Init provides the measurement service
func Init(inj do.Injector) {
	do.ProvideValue(inj, New(do.MustInvokeAs[metricsConfig](inj).GetMetricsConfig().Active))
}

func New(active bool) *Service {
	return &Service{
		active: active,
		points: make(map[string]*Point),
	}
}

// Start starts a new monitor of the named point
func (s *Service) Start(name string) Monitor {
	m := s.Point(name).Monitor()
	m.Start()
	return m
}

func (s *Service) Point(name string) *Point {
	s.plock.Lock()
	defer s.plock.Unlock()
	p, ok := s.points[name]
	if !ok {
		p = NewPoint(name, s.active)
		s.points[name] = p
	}
	return p
}

func (s *Service) Datas() []Data {
	s.plock.Lock()
	datas := make([]Data, 0, len(s.points))
	for _, v := range s.points {
		datas = append(datas, v.Data())
	}
	s.plock.Unlock()
	slices.SortFunc(datas, func(d1, d2 Data) int {
		return strings.Compare(d1.Name, d2.Name)
	})
	return datas
}

func (s *Service) Reset() {
	s.plock.Lock()
	defer s.plock.Unlock()
	for _, v := range s.points {
		v.Reset()
	}
}
