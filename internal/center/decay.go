package center

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	DecayLinear      = "linear"
	DecayExponential = "exponential"
)

// Decay shrinks the inertia amount between two frames
type Decay interface {
	Next(amount float64, dt time.Duration) float64
}

// LinearDecay reduces the amount by PerSecond per second, so a glide lasts 1/PerSecond seconds
type LinearDecay struct {
	PerSecond float64
}

func (d LinearDecay) Next(amount float64, dt time.Duration) float64 {
	return math.Max(0, amount-d.PerSecond*dt.Seconds())
}

// ExponentialDecay halves the amount every HalfLife and snaps to zero below Cutoff
type ExponentialDecay struct {
	HalfLife time.Duration
	Cutoff   float64
}

func (d ExponentialDecay) Next(amount float64, dt time.Duration) float64 {
	if d.HalfLife <= 0 {
		return 0
	}
	amount *= math.Exp2(-dt.Seconds() / d.HalfLife.Seconds())
	if amount < d.Cutoff {
		return 0
	}
	return amount
}

// DecayConfig configuration of the inertia glide
type DecayConfig struct {
	Kind      string        `yaml:"kind"`
	PerSecond float64       `yaml:"persecond"`
	HalfLife  time.Duration `yaml:"halflife"`
	Cutoff    float64       `yaml:"cutoff"`
}

// DefaultDecay glide of half a second
func DefaultDecay() Decay {
	return LinearDecay{PerSecond: 2.0}
}

func NewDecay(cfg DecayConfig) (Decay, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", DecayLinear:
		if cfg.PerSecond <= 0 {
			return DefaultDecay(), nil
		}
		return LinearDecay{PerSecond: cfg.PerSecond}, nil
	case DecayExponential:
		d := ExponentialDecay{HalfLife: cfg.HalfLife, Cutoff: cfg.Cutoff}
		if d.HalfLife <= 0 {
			d.HalfLife = 150 * time.Millisecond
		}
		if d.Cutoff <= 0 {
			d.Cutoff = 0.05
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown decay kind: %s", cfg.Kind)
}

// ApplyDecay decays the amount of a gliding center, other modes are returned unchanged
func ApplyDecay(c Center, d Decay, dt time.Duration) Center {
	if c.Mode != ModeInertia {
		return c
	}
	c.Amount = d.Next(c.Amount, dt)
	return c
}
