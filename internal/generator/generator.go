// Package generator builds synthetic daily observations for seeding demos.
package generator

import (
	"math"
	"math/rand"
	"time"

	"github.com/open-wbr/wbrdash/internal/model"
)

// Generator produces deterministic synthetic daily metric values. The same
// seed always yields the same rows, so seeded databases are reproducible.
type Generator struct {
	rnd *rand.Rand
}

// Shape controls the synthetic signal.
type Shape struct {
	Base     float64  // weekday baseline
	Weekend  float64  // multiplier applied on Saturday and Sunday
	Growth   float64  // yearly growth rate, e.g. 0.15 for +15%/year
	Season   float64  // amplitude of the yearly seasonal swing, 0..1
	Noise    float64  // relative noise amplitude, 0..1
	Groups   []string // group keys; values are split across them
	GroupMix []float64 // relative share per group, defaults to even
}

// New returns a Generator with a fixed seed.
func New(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// DefaultShape mimics retail foot traffic: weekday baseline, busier
// weekends, mild growth and a summer peak.
func DefaultShape() Shape {
	return Shape{
		Base:    1000,
		Weekend: 1.4,
		Growth:  0.12,
		Season:  0.2,
		Noise:   0.08,
		Groups:  []string{"north", "south"},
	}
}

// Daily produces one observation per day per group over [from, to].
func (g *Generator) Daily(from, to time.Time, shape Shape) []model.Observation {
	from = midnight(from)
	to = midnight(to)
	if to.Before(from) {
		return nil
	}
	groups := shape.Groups
	if len(groups) == 0 {
		groups = []string{""}
	}
	mix := shape.GroupMix
	if len(mix) != len(groups) {
		mix = make([]float64, len(groups))
		for i := range mix {
			mix[i] = 1
		}
	}
	var mixTotal float64
	for _, m := range mix {
		mixTotal += m
	}

	days := int(to.Sub(from).Hours()/24) + 1
	out := make([]model.Observation, 0, days*len(groups))
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		total := g.dayValue(d, from, shape)
		for gi, group := range groups {
			v := total * mix[gi] / mixTotal
			out = append(out, model.Observation{
				Date:  d,
				Value: math.Round(v),
				Group: group,
			})
		}
	}
	return out
}

func (g *Generator) dayValue(d, from time.Time, shape Shape) float64 {
	v := shape.Base
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		v *= shape.Weekend
	}
	years := d.Sub(from).Hours() / 24 / 365.25
	v *= math.Pow(1+shape.Growth, years)
	phase := 2 * math.Pi * float64(d.YearDay()) / 365.25
	v *= 1 + shape.Season*math.Sin(phase-math.Pi/2)
	if shape.Noise > 0 {
		v *= 1 + shape.Noise*(g.rnd.Float64()*2-1)
	}
	if v < 0 {
		v = 0
	}
	return v
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
