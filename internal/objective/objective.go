package objective

import (
	"fmt"
	"math"
	"sort"
)

// Bounds is the closed search interval applied independently to both axes.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Width returns the length of the interval.
func (b Bounds) Width() float64 {
	return b.Max - b.Min
}

// Clamp restricts v to the interval.
func (b Bounds) Clamp(v float64) float64 {
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Function is a registry entry: a two-dimensional objective to minimize,
// its default search domain, and the contour levels a visualizer should
// draw. Eval must be pure and deterministic; lower values are better.
type Function struct {
	Name          string
	Eval          func(x, y float64) float64
	Bounds        Bounds
	ContourLevels []float64
}

// DefaultFunction is the registry entry used when the caller does not
// choose one explicitly.
const DefaultFunction = "sphere"

var registry = map[string]Function{
	"sphere": {
		Name: "Sphere",
		Eval: func(x, y float64) float64 {
			return x*x + y*y
		},
		Bounds:        Bounds{Min: -10, Max: 10},
		ContourLevels: []float64{1, 5, 10, 25, 50, 100, 150},
	},
	"rosenbrock": {
		Name: "Rosenbrock",
		Eval: func(x, y float64) float64 {
			return (1-x)*(1-x) + 100*(y-x*x)*(y-x*x)
		},
		Bounds:        Bounds{Min: -2, Max: 2},
		ContourLevels: []float64{1, 10, 50, 100, 500, 1000, 2500},
	},
	"ackley": {
		Name: "Ackley",
		Eval: func(x, y float64) float64 {
			return -20*math.Exp(-0.2*math.Sqrt((x*x+y*y)/2)) -
				math.Exp((math.Cos(2*math.Pi*x)+math.Cos(2*math.Pi*y))/2) +
				20 + math.E
		},
		Bounds:        Bounds{Min: -5, Max: 5},
		ContourLevels: []float64{1, 2, 4, 6, 8, 10, 12},
	},
	"rastrigin": {
		Name: "Rastrigin",
		Eval: func(x, y float64) float64 {
			return 20 +
				(x*x - 10*math.Cos(2*math.Pi*x)) +
				(y*y - 10*math.Cos(2*math.Pi*y))
		},
		Bounds:        Bounds{Min: -5.12, Max: 5.12},
		ContourLevels: []float64{5, 10, 20, 30, 40, 60, 80},
	},
}

// Lookup returns the registry entry for the given identifier.
// An unknown identifier is a configuration error, not a runtime condition.
func Lookup(functionType string) (Function, error) {
	fn, ok := registry[functionType]
	if !ok {
		return Function{}, fmt.Errorf("unknown objective function: %q (available: %v)", functionType, Names())
	}
	return fn, nil
}

// Names returns the registered identifiers in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
