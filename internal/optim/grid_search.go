package optim

import (
	"context"
	"errors"
	"iter"
	"math"
)

var ErrNoFeasiblePoint = errors.New("optim: no grid point produced a finite cost")

// GridSearch enumerates the cartesian product of one value list per named
// axis. The first axis varies slowest.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

func (g *GridSearch) Names() []string { return g.paramNames }

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	if len(g.ranges) == 0 {
		return 0
	}
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Points yields every grid point. The yielded slice is reused between
// iterations; copy it to keep it.
func (g *GridSearch) Points() iter.Seq[[]float64] {
	return func(yield func([]float64) bool) {
		if g.Size() == 0 {
			return
		}
		current := make([]float64, len(g.ranges))
		g.walk(0, current, yield)
	}
}

func (g *GridSearch) walk(depth int, current []float64, yield func([]float64) bool) bool {
	if depth == len(g.ranges) {
		return yield(current)
	}
	for _, val := range g.ranges[depth] {
		current[depth] = val
		if !g.walk(depth+1, current, yield) {
			return false
		}
	}
	return true
}

// Minimize evaluates cost at every grid point and returns the point with the
// lowest finite cost. The first point wins ties. Points whose cost errors or
// is NaN are skipped.
func (g *GridSearch) Minimize(ctx context.Context, cost func(x []float64) (float64, error)) ([]float64, float64, error) {
	best := math.Inf(1)
	var bestX []float64

	i := 0
	for x := range g.Points() {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, math.Inf(1), err
			}
		}
		i++

		val, err := cost(x)
		if err != nil || math.IsNaN(val) {
			continue
		}
		if val < best || bestX == nil {
			best = val
			bestX = append(bestX[:0], x...)
		}
	}
	if bestX == nil {
		return nil, math.Inf(1), ErrNoFeasiblePoint
	}
	return bestX, best, nil
}

// Search is Minimize with named parameters.
func (g *GridSearch) Search(
	ctx context.Context,
	objective func(params map[string]float64) (float64, error),
) (map[string]float64, float64, error) {
	x, best, err := g.Minimize(ctx, func(x []float64) (float64, error) {
		return objective(g.named(x))
	})
	if err != nil {
		return nil, best, err
	}
	return g.named(x), best, nil
}

func (g *GridSearch) named(x []float64) map[string]float64 {
	params := make(map[string]float64, len(x))
	for i, name := range g.paramNames {
		params[name] = x[i]
	}
	return params
}

// Neighbourhood returns, for each axis, the values spanning one cell either
// side of x, resampled at the same number of points as the original axis.
// Axes whose value is not on the grid keep their original range.
func (g *GridSearch) Neighbourhood(x []float64) *GridSearch {
	ranges := make([][]float64, len(g.ranges))
	for i, r := range g.ranges {
		ranges[i] = r
		k := indexOf(r, x[i])
		if k < 0 || len(r) < 2 {
			continue
		}
		lo, hi := r[max(0, k-1)], r[min(len(r)-1, k+1)]
		if lo == hi {
			continue
		}
		refined := make([]float64, len(r))
		step := (hi - lo) / float64(len(r)-1)
		for j := range refined {
			refined[j] = lo + float64(j)*step
		}
		refined[len(r)-1] = hi
		ranges[i] = refined
	}
	return NewGridSearch(g.paramNames, ranges)
}

func indexOf(r []float64, v float64) int {
	for i, x := range r {
		if x == v {
			return i
		}
	}
	return -1
}
