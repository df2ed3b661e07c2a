package optim

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestGridSearchSize(t *testing.T) {
	g := NewGridSearch([]string{"a", "b"}, [][]float64{{1, 2, 3}, {4, 5}})
	if g.Size() != 6 {
		t.Errorf("expected 6 points, got %d", g.Size())
	}

	n := 0
	var first []float64
	for x := range g.Points() {
		if n == 0 {
			first = append([]float64(nil), x...)
		}
		n++
	}
	if n != 6 {
		t.Errorf("expected 6 iterations, got %d", n)
	}
	if first[0] != 1 || first[1] != 4 {
		t.Errorf("unexpected first point %v", first)
	}

	if NewGridSearch(nil, nil).Size() != 0 {
		t.Error("empty grid should have no points")
	}
}

func TestMinimizeFindsQuadraticMinimum(t *testing.T) {
	g := NewGridSearch([]string{"x", "y"}, [][]float64{
		{-2, -1, 0, 1, 2},
		{-2, -1, 0, 1, 2},
	})

	x, best, err := g.Minimize(context.Background(), func(x []float64) (float64, error) {
		return (x[0]-1)*(x[0]-1) + (x[1]+2)*(x[1]+2), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if x[0] != 1 || x[1] != -2 || best != 0 {
		t.Errorf("got %v cost %f", x, best)
	}
}

func TestMinimizeKeepsFirstOnTies(t *testing.T) {
	g := NewGridSearch([]string{"x"}, [][]float64{{-1, 0, 1}})
	x, _, err := g.Minimize(context.Background(), func(x []float64) (float64, error) {
		return math.Abs(x[0]), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if x[0] != 0 {
		t.Errorf("expected 0, got %f", x[0])
	}

	x, _, _ = g.Minimize(context.Background(), func([]float64) (float64, error) { return 1, nil })
	if x[0] != -1 {
		t.Errorf("expected first point on a flat cost, got %f", x[0])
	}
}

func TestMinimizeSkipsFailures(t *testing.T) {
	g := NewGridSearch([]string{"x"}, [][]float64{{1, 2, 3}})
	x, best, err := g.Minimize(context.Background(), func(x []float64) (float64, error) {
		switch x[0] {
		case 1:
			return math.NaN(), nil
		case 2:
			return 0, errors.New("bad")
		}
		return 7, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if x[0] != 3 || best != 7 {
		t.Errorf("got %v cost %f", x, best)
	}

	_, _, err = g.Minimize(context.Background(), func([]float64) (float64, error) { return math.NaN(), nil })
	if !errors.Is(err, ErrNoFeasiblePoint) {
		t.Errorf("expected ErrNoFeasiblePoint, got %v", err)
	}
}

func TestMinimizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGridSearch([]string{"x"}, [][]float64{{1, 2}})
	_, _, err := g.Minimize(ctx, func([]float64) (float64, error) { return 0, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSearchNamed(t *testing.T) {
	g := NewGridSearch([]string{"Kp", "Ti"}, [][]float64{{1, 2, 3}, {5, 10}})
	params, best, err := g.Search(context.Background(), func(p map[string]float64) (float64, error) {
		return math.Abs(p["Kp"]-2) + math.Abs(p["Ti"]-10), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if params["Kp"] != 2 || params["Ti"] != 10 || best != 0 {
		t.Errorf("got %v cost %f", params, best)
	}
}

func TestNeighbourhood(t *testing.T) {
	g := NewGridSearch([]string{"x", "y"}, [][]float64{{0, 1, 2, 3, 4}, {7}})
	n := g.Neighbourhood([]float64{2, 7})

	r := n.ranges[0]
	if len(r) != 5 || r[0] != 1 || r[4] != 3 {
		t.Errorf("unexpected refined axis %v", r)
	}
	if len(n.ranges[1]) != 1 || n.ranges[1][0] != 7 {
		t.Errorf("single-valued axis should be kept, got %v", n.ranges[1])
	}

	edge := g.Neighbourhood([]float64{0, 7}).ranges[0]
	if edge[0] != 0 || edge[4] != 1 {
		t.Errorf("edge neighbourhood should clip to the grid, got %v", edge)
	}
}
