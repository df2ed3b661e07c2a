package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/pidtune/internal/sim"
)

// Portrait is a set of (X, Y) points for a 2D plot.
type Portrait struct {
	XLabel, YLabel string
	Points         []struct{ X, Y float64 }
}

// PVOP plots the process value against the controller output from time
// from onwards. A sticking valve traces a parallelogram: OP moves while PV
// stays put, then PV jumps.
func PVOP(tr sim.Trajectory, from float64) *Portrait {
	p := &Portrait{XLabel: "OP", YLabel: "PV"}
	for i, t := range tr.T {
		if t < from || i >= len(tr.U) || i >= len(tr.Y) {
			continue
		}
		p.Points = append(p.Points, struct{ X, Y float64 }{X: tr.U[i], Y: tr.Y[i]})
	}
	return p
}

// ASCII renders the portrait on a width by height character grid.
func (p *Portrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX = math.Min(minX, pt.X)
		maxX = math.Max(maxX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxY = math.Max(maxY, pt.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	for _, pt := range p.Points {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteRune('│')
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	sb.WriteString("└" + strings.Repeat("─", width) + "\n")
	sb.WriteString(" " + p.XLabel + " →   ↑ " + p.YLabel + "\n")
	return sb.String()
}

// Report is the diagnosis of one run.
type Report struct {
	Oscillation Oscillation `json:"oscillation"`
	Portrait    *Portrait   `json:"-"`
}

// Analyze checks the control error of tr from time from onwards.
func Analyze(tr sim.Trajectory, from float64, opts OscillationOptions) (*Report, error) {
	var t, e []float64
	for i, ti := range tr.T {
		if ti < from {
			continue
		}
		t = append(t, ti)
		e = append(e, tr.SP[i]-tr.Y[i])
	}
	osc, err := DetectOscillation(t, e, opts)
	if err != nil {
		return nil, err
	}
	return &Report{Oscillation: osc, Portrait: PVOP(tr, from)}, nil
}
