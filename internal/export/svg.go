package export

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/san-kum/pidtune/internal/sim"
)

var ErrEmptyTrajectory = errors.New("trajectory has fewer than two samples")

var (
	pvColor  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	spColor  = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	opColor  = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	posColor = color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff}
)

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

// Plots builds the two stacked panels of a closed-loop response: PV with
// SP on top, controller output with valve position below.
func Plots(tr sim.Trajectory, title string) (*plot.Plot, *plot.Plot, error) {
	if len(tr.T) < 2 {
		return nil, nil, ErrEmptyTrajectory
	}

	top := plot.New()
	top.Title.Text = title
	top.Y.Label.Text = "PV"
	if err := addLine(top, "PV", tr.T, tr.Y, pvColor, false); err != nil {
		return nil, nil, err
	}
	if err := addLine(top, "SP", tr.T, tr.SP, spColor, true); err != nil {
		return nil, nil, err
	}
	top.Legend.Top = true

	bottom := plot.New()
	bottom.X.Label.Text = "time (s)"
	bottom.Y.Label.Text = "%"
	if err := addLine(bottom, "OP", tr.T, tr.U, opColor, false); err != nil {
		return nil, nil, err
	}
	if len(tr.Position) == len(tr.T) {
		if err := addLine(bottom, "valve", tr.T, tr.Position, posColor, true); err != nil {
			return nil, nil, err
		}
	}
	bottom.Legend.Top = true

	for _, p := range []*plot.Plot{top, bottom} {
		p.X.Tick.Marker = limitedTicker(8, "%.4g")
		p.Y.Tick.Marker = limitedTicker(6, "%.3g")
		p.Add(plotter.NewGrid())
	}
	return top, bottom, nil
}

func addLine(p *plot.Plot, name string, xs, ys []float64, c color.Color, dashed bool) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("%s: %d samples for %d times", name, len(ys), len(xs))
	}
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	line.LineStyle.Color = c
	line.LineStyle.Width = vg.Points(1.5)
	if dashed {
		line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
	}
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

// render draws both panels onto c, the response taking two thirds of
// the height.
func render(c vg.CanvasSizer, tr sim.Trajectory, title string) error {
	top, bottom, err := Plots(tr, title)
	if err != nil {
		return err
	}
	dc := draw.New(c)
	h := dc.Max.Y - dc.Min.Y
	split := dc.Min.Y + h/3
	lower, upper := dc, dc
	lower.Max.Y = split
	upper.Min.Y = split
	top.Draw(upper)
	bottom.Draw(lower)
	return nil
}

// WriteSVG renders the trajectory as SVG. Zero sizes use the defaults.
func WriteSVG(w io.Writer, tr sim.Trajectory, title string, width, height vg.Length) error {
	width, height = size(width, height)
	c := vgsvg.New(width, height)
	if err := render(c, tr, title); err != nil {
		return err
	}
	_, err := c.WriteTo(w)
	return err
}

// WritePNG renders the trajectory as a PNG image at the given DPI.
func WritePNG(w io.Writer, tr sim.Trajectory, title string, width, height vg.Length, dpi int) error {
	width, height = size(width, height)
	if dpi <= 0 {
		dpi = 150
	}
	c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
	if err := render(c, tr, title); err != nil {
		return err
	}
	_, err := vgimg.PngCanvas{Canvas: c}.WriteTo(w)
	return err
}

func size(width, height vg.Length) (vg.Length, vg.Length) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return width, height
}

// SaveFile picks the format from the extension, .png or .svg.
func SaveFile(path string, tr sim.Trajectory, title string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".svg" && ext != ".png" {
		return fmt.Errorf("unsupported plot format %q", ext)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if ext == ".png" {
		err = WritePNG(bw, tr, title, 0, 0, 0)
	} else {
		err = WriteSVG(bw, tr, title, 0, 0)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}
