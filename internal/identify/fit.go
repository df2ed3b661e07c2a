package identify

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pidtune/internal/dynamo"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/optim"
	"github.com/san-kum/pidtune/internal/signal"
)

const (
	MinSamplesFOPDT      = 10
	MinSamplesSOPDT      = 12
	MinSamplesIntegrator = 10
)

// FitOptions overrides the default search grids. A nil grid is replaced by
// the default for the data horizon.
type FitOptions struct {
	ThetaGrid []float64 `json:"theta_grid,omitempty" yaml:"theta_grid,omitempty"`
	TauGrid   []float64 `json:"tau_grid,omitempty" yaml:"tau_grid,omitempty"`
	Tau1Grid  []float64 `json:"tau1_grid,omitempty" yaml:"tau1_grid,omitempty"`
	Tau2Grid  []float64 `json:"tau2_grid,omitempty" yaml:"tau2_grid,omitempty"`

	// Refine repeats the search once on a grid spanning one cell either side
	// of the best point, at the same resolution.
	Refine bool `json:"refine" yaml:"refine"`

	// Lead is the number of samples kept ahead of the step by FitEvent. Zero
	// keeps a quarter of the event window.
	Lead int `json:"lead" yaml:"lead"`
}

type Stats struct {
	RSS float64 `json:"rss"`
	N   int     `json:"n"`
	R2  float64 `json:"r2"`
}

// FitResult is the best model found and the fitted curve. Y0 is the fitted
// baseline, YF the last fitted value. T0 and Du describe the step used.
type FitResult struct {
	Model model.Model `json:"-"`
	SSE   float64     `json:"sse"`
	YHat  []float64   `json:"yhat"`
	T0    float64     `json:"t0"`
	Du    float64     `json:"du"`
	Y0    float64     `json:"y0"`
	YF    float64     `json:"yf"`
	Stats Stats       `json:"stats"`
}

// stepData is the part of a step test shared by all fitters.
type stepData struct {
	t, y      []float64
	k0        int
	t0, du    float64
	pre, post float64
	horizon   float64
	dt        float64
}

func prepare(s dynamo.Series, kind model.Kind, minSamples int) (stepData, error) {
	if err := s.Validate(); err != nil {
		return stepData{}, err
	}
	n := s.Len()
	if n < minSamples {
		return stepData{}, &dynamo.FitError{Model: string(kind), N: n, Min: minSamples, Wrapped: dynamo.ErrInsufficientData}
	}

	k0, du := signal.LargestStep(s.U)
	t0 := s.T[k0]
	if k0+1 < n {
		t0 = s.T[k0+1]
	}

	return stepData{
		t:       s.T,
		y:       s.Y,
		k0:      k0,
		t0:      t0,
		du:      du,
		post:    medianSegment(s.Y, int(0.8*float64(n)), n),
		horizon: s.T[n-1] - s.T[0],
		dt:      signal.MedianStep(s.T),
	}, nil
}

// medianSegment is the median of y[start:end], or of all of y when the
// segment is empty.
func medianSegment(y []float64, start, end int) float64 {
	start = max(0, start)
	end = min(len(y), end)
	if end <= start {
		return signal.Median(y)
	}
	return signal.Median(y[start:end])
}

// fallbackDu replaces a vanishing input step with the direction of the
// output change so that the gain keeps its meaning.
func (d *stepData) fallbackDu() {
	if math.Abs(d.du) < 1e-12 {
		d.du = signal.Sign(d.post - d.pre)
	}
}

// signCorrect flips k when the fitted response moves against the observed
// change in steady state.
func (d *stepData) signCorrect(k float64) float64 {
	want := signal.Sign(d.post - d.pre)
	got := signal.Sign(k * d.du)
	if want != 0 && got != 0 && want != got {
		return -k
	}
	return k
}

func (d *stepData) thetaGrid(n int) []float64 {
	return signal.Linspace(0, math.Min(0.6*d.horizon, math.Max(d.dt, d.horizon/2)), n)
}

func orDefault(grid, def []float64) []float64 {
	if len(grid) > 0 {
		return grid
	}
	return def
}

// search runs the grid and, if asked, one refinement pass around the best
// point. The refined point is used only when it is strictly better.
func search(ctx context.Context, g *optim.GridSearch, refine bool, cost func([]float64) (float64, error)) ([]float64, error) {
	best, val, err := g.Minimize(ctx, cost)
	if err != nil {
		return nil, err
	}
	if !refine {
		return best, nil
	}
	fine, fineVal, err := g.Neighbourhood(best).Minimize(ctx, cost)
	if err != nil {
		return nil, err
	}
	if fineVal < val {
		return fine, nil
	}
	return best, nil
}

func newResult(d *stepData, m model.Model, yhat []float64, sse, y0 float64) *FitResult {
	return &FitResult{
		Model: m,
		SSE:   sse,
		YHat:  yhat,
		T0:    d.t0,
		Du:    d.du,
		Y0:    y0,
		YF:    yhat[len(yhat)-1],
		Stats: fitStats(d.y, sse),
	}
}

func fitStats(y []float64, rss float64) Stats {
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	var tss float64
	for _, v := range y {
		tss += (v - mean) * (v - mean)
	}
	return Stats{RSS: rss, N: len(y), R2: 1 - rss/(tss+1e-12)}
}

func curve(g []float64, du, k, y0 float64) []float64 {
	out := make([]float64, len(g))
	for i, gi := range g {
		out[i] = y0 + du*k*gi
	}
	return out
}

// FitFOPDT fits y ≈ y0 + K*du*(1 - exp(-(t-t0-theta)/tau)) to a step test.
func FitFOPDT(ctx context.Context, s dynamo.Series, opts FitOptions) (*FitResult, error) {
	d, err := prepare(s, model.KindFOPDT, MinSamplesFOPDT)
	if err != nil {
		return nil, err
	}
	d.pre = medianSegment(d.y, 0, d.k0)
	d.fallbackDu()

	g := optim.NewGridSearch([]string{"theta", "tau"}, [][]float64{
		orDefault(opts.ThetaGrid, d.thetaGrid(25)),
		orDefault(opts.TauGrid, signal.Geomspace(math.Max(d.dt, d.horizon/50), math.Max(5*d.dt, 2*d.horizon), 40)),
	})

	kern := make([]float64, len(d.t))
	x := make([]float64, len(d.t))
	best, err := search(ctx, g, opts.Refine, func(p []float64) (float64, error) {
		fopdtKernel(kern, d.t, d.t0+p[0], p[1])
		_, _, sse := profile(x, kern, d.y, d.du)
		return sse, nil
	})
	if err != nil {
		return nil, err
	}

	theta, tau := best[0], best[1]
	fopdtKernel(kern, d.t, d.t0+theta, tau)
	k, y0, sse := profile(x, kern, d.y, d.du)
	yhat := curve(kern, d.du, k, y0)

	m := model.FOPDT{K: d.signCorrect(k), Tau: tau, Theta: theta}
	return newResult(&d, m, yhat, sse, y0), nil
}

// FitSOPDT fits a two-pole step response. Grid points with tau1 < tau2 are
// evaluated with the poles swapped, so the result always has Tau1 >= Tau2.
func FitSOPDT(ctx context.Context, s dynamo.Series, opts FitOptions) (*FitResult, error) {
	d, err := prepare(s, model.KindSOPDT, MinSamplesSOPDT)
	if err != nil {
		return nil, err
	}
	d.pre = medianSegment(d.y, 0, max(1, d.k0))
	d.fallbackDu()

	g := optim.NewGridSearch([]string{"theta", "tau1", "tau2"}, [][]float64{
		orDefault(opts.ThetaGrid, d.thetaGrid(24)),
		orDefault(opts.Tau1Grid, signal.Geomspace(math.Max(d.dt, d.horizon/50), math.Max(5*d.dt, 2*d.horizon), 28)),
		orDefault(opts.Tau2Grid, signal.Geomspace(math.Max(d.dt, d.horizon/80), math.Max(3*d.dt, d.horizon), 24)),
	})

	kern := make([]float64, len(d.t))
	x := make([]float64, len(d.t))
	best, err := search(ctx, g, opts.Refine, func(p []float64) (float64, error) {
		tau1, tau2 := ordered(p[1], p[2])
		sopdtKernel(kern, d.t, d.t0+p[0], tau1, tau2)
		_, _, sse := profile(x, kern, d.y, d.du)
		return sse, nil
	})
	if err != nil {
		return nil, err
	}

	theta := best[0]
	tau1, tau2 := ordered(best[1], best[2])
	sopdtKernel(kern, d.t, d.t0+theta, tau1, tau2)
	k, y0, sse := profile(x, kern, d.y, d.du)
	yhat := curve(kern, d.du, k, y0)

	m := model.SOPDT{K: d.signCorrect(k), Tau1: tau1, Tau2: tau2, Theta: theta}
	return newResult(&d, m, yhat, sse, y0), nil
}

func ordered(tau1, tau2 float64) (float64, float64) {
	if tau1 < tau2 {
		return tau2, tau1
	}
	return tau1, tau2
}

// FitIntegrator fits a ramp y ≈ y0 + k'*du*max(0, t-t0-theta). The slope is
// returned as an Integrator with Ki = 1 and K = k'.
func FitIntegrator(ctx context.Context, s dynamo.Series, opts FitOptions) (*FitResult, error) {
	d, err := prepare(s, model.KindIntegrator, MinSamplesIntegrator)
	if err != nil {
		return nil, err
	}
	d.pre = medianSegment(d.y, 0, max(1, d.k0))
	if math.Abs(d.du) < 1e-12 {
		return nil, fmt.Errorf("integrator fit: %w", dynamo.ErrNoStep)
	}

	g := optim.NewGridSearch([]string{"theta"}, [][]float64{
		orDefault(opts.ThetaGrid, d.thetaGrid(40)),
	})

	kern := make([]float64, len(d.t))
	x := make([]float64, len(d.t))
	best, err := search(ctx, g, opts.Refine, func(p []float64) (float64, error) {
		rampKernel(kern, d.t, d.t0+p[0])
		_, _, sse := profile(x, kern, d.y, d.du)
		return sse, nil
	})
	if err != nil {
		return nil, err
	}

	theta := best[0]
	rampKernel(kern, d.t, d.t0+theta)
	kprime, y0, sse := profile(x, kern, d.y, d.du)
	yhat := curve(kern, d.du, kprime, y0)

	m := model.Integrator{K: d.signCorrect(kprime), Ki: 1, Theta: theta}
	return newResult(&d, m, yhat, sse, y0), nil
}

// Fit dispatches to the fitter for kind.
func Fit(ctx context.Context, s dynamo.Series, kind model.Kind, opts FitOptions) (*FitResult, error) {
	switch kind {
	case model.KindFOPDT:
		return FitFOPDT(ctx, s, opts)
	case model.KindSOPDT:
		return FitSOPDT(ctx, s, opts)
	case model.KindIntegrator:
		return FitIntegrator(ctx, s, opts)
	}
	return nil, fmt.Errorf("%w: unknown model type %q", dynamo.ErrInvalidModel, kind)
}

// FitEvent fits the window of s around one detected step, as chosen by
// EventWindow with opts.Lead.
func FitEvent(ctx context.Context, s dynamo.Series, ev dynamo.StepEvent, kind model.Kind, opts FitOptions) (*FitResult, error) {
	return Fit(ctx, EventWindow(s, ev, opts.Lead), kind, opts)
}

// EventWindow cuts s to [Index0-lead, Index1). An Index1 that is missing or
// out of range means the end of s, and lead <= 0 means a quarter of the
// event length, at least one sample.
func EventWindow(s dynamo.Series, ev dynamo.StepEvent, lead int) dynamo.Series {
	end := ev.Index1
	if end <= ev.Index0 || end > s.Len() {
		end = s.Len()
	}
	if lead <= 0 {
		lead = max(1, (end-ev.Index0)/4)
	}
	return s.Slice(ev.Index0-lead, end)
}

// FitAll fits every model kind and returns the results ordered by kind,
// skipping kinds whose fit failed. The error is non-nil only when every
// fit failed.
func FitAll(ctx context.Context, s dynamo.Series, opts FitOptions) ([]*FitResult, error) {
	var out []*FitResult
	var lastErr error
	for _, kind := range []model.Kind{model.KindFOPDT, model.KindSOPDT, model.KindIntegrator} {
		res, err := Fit(ctx, s, kind, opts)
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, res)
	}
	if len(out) == 0 {
		return nil, lastErr
	}
	return out, nil
}

// Best returns the result with the lowest SSE.
func Best(results []*FitResult) *FitResult {
	var best *FitResult
	for _, r := range results {
		if best == nil || r.SSE < best.SSE {
			best = r
		}
	}
	return best
}
