package identify

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pidtune/internal/dynamo"
	"github.com/san-kum/pidtune/internal/model"
)

var _ = Describe("FitFOPDT", func() {
	ctx := context.Background()

	Context("with a clean response and a grid containing the true parameters", func() {
		It("recovers the model exactly", func() {
			s := stepTest(1, fopdtResponse(2, 1, 10, 2))
			res, err := FitFOPDT(ctx, s, FitOptions{
				ThetaGrid: []float64{0, 1, 2, 3, 4},
				TauGrid:   []float64{5, 8, 10, 12, 15},
			})
			Expect(err).NotTo(HaveOccurred())

			m := res.Model.(model.FOPDT)
			Expect(m.K).To(BeNumerically("~", 2, 1e-6))
			Expect(m.Tau).To(Equal(10.0))
			Expect(m.Theta).To(Equal(2.0))
			Expect(res.SSE).To(BeNumerically("<", 1e-6))
			Expect(res.T0).To(BeNumerically("~", 20, 1e-9))
			Expect(res.Du).To(Equal(1.0))
			Expect(res.Y0).To(BeNumerically("~", 0, 1e-9))
			Expect(res.YHat).To(HaveLen(s.Len()))
			Expect(res.Stats.N).To(Equal(s.Len()))
			Expect(res.Stats.R2).To(BeNumerically(">", 0.999999))
		})
	})

	Context("with the default grids", func() {
		It("lands within one grid cell of the true model", func() {
			s := stepTest(1, fopdtResponse(2, 1, 10, 2))
			res, err := FitFOPDT(ctx, s, FitOptions{})
			Expect(err).NotTo(HaveOccurred())

			m := res.Model.(model.FOPDT)
			Expect(m.K).To(BeNumerically("~", 2, 0.1))
			Expect(m.Tau).To(BeNumerically("~", 10, 1))
			Expect(m.Theta).To(BeNumerically("~", 2, 1))
			Expect(res.Stats.R2).To(BeNumerically(">", 0.999))
		})
	})

	It("keeps the gain sign of an inverse-acting process", func() {
		s := stepTest(5, fopdtResponse(-1.5, 5, 8, 1))
		res, err := FitFOPDT(ctx, s, FitOptions{})
		Expect(err).NotTo(HaveOccurred())

		m := res.Model.(model.FOPDT)
		Expect(m.K).To(BeNumerically("<", 0))
		Expect(math.Signbit(m.K * res.Du)).To(BeTrue())
	})

	It("refines off-grid dead time when asked", func() {
		s := stepTest(1, fopdtResponse(1, 1, 10, 2.5))
		opts := FitOptions{ThetaGrid: []float64{0, 1, 2, 3, 4}, TauGrid: []float64{10}}

		coarse, err := FitFOPDT(ctx, s, opts)
		Expect(err).NotTo(HaveOccurred())
		opts.Refine = true
		fine, err := FitFOPDT(ctx, s, opts)
		Expect(err).NotTo(HaveOccurred())

		Expect(fine.Model.(model.FOPDT).Theta).To(Equal(2.5))
		Expect(fine.SSE).To(BeNumerically("<", coarse.SSE))
	})

	It("rejects short records", func() {
		s := dynamo.Series{T: []float64{0, 1, 2, 3, 4}, U: []float64{0, 0, 1, 1, 1}, Y: []float64{0, 0, 0, 1, 1}}
		_, err := FitFOPDT(ctx, s, FitOptions{})
		Expect(errors.Is(err, dynamo.ErrInsufficientData)).To(BeTrue())

		var fe *dynamo.FitError
		Expect(errors.As(err, &fe)).To(BeTrue())
		Expect(fe.Min).To(Equal(MinSamplesFOPDT))
		Expect(fe.N).To(Equal(5))
	})

	It("rejects mismatched arrays", func() {
		s := stepTest(1, fopdtResponse(1, 1, 5, 1))
		s.Y = s.Y[:500]
		_, err := FitFOPDT(ctx, s, FitOptions{})
		Expect(err).To(MatchError(dynamo.ErrLengthMismatch))
	})

	It("stops when the context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := FitFOPDT(cctx, stepTest(1, fopdtResponse(1, 1, 5, 1)), FitOptions{})
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("FitSOPDT", func() {
	ctx := context.Background()

	It("recovers both poles", func() {
		s := stepTest(2, sopdtResponse(1.5, 2, 8, 3, 1))
		res, err := FitSOPDT(ctx, s, FitOptions{
			ThetaGrid: []float64{0, 1, 2},
			Tau1Grid:  []float64{4, 8, 12},
			Tau2Grid:  []float64{1, 3, 5},
		})
		Expect(err).NotTo(HaveOccurred())

		m := res.Model.(model.SOPDT)
		Expect(m.K).To(BeNumerically("~", 1.5, 1e-6))
		Expect(m.Tau1).To(Equal(8.0))
		Expect(m.Tau2).To(Equal(3.0))
		Expect(m.Theta).To(Equal(1.0))
		Expect(res.SSE).To(BeNumerically("<", 1e-6))
	})

	It("orders the poles when the grids are swapped", func() {
		s := stepTest(1, sopdtResponse(1, 1, 8, 3, 0))
		res, err := FitSOPDT(ctx, s, FitOptions{
			ThetaGrid: []float64{0},
			Tau1Grid:  []float64{3},
			Tau2Grid:  []float64{8},
		})
		Expect(err).NotTo(HaveOccurred())

		m := res.Model.(model.SOPDT)
		Expect(m.Tau1).To(Equal(8.0))
		Expect(m.Tau2).To(Equal(3.0))
	})

	It("needs twelve samples", func() {
		s := stepTest(1, sopdtResponse(1, 1, 8, 3, 0)).Slice(195, 206)
		_, err := FitSOPDT(ctx, s, FitOptions{})
		Expect(errors.Is(err, dynamo.ErrInsufficientData)).To(BeTrue())
	})
})

var _ = Describe("FitIntegrator", func() {
	ctx := context.Background()

	It("recovers the ramp rate and dead time", func() {
		s := stepTest(2, func(tt float64) float64 {
			return 0.5 * 2 * math.Max(0, tt-2)
		})
		res, err := FitIntegrator(ctx, s, FitOptions{ThetaGrid: []float64{0, 1, 2, 3}})
		Expect(err).NotTo(HaveOccurred())

		m := res.Model.(model.Integrator)
		Expect(m.Slope()).To(BeNumerically("~", 0.5, 1e-9))
		Expect(m.Theta).To(Equal(2.0))
		Expect(res.SSE).To(BeNumerically("<", 1e-9))
	})

	It("reports a flat drive signal", func() {
		s := stepTest(0, func(float64) float64 { return 1 })
		_, err := FitIntegrator(ctx, s, FitOptions{})
		Expect(err).To(MatchError(dynamo.ErrNoStep))
	})

	It("keeps the slope sign of a falling ramp", func() {
		s := stepTest(1, func(tt float64) float64 {
			return -0.2 * math.Max(0, tt-1)
		})
		res, err := FitIntegrator(ctx, s, FitOptions{ThetaGrid: []float64{0, 1, 2}})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Model.(model.Integrator).Slope()).To(BeNumerically("~", -0.2, 1e-9))
	})
})

var _ = Describe("signCorrect", func() {
	It("flips a gain that contradicts the observed change", func() {
		d := stepData{du: 2, pre: 1, post: 4}
		Expect(d.signCorrect(-0.5)).To(Equal(0.5))
		Expect(d.signCorrect(0.5)).To(Equal(0.5))
	})

	It("leaves the gain alone when the output did not move", func() {
		d := stepData{du: 2, pre: 1, post: 1}
		Expect(d.signCorrect(-0.5)).To(Equal(-0.5))
	})
})

var _ = Describe("EventWindow", func() {
	s := stepTest(1, fopdtResponse(2, 1, 5, 1))

	It("starts lead samples before the step and stops at Index1", func() {
		w := EventWindow(s, dynamo.StepEvent{Index0: 200, Index1: 600}, 50)
		Expect(w.Len()).To(Equal(450))
		Expect(w.T[0]).To(Equal(s.T[150]))
	})

	It("defaults the lead to a quarter of the event and runs to the end", func() {
		w := EventWindow(s, dynamo.StepEvent{Index0: 200}, 0)
		Expect(w.T[0]).To(Equal(s.T[200-(1001-200)/4]))
		Expect(w.Len()).To(Equal(1001 - (200 - (1001-200)/4)))
	})

	It("clamps a lead that reaches before the data", func() {
		w := EventWindow(s, dynamo.StepEvent{Index0: 10, Index1: 100}, 50)
		Expect(w.T[0]).To(Equal(s.T[0]))
		Expect(w.Len()).To(Equal(100))
	})
})

var _ = Describe("Fit", func() {
	ctx := context.Background()

	It("dispatches on the model kind", func() {
		s := stepTest(1, fopdtResponse(2, 1, 10, 2))
		res, err := Fit(ctx, s, model.KindFOPDT, FitOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Model.Kind()).To(Equal(model.KindFOPDT))

		_, err = Fit(ctx, s, model.Kind("ARX"), FitOptions{})
		Expect(err).To(MatchError(dynamo.ErrInvalidModel))
	})

	It("prefers the matching structure", func() {
		s := stepTest(1, fopdtResponse(2, 1, 10, 2))
		results, err := FitAll(ctx, s, FitOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		Expect(Best(results).Model.Kind()).NotTo(Equal(model.KindIntegrator))
	})

	It("fits a detected event window", func() {
		s := stepTest(1, fopdtResponse(2, 1, 5, 1))
		events, err := DetectSeriesSteps(s, DefaultStepOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))

		res, err := FitEvent(ctx, s, events[0], model.KindFOPDT, FitOptions{
			ThetaGrid: []float64{0, 1, 2},
			TauGrid:   []float64{2.5, 5, 10},
			Lead:      50,
		})
		Expect(err).NotTo(HaveOccurred())
		m := res.Model.(model.FOPDT)
		Expect(m.K).To(BeNumerically("~", 2, 1e-6))
		Expect(m.Tau).To(Equal(5.0))
		Expect(m.Theta).To(Equal(1.0))
		Expect(len(res.YHat)).To(BeNumerically("<", s.Len()))
	})
})

var _ = Describe("linearFit", func() {
	It("solves an exact line", func() {
		a, b := linearFit([]float64{0, 1, 2, 3}, []float64{1, 3, 5, 7})
		Expect(a).To(BeNumerically("~", 2, 1e-12))
		Expect(b).To(BeNumerically("~", 1, 1e-12))
	})

	It("falls back to the mean for a constant regressor", func() {
		a, b := linearFit([]float64{0, 0, 0}, []float64{1, 2, 6})
		Expect(a).To(Equal(0.0))
		Expect(b).To(BeNumerically("~", 3, 1e-12))
	})
})

var _ = Describe("sopdtKernel", func() {
	It("handles equal poles without dividing by zero", func() {
		t := []float64{-1, 0, 1, 5, 50}
		g := make([]float64, len(t))
		sopdtKernel(g, t, 0, 2, 2)
		Expect(g[0]).To(Equal(0.0))
		Expect(g[1]).To(BeNumerically("~", 0, 1e-12))
		Expect(g[3]).To(BeNumerically("~", 1-3.5*math.Exp(-2.5), 1e-12))
		Expect(g[4]).To(BeNumerically("~", 1, 1e-9))
	})
})
