package identify

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pidtune/internal/dynamo"
)

func staircase(n int, steps map[int]float64) (t, u []float64) {
	t = make([]float64, n)
	u = make([]float64, n)
	level := 0.0
	for i := range t {
		t[i] = float64(i)
		if du, ok := steps[i]; ok {
			level += du
		}
		u[i] = level
	}
	return t, u
}

var _ = Describe("DetectSteps", func() {
	It("finds separated steps", func() {
		t, u := staircase(60, map[int]float64{20: 1, 40: 2})
		events, err := DetectSteps(t, u, DefaultStepOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(Equal([]dynamo.StepEvent{
			{Index0: 20, T0: 20, Du: 1, OP0: 0, Index1: 40},
			{Index0: 40, T0: 40, Du: 2, OP0: 1, Index1: 60},
		}))
	})

	It("keeps the larger of two colliding steps", func() {
		t, u := staircase(60, map[int]float64{20: 1, 22: 2})
		opts := DefaultStepOptions()
		opts.SmoothWindow = 1
		events, err := DetectSteps(t, u, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Index0).To(Equal(22))
		Expect(events[0].Du).To(Equal(2.0))
	})

	It("ignores steps inside the dwell margins", func() {
		t, u := staircase(60, map[int]float64{57: 1})
		events, err := DetectSteps(t, u, DefaultStepOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(BeEmpty())
	})

	It("ignores changes below the minimum step", func() {
		t, u := staircase(60, map[int]float64{30: 0.001})
		events, err := DetectSteps(t, u, DefaultStepOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(BeEmpty())
	})

	It("returns nothing for very short records", func() {
		events, err := DetectSteps([]float64{0, 1, 2}, []float64{0, 1, 1}, DefaultStepOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(BeEmpty())
	})

	It("rejects mismatched lengths", func() {
		_, err := DetectSteps([]float64{0, 1, 2, 3}, []float64{0, 1}, DefaultStepOptions())
		Expect(err).To(MatchError(dynamo.ErrLengthMismatch))
	})

	It("records the pre-step measurement", func() {
		t, u := staircase(60, map[int]float64{20: 1})
		y := make([]float64, len(t))
		for i := range y {
			y[i] = 7
			if i > 25 {
				y[i] = 9
			}
		}
		events, err := DetectSeriesSteps(dynamo.Series{T: t, U: u, Y: y}, DefaultStepOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].PV0).To(Equal(7.0))
	})
})

var _ = Describe("CUSUM", func() {
	It("raises its first alarm at a level shift", func() {
		x := make([]float64, 120)
		for i := range x {
			jitter := 0.1
			if i%2 == 0 {
				jitter = -0.1
			}
			x[i] = jitter
			if i >= 100 {
				x[i] = 5 + jitter
			}
		}

		idx := CUSUM(x, DefaultCUSUMDrift, DefaultCUSUMThreshold)
		Expect(idx).NotTo(BeEmpty())
		Expect(idx[0]).To(Equal(100))
	})

	It("stays quiet on a stationary signal", func() {
		x := make([]float64, 200)
		for i := range x {
			if i%2 == 0 {
				x[i] = 1
			} else {
				x[i] = -1
			}
		}
		Expect(CUSUM(x, DefaultCUSUMDrift, DefaultCUSUMThreshold)).To(BeEmpty())
	})

	It("handles empty input", func() {
		Expect(CUSUM(nil, 0.5, 5)).To(BeEmpty())
	})
})
