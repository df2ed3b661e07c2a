package statistics

import (
	"math"
	"sync"

	"github.com/asecurityteam/rolling"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/pidtune/internal/sim"
)

const loopSubsystem = "loop"

// DefaultErrorWindow is the number of ticks averaged into the live
// absolute error.
const DefaultErrorWindow = 100

// LoopCollector exports the latest tick of a running loop. Observe may be
// called from the simulation goroutine while Prometheus collects.
type LoopCollector struct {
	id string

	mu       sync.RWMutex
	last     sim.Tick
	ticks    uint64
	window   *rolling.PointPolicy
	size     int
	observed int

	sp       *prometheus.Desc
	pv       *prometheus.Desc
	op       *prometheus.Desc
	position *prometheus.Desc
	mae      *prometheus.Desc
	count    *prometheus.Desc
}

func NewLoopCollector(id string, window int) *LoopCollector {
	if window <= 0 {
		window = DefaultErrorWindow
	}
	labels := []string{"loop"}
	return &LoopCollector{
		id:     id,
		window: rolling.NewPointPolicy(rolling.NewWindow(window)),
		size:   window,
		sp: prometheus.NewDesc(prometheus.BuildFQName(namespace, loopSubsystem, "setpoint"),
			"Current setpoint of the loop",
			labels, nil,
		),
		pv: prometheus.NewDesc(prometheus.BuildFQName(namespace, loopSubsystem, "pv"),
			"Current measured process value",
			labels, nil,
		),
		op: prometheus.NewDesc(prometheus.BuildFQName(namespace, loopSubsystem, "op"),
			"Current controller output in percent",
			labels, nil,
		),
		position: prometheus.NewDesc(prometheus.BuildFQName(namespace, loopSubsystem, "valve_position"),
			"Current effective valve position in percent",
			labels, nil,
		),
		mae: prometheus.NewDesc(prometheus.BuildFQName(namespace, loopSubsystem, "abs_error_mean"),
			"Mean absolute control error over the recent window",
			labels, nil,
		),
		count: prometheus.NewDesc(prometheus.BuildFQName(namespace, loopSubsystem, "ticks_total"),
			"Number of loop ticks observed",
			labels, nil,
		),
	}
}

func (c *LoopCollector) Observe(tk sim.Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = tk
	c.ticks++
	c.window.Append(math.Abs(tk.SP - tk.Y))
	if c.observed < c.size {
		c.observed++
	}
}

// MeanAbsError averages over the ticks seen so far, at most the window.
func (c *LoopCollector) MeanAbsError() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meanAbsError()
}

func (c *LoopCollector) meanAbsError() float64 {
	if c.observed == 0 {
		return 0
	}
	// unfilled buckets hold zero, so divide by the samples actually seen
	return c.window.Reduce(rolling.Sum) / float64(c.observed)
}

func (c *LoopCollector) Ticks() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticks
}

func (c *LoopCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sp
	ch <- c.pv
	ch <- c.op
	ch <- c.position
	ch <- c.mae
	ch <- c.count
}

func (c *LoopCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch <- prometheus.MustNewConstMetric(c.sp, prometheus.GaugeValue, c.last.SP, c.id)
	ch <- prometheus.MustNewConstMetric(c.pv, prometheus.GaugeValue, c.last.Y, c.id)
	ch <- prometheus.MustNewConstMetric(c.op, prometheus.GaugeValue, c.last.U, c.id)
	ch <- prometheus.MustNewConstMetric(c.position, prometheus.GaugeValue, c.last.Position, c.id)
	ch <- prometheus.MustNewConstMetric(c.mae, prometheus.GaugeValue, c.meanAbsError(), c.id)
	ch <- prometheus.MustNewConstMetric(c.count, prometheus.CounterValue, float64(c.ticks), c.id)
}
