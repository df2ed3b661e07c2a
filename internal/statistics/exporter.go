package statistics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "pidtune"
)

// Register adds the collectors to reg, or to the default registry when reg
// is nil.
func Register(reg prometheus.Registerer, collectors ...prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
