package sim

import (
	"context"
	"sync"

	"github.com/qdm12/reprint"

	"github.com/san-kum/pidtune/internal/control"
)

// Compare runs cfg once per controller setting, concurrently. Each run gets
// a deep copy of cfg and its own loop instances. Results are in the order
// of params.
func Compare(ctx context.Context, cfg Config, params []control.Params) ([]*Result, error) {
	cfgs := make([]Config, len(params))
	for i, p := range params {
		c := clone(cfg)
		c.Controller = p
		cfgs[i] = c
	}
	return runAll(ctx, cfgs)
}

// Ensemble repeats cfg with noise seeds seedStart, seedStart+1, ...
func Ensemble(ctx context.Context, cfg Config, runs int, seedStart int64) ([]*Result, error) {
	cfgs := make([]Config, runs)
	for i := range cfgs {
		c := clone(cfg)
		c.Seed = seedStart + int64(i)
		cfgs[i] = c
	}
	return runAll(ctx, cfgs)
}

func clone(cfg Config) Config {
	fn := cfg.DisturbanceFunc
	cfg.DisturbanceFunc = nil
	c := reprint.This(cfg).(Config)
	c.DisturbanceFunc = fn
	return c
}

func runAll(ctx context.Context, cfgs []Config) ([]*Result, error) {
	results := make([]*Result, len(cfgs))
	errs := make([]error, len(cfgs))

	var wg sync.WaitGroup
	for i := range cfgs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = Run(ctx, cfgs[idx])
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
