package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/san-kum/pidtune/internal/control"
	"github.com/san-kum/pidtune/internal/metrics"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/sim"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

// Store keeps simulation runs as one directory per run.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name,omitempty"`
	Model      model.Record       `json:"model"`
	Controller control.Params     `json:"controller"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	DeadTime   float64            `json:"deadtime"`
	NoiseStd   float64            `json:"noise_std"`
	Integrator string             `json:"integrator,omitempty"`
	Steps      int                `json:"steps"`
	Metrics    map[string]float64 `json:"metrics"`
}

// NewRunMetadata describes a finished run of cfg.
func NewRunMetadata(name string, cfg sim.Config, result *sim.Result) RunMetadata {
	return RunMetadata{
		Name:       name,
		Model:      cfg.Model,
		Controller: cfg.Controller,
		Timestamp:  time.Now(),
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Duration:   cfg.TEnd,
		DeadTime:   cfg.DeadTime,
		NoiseStd:   cfg.NoiseStd,
		Integrator: cfg.Integrator,
		Steps:      result.Trajectory.Len(),
		Metrics:    metrics.Finite(result.Metrics),
	}
}

// Config rebuilds the parts of the simulation config the metadata keeps.
// Valve and disturbance settings are not stored and take their defaults.
func (m RunMetadata) Config() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Model = m.Model
	cfg.Controller = m.Controller
	cfg.Seed = m.Seed
	cfg.Dt = m.Dt
	cfg.TEnd = m.Duration
	cfg.DeadTime = m.DeadTime
	cfg.NoiseStd = m.NoiseStd
	cfg.Integrator = m.Integrator
	return cfg
}

// Save writes the run and returns its id. Both files are replaced
// atomically, so a reader never sees a half-written run.
func (s *Store) Save(name string, cfg sim.Config, result *sim.Result) (string, error) {
	meta := NewRunMetadata(name, cfg, result)
	meta.ID = s.newID(cfg.Model.Type, meta.Timestamp)
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}
	if err := atomic.WriteFile(filepath.Join(runDir, metadataFile), &buf); err != nil {
		return "", err
	}

	buf.Reset()
	if err := WriteTrajectoryCSV(&buf, result.Trajectory); err != nil {
		return "", err
	}
	if err := atomic.WriteFile(filepath.Join(runDir, trajectoryFile), &buf); err != nil {
		return "", err
	}

	return meta.ID, nil
}

func (s *Store) newID(kind string, ts time.Time) string {
	prefix := strings.ToLower(kind)
	if prefix == "" {
		prefix = "run"
	}
	id := fmt.Sprintf("%s_%d", prefix, ts.UnixNano())
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(s.baseDir, id)); os.IsNotExist(err) {
			return id
		}
		id = fmt.Sprintf("%s_%d_%d", prefix, ts.UnixNano(), i)
	}
}

// List returns all readable runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadTrajectory(runID string) (sim.Trajectory, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return sim.Trajectory{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return sim.Trajectory{}, err
	}
	defer f.Close()
	return ReadTrajectoryCSV(f)
}

func (s *Store) Delete(runID string) error {
	dir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(filepath.Join(dir, metadataFile)); err != nil {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return os.RemoveAll(dir)
}
