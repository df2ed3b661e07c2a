package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/pidtune/internal/control"
	"github.com/san-kum/pidtune/internal/metrics"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/sim"
)

type ExportData struct {
	Name       string             `json:"name,omitempty"`
	Model      model.Record       `json:"model"`
	Controller control.Params     `json:"controller"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Steps      int                `json:"steps"`
	Trajectory sim.Trajectory     `json:"trajectory"`
	Metrics    map[string]float64 `json:"metrics"`
}

func NewExportData(name string, cfg sim.Config, result *sim.Result) ExportData {
	return ExportData{
		Name:       name,
		Model:      cfg.Model,
		Controller: cfg.Controller,
		Dt:         cfg.Dt,
		Duration:   cfg.TEnd,
		Steps:      result.Trajectory.Len(),
		Trajectory: result.Trajectory,
		Metrics:    metrics.Finite(result.Metrics),
	}
}

func ExportJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportCSV(w io.Writer, result *sim.Result) error {
	return WriteTrajectoryCSV(w, result.Trajectory)
}
