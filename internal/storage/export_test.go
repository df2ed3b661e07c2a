package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestExportJSON(t *testing.T) {
	cfg, result := runResult(t)
	result.Metrics["settling_time"] = math.Inf(1)

	var buf bytes.Buffer
	if err := ExportJSON(&buf, NewExportData("run", cfg, result)); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var decoded struct {
		Steps      int                `json:"steps"`
		Metrics    map[string]float64 `json:"metrics"`
		Trajectory struct {
			Y []float64 `json:"y"`
		} `json:"trajectory"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.Steps != result.Trajectory.Len() || len(decoded.Trajectory.Y) != decoded.Steps {
		t.Errorf("expected %d steps, got %d/%d", result.Trajectory.Len(), decoded.Steps, len(decoded.Trajectory.Y))
	}
	if _, ok := decoded.Metrics["settling_time"]; ok {
		t.Error("infinite metric should be omitted")
	}
}

func TestExportCSV(t *testing.T) {
	_, result := runResult(t)
	var buf bytes.Buffer
	if err := ExportCSV(&buf, result); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "t,sp,y,u,d,valve_position,valve_output" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if len(lines) != result.Trajectory.Len()+1 {
		t.Errorf("expected %d lines, got %d", result.Trajectory.Len()+1, len(lines))
	}
}
