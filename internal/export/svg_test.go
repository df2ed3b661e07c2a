package export

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/sim"
)

func runLoop(t *testing.T) sim.Trajectory {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.Model = model.FOPDT{K: 1, Tau: 2, Theta: 0.5}.Record()
	cfg.Dt = 0.1
	cfg.TEnd = 20
	res, err := sim.Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	return res.Trajectory
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, runLoop(t), "flow loop", 0, 0); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "<svg") {
		t.Fatal("output is not svg")
	}
	if !strings.Contains(out, "flow loop") {
		t.Error("title missing from svg")
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, runLoop(t), "", 0, 0, 72); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not png")
	}
}

func TestPlotsRejectsEmpty(t *testing.T) {
	_, _, err := Plots(sim.Trajectory{T: []float64{0}}, "x")
	if !errors.Is(err, ErrEmptyTrajectory) {
		t.Errorf("err = %v, want ErrEmptyTrajectory", err)
	}
}

func TestPlotsRejectsNonFinite(t *testing.T) {
	tr := sim.Trajectory{
		T:  []float64{0, 1, 2},
		SP: []float64{1, 1, 1},
		Y:  []float64{0, math.NaN(), 1},
		U:  []float64{0, 0, 0},
	}
	if _, _, err := Plots(tr, "x"); err == nil {
		t.Error("expected error for NaN samples")
	}
}

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	tr := runLoop(t)
	for _, name := range []string{"out.svg", "sub/out.png"} {
		path := filepath.Join(dir, name)
		if err := SaveFile(path, tr, "run"); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
			t.Errorf("%s not written", name)
		}
	}
	if err := SaveFile(filepath.Join(dir, "out.gif"), tr, "run"); err == nil {
		t.Error("expected error for gif")
	}
}
