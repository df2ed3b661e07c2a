package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/san-kum/pidtune/internal/control"
	"github.com/san-kum/pidtune/internal/dynamo"
	"github.com/san-kum/pidtune/internal/experiment"
	"github.com/san-kum/pidtune/internal/identify"
	"github.com/san-kum/pidtune/internal/metrics"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/persistence"
	"github.com/san-kum/pidtune/internal/sim"
	"github.com/san-kum/pidtune/internal/tuning"
)

func registerAnalysisEndpoints(rest *echo.Echo, h *handlers) {
	rest.POST("/identify/", h.identify)
	rest.POST("/tune/", h.tune)
	rest.POST("/simulate/", h.simulate)
}

type (
	identifyRequest struct {
		T       []float64           `json:"t"`
		U       []float64           `json:"u"`
		Y       []float64           `json:"y"`
		Type    string              `json:"type"`
		Event   bool                `json:"event"`
		Options identify.FitOptions `json:"options"`
		Name    string              `json:"name"`
		Save    bool                `json:"save"`
	}

	identifyResponse struct {
		ID     string              `json:"id,omitempty"`
		Model  model.Record        `json:"model"`
		Fit    *identify.FitResult `json:"fit"`
		Events []dynamo.StepEvent  `json:"events"`
	}

	tuneRequest struct {
		Model   *model.Record `json:"model"`
		ModelID string        `json:"model_id"`
		Rule    string        `json:"rule"`
		Knob    float64       `json:"knob"`
		Vendor  string        `json:"vendor"`
	}

	tuneResponse struct {
		tuning.Settings
		Rule       tuning.Rule    `json:"rule"`
		Controller control.Params `json:"controller"`
	}
)

var errBadBody = errors.New("malformed request body")

func (h *handlers) identify(c echo.Context) error {
	var req identifyRequest
	if err := c.Bind(&req); err != nil {
		return returnBadRequest(c, fmt.Errorf("%w: %v", errBadBody, err))
	}
	series := dynamo.Series{T: req.T, U: req.U, Y: req.Y}

	cfg := experiment.DefaultConfig()
	cfg.Kind, cfg.Event, cfg.Fit = req.Type, req.Event, req.Options
	fits, events, err := experiment.New(cfg, nil).Identify(c.Request().Context(), series)
	if err != nil {
		return returnDomainError(c, err, "")
	}
	best := identify.Best(fits)

	resp := identifyResponse{Model: best.Model.Record(), Fit: best, Events: events}
	if req.Save {
		if h.models == nil {
			return returnError(c, errNoStore)
		}
		rec, err := h.models.SaveModel(persistence.NewFitRecord(req.Name, best))
		if err != nil {
			return returnError(c, err)
		}
		resp.ID = rec.ID
	}
	return c.JSONPretty(http.StatusOK, resp, indentationChar)
}

func (h *handlers) tune(c echo.Context) error {
	var req tuneRequest
	if err := c.Bind(&req); err != nil {
		return returnBadRequest(c, fmt.Errorf("%w: %v", errBadBody, err))
	}

	var rec model.Record
	switch {
	case req.Model != nil:
		rec = *req.Model
	case req.ModelID != "":
		if h.models == nil {
			return returnNotFound(c, req.ModelID)
		}
		stored, err := h.models.LoadModel(req.ModelID)
		if err != nil {
			return returnDomainError(c, err, req.ModelID)
		}
		rec = stored.Model
	default:
		return returnBadRequest(c, fmt.Errorf("%w: model or model_id required", dynamo.ErrInvalidModel))
	}

	m, err := model.FromRecord(rec)
	if err != nil {
		return returnDomainError(c, err, "")
	}
	cfg := experiment.DefaultConfig()
	cfg.Rule, cfg.Knob, cfg.Vendor = req.Rule, req.Knob, req.Vendor
	settings, params, err := experiment.New(cfg, nil).Tune(m)
	if err != nil {
		return returnDomainError(c, err, "")
	}
	rule, _ := tuning.ParseRule(cfg.Rule)
	return c.JSONPretty(http.StatusOK, tuneResponse{Settings: settings, Rule: rule, Controller: params}, indentationChar)
}

func (h *handlers) simulate(c echo.Context) error {
	cfg := sim.DefaultConfig()
	if err := c.Bind(&cfg); err != nil {
		return returnBadRequest(c, fmt.Errorf("%w: %v", errBadBody, err))
	}
	if err := cfg.Validate(); err != nil {
		return returnDomainError(c, err, "")
	}
	if cfg.TEnd/cfg.Dt >= MaxSimulationSteps {
		return returnBadRequest(c, fmt.Errorf("%w: t_end/dt exceeds the limit of %d steps",
			dynamo.ErrInvalidParameter, MaxSimulationSteps))
	}

	result, err := sim.Run(c.Request().Context(), cfg)
	if err != nil {
		return returnError(c, err)
	}
	result.Metrics = metrics.Finite(result.Metrics)
	return c.JSONPretty(http.StatusOK, result, indentationChar)
}
