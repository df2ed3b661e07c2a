package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/pidtune/internal/persistence"
)

const (
	urlParamId      = "id"
	indentationChar = "  "

	EndpointPathAlive   = "/alive/"
	EndpointPathMetrics = "/metrics/"
)

// MaxSimulationSteps bounds the work a single /simulate/ request may ask for.
const MaxSimulationSteps = 1_000_000

type (
	Result struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}

	// Service holds what the handlers share. Models may be nil, in which
	// case fits are not stored and /models/ answers 404. Registry defaults
	// to a fresh registry.
	Service struct {
		Models   persistence.Persistence
		Registry *prometheus.Registry
		Logging  bool
	}
)

func CreateRestService(svc Service) *echo.Echo {
	if svc.Registry == nil {
		svc.Registry = prometheus.NewRegistry()
	}

	echoRest := echo.New()
	echoRest.HideBanner = true
	echoRest.HidePort = true

	// Root level middleware
	echoRest.Pre(middleware.AddTrailingSlash())

	echoRest.Use(middleware.Secure())
	if svc.Logging {
		echoRest.Use(middleware.Logger())
	}
	echoRest.Use(middleware.Recover())
	echoRest.Use(middleware.BodyLimit("32M"))
	echoRest.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "pidtune_api",
		Registerer: svc.Registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == EndpointPathMetrics
		},
	}))

	echoRest.GET(EndpointPathAlive, isAlive)
	echoRest.GET(EndpointPathMetrics, echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: svc.Registry,
	}))

	h := &handlers{models: svc.Models}
	registerAnalysisEndpoints(echoRest, h)
	registerModelEndpoints(echoRest, h)

	return echoRest
}

type handlers struct {
	models persistence.Persistence
}

// returns an empty "ok" answer
func isAlive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}
