package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

func registerModelEndpoints(rest *echo.Echo, h *handlers) {
	group := rest.Group("/models")

	group.GET("/", h.getModels)
	group.GET("/:"+urlParamId+"/", h.getModel)
	group.DELETE("/:"+urlParamId+"/", h.deleteModel)
}

var errNoStore = errors.New("model store is not configured")

// returns all stored fits, newest first
func (h *handlers) getModels(c echo.Context) error {
	if h.models == nil {
		return returnError(c, errNoStore)
	}
	data, err := h.models.ListModels()
	if err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func (h *handlers) getModel(c echo.Context) error {
	id := c.Param(urlParamId)
	if h.models == nil {
		return returnNotFound(c, id)
	}
	data, err := h.models.LoadModel(id)
	if err != nil {
		return returnDomainError(c, err, id)
	}
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func (h *handlers) deleteModel(c echo.Context) error {
	id := c.Param(urlParamId)
	if h.models == nil {
		return returnNotFound(c, id)
	}
	if err := h.models.DeleteModel(id); err != nil {
		return returnDomainError(c, err, id)
	}
	return c.NoContent(http.StatusNoContent)
}
