package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/san-kum/pidtune/internal/dynamo"
	"github.com/san-kum/pidtune/internal/persistence"
)

var badInput = []error{
	dynamo.ErrInsufficientData,
	dynamo.ErrInvalidModel,
	dynamo.ErrInvalidParameter,
	dynamo.ErrLengthMismatch,
	dynamo.ErrNotMonotonic,
	dynamo.ErrNoStep,
	dynamo.ErrUnknownRule,
	dynamo.ErrUnknownVendor,
}

// return a "not found" message
func returnNotFound(c echo.Context, id string) error {
	return c.JSONPretty(http.StatusNotFound, &Result{
		Name:    "Not found",
		Message: "No item with id '" + id + "' found",
	}, indentationChar)
}

func returnBadRequest(c echo.Context, e error) error {
	return c.JSONPretty(http.StatusBadRequest, &Result{
		Name:    "Bad Request",
		Message: e.Error(),
	}, indentationChar)
}

// return the error message of an error
func returnError(c echo.Context, e error) error {
	return c.JSONPretty(http.StatusInternalServerError, &Result{
		Name:    "Unknown Error",
		Message: e.Error(),
	}, indentationChar)
}

// returnDomainError picks the status from the error's sentinel.
func returnDomainError(c echo.Context, e error, id string) error {
	if errors.Is(e, persistence.ErrNotFound) {
		return returnNotFound(c, id)
	}
	for _, target := range badInput {
		if errors.Is(e, target) {
			return returnBadRequest(c, e)
		}
	}
	return returnError(c, e)
}
