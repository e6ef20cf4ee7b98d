// Package handler exposes the booking and session operations over HTTP.
// Handlers bind and shape requests; every rule lives in the service layer.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// writeError maps a service error onto an HTTP status and JSON body.
// Anything that is not a service error is reported as unavailable.
func writeError(c echo.Context, err error) error {
	kind := service.KindOf(err)
	msg := err.Error()
	if kind == 0 {
		kind, msg = service.KindUnavailable, service.ErrUnavailable.Message
	}
	body := echo.Map{"error": msg, "kind": kind.String()}
	var status int
	switch kind {
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindSeatsUnavailable:
		status = http.StatusConflict
		var e *service.Error
		if errors.As(err, &e) {
			body["seat_ids"] = e.SeatIDs
		}
	case service.KindShowingExpired, service.KindShowingNotFound:
		status = http.StatusNotFound
		body["error"] = "showing not found"
	case service.KindBookingNotFound:
		status = http.StatusNotFound
		body["error"] = "booking not found"
	case service.KindNoSession, service.KindInvalidCredentials:
		status = http.StatusUnauthorized
	default:
		status = http.StatusServiceUnavailable
		body["error"] = service.ErrUnavailable.Message
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "kind": service.KindValidation.String()})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
