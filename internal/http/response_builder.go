// Package http provides the JSON API server and its handlers.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to HTTP status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"bukukas/internal/amqp"
	"bukukas/internal/core"
	"bukukas/internal/services"
	"bukukas/internal/storage"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidMonth,
	core.ErrInvalidAmount,
	core.ErrNegativePrice,
	core.ErrEmptyID,
	core.ErrEmptyName,
	core.ErrUnknownRole,
	core.ErrUnknownTxType,
	core.ErrEmptyEmployeeID,
	core.ErrDescriptionLong,
	services.ErrUnknownTable,
}

// statusFor maps a service error to a status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrMalformedDocument):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrExportUnavailable), errors.Is(err, amqp.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// DecodeError builds the response for a body that could not be decoded.
// Unparseable amounts are reported as validation failures.
func DecodeError(err error) *JSONResponseBuilder {
	if errors.Is(err, core.ErrInvalidAmount) {
		return ErrorResponse(http.StatusUnprocessableEntity, err.Error())
	}
	return BadRequestError(err.Error())
}

// ServiceError builds the response for an error returned by the service
// layer. Internal errors are not echoed to the client.
func ServiceError(err error) *JSONResponseBuilder {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		return ErrorResponse(status, "internal error")
	}
	return ErrorResponse(status, err.Error())
}
