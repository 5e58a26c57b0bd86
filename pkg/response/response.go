// Package response provides the uniform success/error envelope used by
// every API handler.
package response

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-workspace/pkg/errors"
)

// Envelope is the uniform response shape. Code carries the HTTP status so
// clients can rely on the body alone.
type Envelope struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK writes a 200 success envelope
func OK(w http.ResponseWriter, r *http.Request, message string, data interface{}) {
	JSON(w, r, http.StatusOK, message, data)
}

// Created writes a 201 success envelope
func Created(w http.ResponseWriter, r *http.Request, message string, data interface{}) {
	JSON(w, r, http.StatusCreated, message, data)
}

// JSON writes a success envelope with the given status code
func JSON(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, Envelope{
		Success: true,
		Code:    status,
		Message: message,
		Data:    data,
	})
}

// Err maps a structured error to an error envelope. Internal error details
// are logged but never leaked to the client.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := errors.MapErrorCodeToHTTPStatus(code)

	message := "An unexpected error occurred"
	if status < http.StatusInternalServerError {
		var e *errors.Error
		if stderrors.As(err, &e) {
			message = e.Message
		} else {
			message = err.Error()
		}
	} else {
		slog.Error("Internal error", "err", err, "path", r.URL.Path, "method", r.Method)
	}

	render.Status(r, status)
	render.JSON(w, r, Envelope{
		Success: false,
		Code:    status,
		Message: message,
		Error:   string(code),
	})
}

// ErrStatus writes an error envelope with an explicit status and code,
// bypassing the error mapping. Used by middleware that fails fast.
func ErrStatus(w http.ResponseWriter, r *http.Request, status int, code errors.ErrorCode, message string) {
	render.Status(r, status)
	render.JSON(w, r, Envelope{
		Success: false,
		Code:    status,
		Message: message,
		Error:   string(code),
	})
}
