// Package http serves the ledger over a JSON API.
//
// This file holds the fluent builder every handler answers through and the
// mapping from service errors to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fluxo/internal/core"
	"fluxo/internal/services"
)

// JSONResponseBuilder collects status, headers and payload before writing.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
	raw        []byte
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.payload = v
	b.raw = nil
	return b
}

// Raw sets an already encoded body, as served from the response cache.
func (b *JSONResponseBuilder) Raw(body []byte) *JSONResponseBuilder {
	b.raw = body
	b.payload = nil
	return b
}

// Encode returns the body bytes Write would send.
func (b *JSONResponseBuilder) Encode() ([]byte, error) {
	if b.raw != nil {
		return b.raw, nil
	}
	if b.payload == nil {
		return nil, nil
	}
	return json.Marshal(b.payload)
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	body, err := b.Encode()
	if err != nil {
		slog.Error("Encode response failed", "error", err)
		body = []byte(`{"error":{"code":"internal","message":"encoding failed"}}`)
		b.statusCode = http.StatusInternalServerError
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if body != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(b.statusCode)
	if body != nil {
		_, _ = w.Write(body)
		_, _ = w.Write([]byte("\n"))
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Error codes in response bodies.
const (
	CodeInvalid     = "invalid"
	CodeNotFound    = "not_found"
	CodeConflict    = "conflict"
	CodeNotPending  = "not_pending"
	CodeUnavailable = "store_unavailable"
	CodePartial     = "partial_settlement"
	CodeRateLimited = "rate_limited"
	CodeInternal    = "internal"
	CodeBadRequest  = "bad_request"
	CodeTimeout     = "timeout"
)

func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Data(errorBody{Error: errorDetail{Code: code, Message: message}})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, CodeNotFound, message)
}

// ErrorFromService maps a service error onto a response:
// validation 422, not found 404, conflict and not pending 409,
// partial settlement 500, store failure 503, timeout 504.
func ErrorFromService(err error) *JSONResponseBuilder {
	var (
		ve      *core.ValidationError
		partial *services.PartialSettlementError
		se      *services.StoreError
	)
	switch {
	case errors.As(err, &ve):
		return NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			Data(errorBody{Error: errorDetail{Code: CodeInvalid, Message: ve.Error(), Field: ve.Field}})
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidFlow), errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidDay), errors.Is(err, core.ErrInvalidRange),
		errors.Is(err, core.ErrInvalidMonth), errors.Is(err, core.ErrInvalidStatus):
		return ErrorResponse(http.StatusUnprocessableEntity, CodeInvalid, err.Error())
	case errors.As(err, &partial):
		return ErrorResponse(http.StatusInternalServerError, CodePartial,
			"settlement partially applied; retry to complete it")
	case errors.Is(err, core.ErrNotFound):
		return ErrorResponse(http.StatusNotFound, CodeNotFound, "not found")
	case errors.Is(err, core.ErrNotPending):
		return ErrorResponse(http.StatusConflict, CodeNotPending, "bill is not pending")
	case errors.Is(err, core.ErrConflict):
		return ErrorResponse(http.StatusConflict, CodeConflict, "conflicting change")
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusGatewayTimeout, CodeTimeout, "request timed out")
	case errors.As(err, &se):
		return ErrorResponse(http.StatusServiceUnavailable, CodeUnavailable, "storage unavailable")
	}
	return ErrorResponse(http.StatusInternalServerError, CodeInternal, "internal error")
}
