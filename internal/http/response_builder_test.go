package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fluxo/internal/core"
	"fluxo/internal/services"
)

func TestJSONResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/bills/b1").
		Data(map[string]string{"id": "b1"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d", w.Code)
	}
	if w.Header().Get("Location") != "/api/bills/b1" {
		t.Errorf("Location = %q", w.Header().Get("Location"))
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if strings.TrimSpace(w.Body.String()) != `{"id":"b1"}` {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 || w.Header().Get("Content-Type") != "" {
		t.Fatalf("unexpected response %d %q %v", w.Code, w.Body.String(), w.Header())
	}
}

func TestJSONResponseBuilder_Unencodable(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Data(map[string]any{"bad": make(chan int)}).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestErrorFromService(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"validation", &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}, http.StatusUnprocessableEntity, CodeInvalid},
		{"wrapped validation", fmt.Errorf("create: %w", &core.ValidationError{Field: "flow", Err: core.ErrInvalidFlow}), http.StatusUnprocessableEntity, CodeInvalid},
		{"not found", fmt.Errorf("settle bill: %w", core.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"not pending", core.ErrNotPending, http.StatusConflict, CodeNotPending},
		{"conflict", fmt.Errorf("x: %w", core.ErrConflict), http.StatusConflict, CodeConflict},
		{"store", &services.StoreError{Op: "list", Err: errors.New("io")}, http.StatusServiceUnavailable, CodeUnavailable},
		{"partial", &services.PartialSettlementError{BillID: "b", TransactionID: "t", Err: errors.New("a"), CompensationErr: errors.New("b")}, http.StatusInternalServerError, CodePartial},
		{"timeout", fmt.Errorf("list: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, CodeTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFromService(tt.err).Write(w)
			if w.Code != tt.code {
				t.Errorf("status = %d, want %d", w.Code, tt.code)
			}
			if !strings.Contains(w.Body.String(), `"code":"`+tt.body+`"`) {
				t.Errorf("body = %s", w.Body.String())
			}
		})
	}
}

func TestErrorFromService_ValidationField(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorFromService(&core.ValidationError{Field: "due_date", Err: core.ErrInvalidDate}).Write(w)
	if !strings.Contains(w.Body.String(), `"field":"due_date"`) {
		t.Fatalf("field missing: %s", w.Body.String())
	}
}
