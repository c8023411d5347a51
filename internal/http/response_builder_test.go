package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ledgerly/internal/core"
)

func TestResponseBuilder_Write(t *testing.T) {
	rr := httptest.NewRecorder()
	NewResponse().
		Status(http.StatusCreated).
		Message("Wallet created").
		Data(map[string]string{"id": "w1"}).
		Header("Location", "/api/wallets/w1").
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("Location") != "/api/wallets/w1" {
		t.Fatalf("missing Location header")
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}

	var env struct {
		Success bool              `json:"success"`
		Msg     string            `json:"msg"`
		Data    map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Msg != "Wallet created" || env.Data["id"] != "w1" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestErrorResponse_NotSuccessful(t *testing.T) {
	rr := httptest.NewRecorder()
	BadRequestError("Invalid JSON body").Write(rr)

	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success || env.Msg != "Invalid JSON body" || rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected response %d %+v", rr.Code, env)
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", core.Validation("op", "Invalid transaction data!"), http.StatusUnprocessableEntity, "Invalid transaction data!"},
		{"not found", core.NotFound("op", "Wallet not found!"), http.StatusNotFound, "Wallet not found!"},
		{"insufficient funds", core.InsufficientFunds("op", "Selected wallet doesn't have enough balance!"), http.StatusConflict, "Selected wallet doesn't have enough balance!"},
		{"upload", core.UploadFailed("op", errors.New("timeout")), http.StatusBadGateway, "Image upload failed, please try again"},
		{"persistence", core.Persistence("op", errors.New("disk full")), http.StatusInternalServerError, "Something went wrong, please try again"},
		{"wrapped validation", fmt.Errorf("handler: %w", core.Validation("op", "Please fill all the fields")), http.StatusUnprocessableEntity, "Please fill all the fields"},
		{"canceled", core.Canceled("op", context.Canceled), http.StatusRequestTimeout, "Request cancelled"},
		{"bare context error", fmt.Errorf("list: %w", context.Canceled), http.StatusRequestTimeout, "Request cancelled"},
		{"foreign", errors.New("boom"), http.StatusInternalServerError, "Something went wrong, please try again"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			FromError(httptest.NewRequest(http.MethodGet, "/api/wallets", nil), tt.err).Write(rr)

			var env Envelope
			if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if rr.Code != tt.status || env.Msg != tt.message || env.Success {
				t.Fatalf("got %d %q, want %d %q", rr.Code, env.Msg, tt.status, tt.message)
			}
		})
	}
}
