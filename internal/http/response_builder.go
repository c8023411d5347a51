package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ledgerly/internal/core"
	"ledgerly/internal/log"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ResponseBuilder provides a fluent API for writing JSON envelopes.
type ResponseBuilder struct {
	statusCode int
	envelope   Envelope
	headers    map[string]string
}

// NewResponse starts a successful 200 response.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		envelope:   Envelope{Success: true},
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	b.envelope.Success = code < 400
	return b
}

func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	b.envelope.Msg = msg
	return b
}

func (b *ResponseBuilder) Data(data any) *ResponseBuilder {
	b.envelope.Data = data
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.envelope)
}

// ErrorResponse creates a failed response with the given status and message.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).Message(message)
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// statusFor maps a ledger error kind to its HTTP status.
func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindValidation:
		return http.StatusUnprocessableEntity
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindInsufficientFunds:
		return http.StatusConflict
	case core.KindUpload:
		return http.StatusBadGateway
	case core.KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// FromError turns err into a failed response. Business errors carry their
// own message; anything else is logged and answered generically.
func FromError(r *http.Request, err error) *ResponseBuilder {
	status := statusFor(err)
	msg := core.Message(err)
	switch core.KindOf(err) {
	case core.KindValidation, core.KindNotFound, core.KindInsufficientFunds:
	case core.KindUpload:
		msg = "Image upload failed, please try again"
	case core.KindCanceled:
		msg = "Request cancelled"
	default:
		msg = "Something went wrong, please try again"
		if errors.Is(err, context.Canceled) {
			status = http.StatusRequestTimeout
			msg = "Request cancelled"
			break
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldError, err)
	}
	return ErrorResponse(status, msg)
}
