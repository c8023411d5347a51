package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ledgerly/internal/core"
	"ledgerly/internal/ledger"
	"ledgerly/internal/middleware/trace"
)

const (
	// HeaderOwnerID identifies the signed-in user; authentication happens upstream.
	HeaderOwnerID = trace.HeaderOwnerID

	maxBodyBytes    = 1 << 20
	maxUploadBytes  = 10 << 20
	multipartMemory = 2 << 20
	maxListLimit    = 500

	// imageField names both the uploaded file part and the hosted-URL field.
	imageField = "image"
)

// ownerID returns the caller's id or a 401 response when it is missing.
func ownerID(r *http.Request) (string, *ResponseBuilder) {
	id := sanitizeInput(r.Header.Get(HeaderOwnerID))
	if id == "" {
		return "", UnauthorizedError("Missing " + HeaderOwnerID + " header")
	}
	return id, nil
}

// decodeJSON reads a single JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) *ResponseBuilder {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return BadRequestError("Invalid JSON body")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return BadRequestError("Invalid JSON body")
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// parseMultipart reads a form upload. Callers must RemoveAll the form once
// the request is handled.
func parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, *ResponseBuilder) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return nil, BadRequestError("Invalid multipart form")
	}
	return r.MultipartForm, nil
}

// formValue returns the first value of key and whether the form carried it.
func formValue(form *multipart.Form, key string) (string, bool) {
	vs := form.Value[key]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// formImage turns the uploaded image file, if any, into an image the engine
// streams to the uploader.
func formImage(form *multipart.Form) core.Image {
	files := form.File[imageField]
	if len(files) == 0 {
		return core.Image{}
	}
	fh := files[0]
	return core.Image{
		Name: fh.Filename,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// parseLimit reads ?limit=, falling back to def. Values are capped at maxListLimit.
func parseLimit(query url.Values, def int) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return min(n, maxListLimit), nil
}

type walletRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

func walletFormRequest(form *multipart.Form) walletRequest {
	var req walletRequest
	req.ID, _ = formValue(form, "id")
	req.Name, _ = formValue(form, "name")
	req.Image, _ = formValue(form, imageField)
	return req
}

func (req walletRequest) toInput(owner string) ledger.WalletInput {
	return ledger.WalletInput{
		ID:      sanitizeInput(req.ID),
		OwnerID: owner,
		Name:    sanitizeInput(req.Name),
		Image:   core.Image{URL: strings.TrimSpace(req.Image)},
	}
}

type transactionRequest struct {
	WalletID    string      `json:"walletId"`
	Type        string      `json:"type"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Description *string     `json:"description"`
	Date        string      `json:"date"`
	Image       string      `json:"image"`
}

func transactionFormRequest(form *multipart.Form) transactionRequest {
	var req transactionRequest
	req.WalletID, _ = formValue(form, "walletId")
	req.Type, _ = formValue(form, "type")
	amount, _ := formValue(form, "amount")
	req.Amount = json.Number(strings.TrimSpace(amount))
	req.Category, _ = formValue(form, "category")
	if d, ok := formValue(form, "description"); ok {
		req.Description = &d
	}
	req.Date, _ = formValue(form, "date")
	req.Image, _ = formValue(form, imageField)
	return req
}

// toInput validates the wire format; business rules stay with the engine.
func (req transactionRequest) toInput(owner, id string) (ledger.TransactionInput, *ResponseBuilder) {
	txType, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return ledger.TransactionInput{}, UnprocessableEntityError("Invalid transaction data!")
	}
	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil {
		return ledger.TransactionInput{}, UnprocessableEntityError("Invalid amount")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return ledger.TransactionInput{}, UnprocessableEntityError("Invalid date, use YYYY-MM-DD")
	}

	in := ledger.TransactionInput{
		ID:       id,
		OwnerID:  owner,
		WalletID: sanitizeInput(req.WalletID),
		Type:     txType,
		Amount:   core.Money{Cents: cents},
		Category: sanitizeInput(req.Category),
		Date:     date,
		Image:    core.Image{URL: strings.TrimSpace(req.Image)},
	}
	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		in.Description = &d
	}
	return in, nil
}
