package http

import (
	"net/http"
	"strings"

	"ledgerly/internal/core"
	"ledgerly/internal/ledger"
)

// handleListTransactions returns the most recent transactions, or every
// match when ?q= is given.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, resp := ownerID(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	query := r.URL.Query()
	limit, err := parseLimit(query, ledger.DefaultRecentLimit)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var txs []core.Transaction
	if q, ok := query["q"]; ok {
		txs, err = s.ledger.Search(r.Context(), owner, sanitizeInput(strings.Join(q, " ")))
	} else {
		txs, err = s.ledger.RecentTransactions(r.Context(), owner, limit)
	}
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewResponse().Data(toTransactionDTOs(txs)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	s.saveTransaction(w, r, "")
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	s.saveTransaction(w, r, r.PathValue("id"))
}

func (s *Server) saveTransaction(w http.ResponseWriter, r *http.Request, id string) {
	owner, resp := ownerID(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	var (
		req   transactionRequest
		image core.Image
	)
	if isMultipart(r) {
		form, resp := parseMultipart(w, r)
		if resp != nil {
			resp.Write(w)
			return
		}
		defer form.RemoveAll()
		req, image = transactionFormRequest(form), formImage(form)
	} else if resp := decodeJSON(w, r, &req); resp != nil {
		resp.Write(w)
		return
	}
	in, resp := req.toInput(owner, id)
	if resp != nil {
		resp.Write(w)
		return
	}
	if !image.IsEmpty() {
		in.Image = image
	}

	tx, err := s.ledger.UpsertTransaction(r.Context(), in)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}

	status, msg := http.StatusOK, "Transaction updated"
	if id == "" {
		status, msg = http.StatusCreated, "Transaction created"
	}
	NewResponse().Status(status).Message(msg).Data(toTransactionDTO(tx)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner, resp := ownerID(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	id := r.PathValue("id")
	if _, err := s.ledger.Transaction(r.Context(), owner, id); err != nil {
		FromError(r, err).Write(w)
		return
	}
	walletID := sanitizeInput(r.URL.Query().Get("walletId"))
	if err := s.ledger.DeleteTransaction(r.Context(), id, walletID); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewResponse().Message("Transaction deleted").Write(w)
}
