package http

import (
	"net/http"

	"ledgerly/internal/core"
	"ledgerly/internal/log"
)

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	owner, resp := ownerID(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	wallets, err := s.ledger.Wallets(r.Context(), owner)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewResponse().Data(toWalletDTOs(wallets)).Write(w)
}

// handleSaveWallet creates a wallet, or renames it and swaps its icon when
// the body carries an id.
func (s *Server) handleSaveWallet(w http.ResponseWriter, r *http.Request) {
	owner, resp := ownerID(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	var (
		req   walletRequest
		image core.Image
	)
	if isMultipart(r) {
		form, resp := parseMultipart(w, r)
		if resp != nil {
			resp.Write(w)
			return
		}
		defer form.RemoveAll()
		req, image = walletFormRequest(form), formImage(form)
	} else if resp := decodeJSON(w, r, &req); resp != nil {
		resp.Write(w)
		return
	}

	in := req.toInput(owner)
	if !image.IsEmpty() {
		in.Image = image
	}
	wallet, err := s.ledger.SaveWallet(r.Context(), in)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}

	status, msg := http.StatusOK, "Wallet updated"
	if in.ID == "" {
		status, msg = http.StatusCreated, "Wallet created"
	}
	NewResponse().Status(status).Message(msg).Data(toWalletDTO(wallet)).Write(w)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	owner, resp := ownerID(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	totals, err := s.ledger.Totals(r.Context(), owner)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewResponse().Data(toTotalsDTO(totals)).Write(w)
}

func (s *Server) handleWalletTransactions(w http.ResponseWriter, r *http.Request) {
	owner, resp := ownerID(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	walletID := r.PathValue("id")
	if _, err := s.ledger.Wallet(r.Context(), owner, walletID); err != nil {
		FromError(r, err).Write(w)
		return
	}
	txs, err := s.ledger.WalletTransactions(r.Context(), walletID)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewResponse().Data(toTransactionDTOs(txs)).Write(w)
}

// handleDeleteWallet answers once the wallet is gone; its transactions are
// removed in the background.
func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	owner, resp := ownerID(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	walletID := r.PathValue("id")
	if _, err := s.ledger.Wallet(r.Context(), owner, walletID); err != nil {
		FromError(r, err).Write(w)
		return
	}
	if err := s.ledger.DeleteWallet(r.Context(), walletID); err != nil {
		FromError(r, err).Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Wallet delete accepted",
		log.FieldOwnerID, owner, log.FieldWalletID, walletID)
	NewResponse().Status(http.StatusAccepted).Message("Wallet deleted").Write(w)
}
