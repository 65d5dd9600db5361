package api

import (
	"net/http"

	"github.com/Maphikza/flow-wallet-state/internal/transaction"
	"github.com/gorilla/mux"
)

const (
	defaultPageLimit = 15
	maxPageLimit     = 100
)

func accountVars(r *http.Request) (network, address string) {
	vars := mux.Vars(r)
	return vars["network"], vars["address"]
}

func (a *API) HandleListPending(w http.ResponseWriter, r *http.Request) {
	network, address := accountVars(r)
	writeJSON(w, http.StatusOK, a.Ledger.ListPending(network, address))
}

func (a *API) HandleSetPending(w http.ResponseWriter, r *http.Request) {
	network, address := accountVars(r)

	var req SetPendingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TxID == "" {
		writeError(w, r, http.StatusBadRequest, "txId is required")
		return
	}

	a.Ledger.SetPending(network, address, req.TxID, req.Icon, req.Title)
	writeJSON(w, http.StatusCreated, a.Ledger.ListPending(network, address))
}

func (a *API) HandleClearPending(w http.ResponseWriter, r *http.Request) {
	network, address := accountVars(r)
	a.Ledger.ClearPending(network, address)
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdatePending applies a chain status payload to a pending record.
func (a *API) HandleUpdatePending(w http.ResponseWriter, r *http.Request) {
	network, address := accountVars(r)
	txID := mux.Vars(r)["txId"]

	var status transaction.TransactionStatus
	if err := decodeBody(r, &status); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid status payload")
		return
	}

	a.Ledger.UpdatePending(network, address, txID, status)
	writeJSON(w, http.StatusOK, a.Ledger.ListPending(network, address))
}

// HandleRemovePending removes by Cadence id or by any linked EVM hash.
func (a *API) HandleRemovePending(w http.ResponseWriter, r *http.Request) {
	network, address := accountVars(r)
	a.Ledger.RemovePending(network, address, mux.Vars(r)["txId"])
	w.WriteHeader(http.StatusNoContent)
}

func pageParams(r *http.Request) (offset, limit int, err error) {
	if offset, err = queryInt(r, "offset", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(r, "limit", defaultPageLimit); err != nil {
		return 0, 0, err
	}
	if limit == 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return offset, limit, nil
}

func (a *API) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	network, address := accountVars(r)
	offset, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.Ledger.ListTransactions(r.Context(), network, address, offset, limit))
}

func (a *API) HandleTransactionCount(w http.ResponseWriter, r *http.Request) {
	network, address := accountVars(r)
	offset, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: a.Ledger.GetCount(r.Context(), network, address, offset, limit)})
}
