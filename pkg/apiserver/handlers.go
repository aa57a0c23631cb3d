package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/whoiswatch/whoiswatch/pkg/backend"
	"github.com/whoiswatch/whoiswatch/pkg/db"
	"github.com/whoiswatch/whoiswatch/pkg/model"
	"github.com/whoiswatch/whoiswatch/pkg/version"
)

type handler struct {
	backend backend.Backend
}

func newHandler(b backend.Backend) *handler {
	return &handler{
		backend: b,
	}
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	v := version.Get()
	if err := json.NewEncoder(w).Encode(v); err != nil {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(`{"success": false}`))
	}
}

func (h *handler) listDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.backend.ListDomains()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeSuccess(w, domains)
}

// getDomain serves the domain's current canonical state without the
// change-log tail.
func (h *handler) getDomain(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	domainName := vars["domain"]

	hist, err := h.backend.GetHistory(domainName)
	if err != nil {
		writeHistoryError(w, err)
		return
	}

	writeSuccess(w, model.HistoryResponse{
		Name:         hist.Name,
		ActiveChecks: hist.ActiveChecks,
		FirstChecked: hist.FirstChecked,
		LastChecked:  hist.LastChecked,
		Current:      hist.Current,
		StateSince:   hist.StateSince,
	})
}

func (h *handler) getHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	domainName := vars["domain"]

	hist, err := h.backend.GetHistory(domainName)
	if err != nil {
		writeHistoryError(w, err)
		return
	}

	writeSuccess(w, hist)
}

func writeHistoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrDomainNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}
