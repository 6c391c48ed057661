package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/log"
	"fluxo/internal/services"
)

// handleListTransactions returns the newest transactions first, one page at
// a time. ?flow narrows by direction, ?from/?to by date.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q)
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	flow, err := parseFlowParam(q)
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	from, err := parseDateParam(q, "from", core.Date{})
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	to, err := parseDateParam(q, "to", core.Date{})
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}

	page, err := s.ledger.List(r.Context(), ledger.TransactionQuery{From: from, To: to, Flow: flow, Limit: limit})
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(toPageJSON(page, toTransactionJSON)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(toTransactionJSON(t)).Write(w)
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	in, err := req.input()
	if err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	t, err := s.ledger.Record(r.Context(), in)
	if err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	s.invalidate()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+t.ID).
		Data(toTransactionJSON(t)).
		Write(w)
}

func (req transactionRequest) input() (services.TransactionInput, error) {
	amount, err := req.Amount.parse()
	if err != nil {
		return services.TransactionInput{}, err
	}
	flow, err := core.ParseFlow(req.Flow)
	if err != nil {
		return services.TransactionInput{}, err
	}
	in := services.TransactionInput{
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		NoVAT:       req.NoVAT,
		Flow:        flow,
	}
	if req.Date != "" {
		if in.Date, err = core.ParseDate(req.Date); err != nil {
			return services.TransactionInput{}, err
		}
	}
	return in, nil
}
