package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/log"
	"fluxo/internal/services"
)

// handleListBills returns open bills by due date. ?month restricts to one
// month, ?status=all includes settled ones.
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := s.bills.Today()

	bq := ledger.BillQuery{Statuses: ledger.OpenStatuses}
	if strings.TrimSpace(q.Get("month")) != "" {
		month, err := parseMonth(q, "month", today)
		if err != nil {
			s.respondError(w, r, log.OpList, err)
			return
		}
		rng := month.Range()
		bq.From, bq.To = rng.Start, rng.End
	}
	switch strings.ToLower(strings.TrimSpace(q.Get("status"))) {
	case "", "open":
	case "all":
		bq.Statuses = nil
	default:
		status, err := core.ParseBillStatus(q.Get("status"))
		if err != nil {
			s.respondError(w, r, log.OpList, err)
			return
		}
		bq.Statuses = []core.BillStatus{status}
	}
	var err error
	if bq.Flow, err = parseFlowParam(q); err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	if bq.Limit, err = parseLimit(q); err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}

	page, err := s.bills.List(r.Context(), bq)
	if err != nil {
		s.respondError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(toPageJSON(page, func(b core.Bill) billJSON { return toBillJSON(b, today) })).Write(w)
}

// handleCreateBills creates one bill, or one per month when the body
// carries a recurrence.
func (s *Server) handleCreateBills(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	today := s.bills.Today()

	if req.Recurrence != nil {
		rule, err := req.rule()
		if err != nil {
			s.respondError(w, r, log.OpExpand, err)
			return
		}
		bills, err := s.bills.CreateRecurring(r.Context(), rule)
		if err != nil {
			s.respondError(w, r, log.OpExpand, err)
			return
		}
		s.invalidate()
		NewJSONResponse().
			Status(http.StatusCreated).
			Data(map[string]any{"bills": toBillsJSON(bills, today)}).
			Write(w)
		return
	}

	in, err := req.input()
	if err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	b, err := s.bills.Create(r.Context(), in)
	if err != nil {
		s.respondError(w, r, log.OpCreate, err)
		return
	}
	s.invalidate()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/bills/"+b.ID).
		Data(toBillJSON(b, today)).
		Write(w)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.bills.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(toBillJSON(b, s.bills.Today())).Write(w)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if req.Recurrence != nil {
		ErrorResponse(http.StatusUnprocessableEntity, CodeInvalid, "recurrence cannot be changed on an existing bill").Write(w)
		return
	}
	in, err := req.input()
	if err != nil {
		s.respondError(w, r, log.OpUpdate, err)
		return
	}
	b, err := s.bills.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondError(w, r, log.OpUpdate, err)
		return
	}
	s.invalidate()
	NewJSONResponse().Data(toBillJSON(b, s.bills.Today())).Write(w)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.bills.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, log.OpDelete, err)
		return
	}
	s.invalidate()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleSettleBill marks a bill paid today, returning the transaction that
// replaces it. Settling twice yields 404.
func (s *Server) handleSettleBill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := s.bills.Settle(r.Context(), id)
	if err != nil {
		s.respondError(w, r, log.OpSettle, err)
		return
	}
	s.invalidate()
	NewJSONResponse().
		Header("Location", "/api/transactions/"+t.ID).
		Data(toTransactionJSON(t)).
		Write(w)
}

func (req billRequest) input() (services.BillInput, error) {
	amount, err := req.Amount.parse()
	if err != nil {
		return services.BillInput{}, err
	}
	flow, err := core.ParseFlow(req.Flow)
	if err != nil {
		return services.BillInput{}, err
	}
	due, err := core.ParseDate(req.DueDate)
	if err != nil {
		return services.BillInput{}, &core.ValidationError{Field: "due_date", Err: core.ErrInvalidDate}
	}
	return services.BillInput{
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		NoVAT:       req.NoVAT,
		Flow:        flow,
		DueDate:     due,
	}, nil
}

func (req billRequest) rule() (core.RecurrenceRule, error) {
	amount, err := req.Amount.parse()
	if err != nil {
		return core.RecurrenceRule{}, err
	}
	flow, err := core.ParseFlow(req.Flow)
	if err != nil {
		return core.RecurrenceRule{}, err
	}
	start, err := core.ParseYearMonth(req.Recurrence.Start)
	if err != nil {
		return core.RecurrenceRule{}, &core.ValidationError{Field: "recurrence.start", Err: core.ErrInvalidMonth}
	}
	end, err := core.ParseYearMonth(req.Recurrence.End)
	if err != nil {
		return core.RecurrenceRule{}, &core.ValidationError{Field: "recurrence.end", Err: core.ErrInvalidMonth}
	}
	if start.After(end) {
		return core.RecurrenceRule{}, &core.ValidationError{Field: "recurrence.end", Err: core.ErrInvalidRange}
	}
	return core.RecurrenceRule{
		Day:         req.Recurrence.Day,
		Start:       start,
		End:         end,
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		NoVAT:       req.NoVAT,
		Flow:        flow,
	}, nil
}
