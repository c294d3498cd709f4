package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/balance"
	"github.com/cleared-dev/tally/internal/model"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

// accountView adds the derived normal side to an account.
type accountView struct {
	model.Account
	NormalSide model.Side `json:"normal_side"`
}

func (s *Server) accounts(w http.ResponseWriter, r *http.Request) {
	dir, err := s.reporter.Accounts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]accountView, 0, dir.Len())
	for _, a := range dir.Sorted() {
		out = append(out, accountView{Account: a, NormalSide: a.NormalSide()})
	}
	render.JSON(w, r, out)
}

func (s *Server) ledger(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.dateRange(r)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	code := r.URL.Query().Get("account")
	if code == "" {
		s.badRequest(w, r, errors.New("account is required"))
		return
	}
	id, ok := s.resolveAccount(w, r, code)
	if !ok {
		return
	}

	rep, err := s.reporter.Ledger(r.Context(), id, start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, rep)
}

func (s *Server) generalLedger(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.dateRange(r)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	gl, err := s.reporter.GeneralLedger(r.Context(), start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, gl)
}

func (s *Server) cashbook(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.dateRange(r)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	q := balance.CashbookQuery{Start: start, End: end}
	if code := r.URL.Query().Get("account"); code != "" {
		id, ok := s.resolveAccount(w, r, code)
		if !ok {
			return
		}
		q.AccountID = id
	}

	cb, err := s.reporter.Cashbook(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if search := r.URL.Query().Get("q"); search != "" {
		// Filtered rows keep their full-book running totals; the header
		// totals still describe the whole query.
		filtered := *cb
		filtered.Rows = cb.Filter(balance.CashbookView{Query: search})
		cb = &filtered
	}
	render.JSON(w, r, cb)
}

func (s *Server) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := s.dateParam(r, "as_of", model.Day(s.now()))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	tb, err := s.reporter.TrialBalance(r.Context(), asOf)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, tb)
}

// dateRange reads from and to. to defaults to today and from to the first
// day of to's year.
func (s *Server) dateRange(r *http.Request) (time.Time, time.Time, error) {
	end, err := s.dateParam(r, "to", model.Day(s.now()))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, err := s.dateParam(r, "from", time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (s *Server) dateParam(r *http.Request, name string, def time.Time) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	t, err := model.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

// resolveAccount maps an account code to its ID, replying 404 when the code
// is not in the chart.
func (s *Server) resolveAccount(w http.ResponseWriter, r *http.Request, code string) (int, bool) {
	dir, err := s.reporter.Accounts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return 0, false
	}
	acct, ok := dir.ByCode(code)
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{Error: fmt.Sprintf("account %s not found", code)})
		return 0, false
	}
	return acct.ID, true
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{Error: err.Error()})
}

// fail maps projection errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, balance.ErrInvalidDateRange):
		status = http.StatusBadRequest
	case errors.Is(err, balance.ErrSourceUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("projection failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error()})
}
