package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
	"billing-reminder-bot/internal/infra/logging"
	"billing-reminder-bot/internal/usecase"
)

type coverageResponse struct {
	UserID         int64   `json:"user_id"`
	Name           string  `json:"name"`
	Today          string  `json:"today"`
	CoveredThrough *string `json:"covered_through"`
	NextDue        string  `json:"next_due"`
	Due            bool    `json:"due"`
	Muted          bool    `json:"muted"`
	MutedUntil     *string `json:"muted_until,omitempty"`
}

type dispatchResponse struct {
	UserID    int64  `json:"user_id"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

type scanResponse struct {
	RunID    string             `json:"run_id,omitempty"`
	Date     string             `json:"date"`
	Skipped  bool               `json:"skipped"`
	Scanned  int                `json:"scanned"`
	Muted    int                `json:"muted"`
	Due      int                `json:"due"`
	Sent     int                `json:"sent"`
	Failed   int                `json:"failed"`
	Results  []dispatchResponse `json:"results"`
	Failures []dispatchResponse `json:"failures"`
}

func dateString(t time.Time) string { return t.Format(time.DateOnly) }

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	cov, err := s.scan.Coverage(r.Context(), id, s.settings.Current(), s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := coverageResponse{
		UserID:  cov.User.ID,
		Name:    cov.User.DisplayName(),
		Today:   dateString(cov.Today),
		NextDue: dateString(cov.Coverage.NextDue),
		Due:     !cov.Muted && cov.Coverage.IsDue(cov.Today),
		Muted:   cov.Muted,
	}
	if ct := cov.Coverage.CoveredThrough; ct != nil {
		v := dateString(*ct)
		resp.CoveredThrough = &v
	}
	if mu := cov.User.MutedUntil; mu != nil {
		v := dateString(*mu)
		resp.MutedUntil = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Current())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var patch model.BillingPatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.IsEmpty() {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	cfg, err := s.settings.Update(r.Context(), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	report, err := s.reminders.RunScan(r.Context(), s.settings.Current(), s.notifier)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScanResponse(report))
}

func toScanResponse(rep *usecase.ScanReport) scanResponse {
	resp := scanResponse{
		RunID:    rep.RunID,
		Date:     dateString(rep.Date),
		Skipped:  rep.Skipped,
		Scanned:  rep.Scanned,
		Muted:    rep.Muted,
		Due:      len(rep.Due),
		Sent:     rep.Sent(),
		Failed:   rep.Failed(),
		Results:  make([]dispatchResponse, 0, len(rep.Results)),
		Failures: make([]dispatchResponse, 0, len(rep.Failures)),
	}
	for _, res := range rep.Results {
		d := dispatchResponse{UserID: res.UserID, Delivered: res.Delivered}
		if res.Err != nil {
			d.Error = res.Err.Error()
		}
		resp.Results = append(resp.Results, d)
	}
	for _, f := range rep.Failures {
		resp.Failures = append(resp.Failures, dispatchResponse{UserID: f.UserID, Error: f.Err.Error()})
	}
	return resp
}

// fail maps domain errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidBillingDay),
		errors.Is(err, domain.ErrInvalidTimezone),
		errors.Is(err, domain.ErrInvalidReminderTime),
		errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrMalformedTimestamp):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("admin request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
