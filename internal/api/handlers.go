package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/directiveservice"
	"github.com/starford/raido/internal/importer"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	svc *directiveservice.Service
	imp *importer.Importer
}

// NewHandler creates a new Handler.
func NewHandler(svc *directiveservice.Service, imp *importer.Importer) *Handler {
	return &Handler{svc: svc, imp: imp}
}

// listFilter builds a store filter from query parameters. "All" is accepted
// as a no-filter value for any field.
func listFilter(r *http.Request) store.Filter {
	q := r.URL.Query()
	get := func(name string) string {
		v := q.Get(name)
		if v == "All" {
			return ""
		}
		return v
	}
	return store.Filter{
		Source:    models.Source(get("source")),
		Owner:     get("owner"),
		Status:    models.MonitoringStatus(get("status")),
		SheetName: get("sheet"),
	}
}

// ListDirectives handles GET /api/directives.
//
//	@Summary		List directives with optional filtering
//	@Tags			directives
//	@Produce		json
//	@Param			source	query		string	false	"Filter by source"	Enums(CouncilDecision, BoardDecision)
//	@Param			owner	query		string	false	"Filter by owner (substring)"
//	@Param			status	query		string	false	"Filter by monitoring status"
//	@Param			sheet	query		string	false	"Filter by sheet name"
//	@Success		200		{object}	DirectiveListResponse
//	@Security		BearerAuth
//	@Router			/directives [get]
func (h *Handler) ListDirectives(w http.ResponseWriter, r *http.Request) {
	directives, err := h.svc.List(r.Context(), listFilter(r))
	if err != nil {
		slog.Error("list directives failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if directives == nil {
		directives = []*models.Directive{}
	}
	writeJSON(w, http.StatusOK, DirectiveListResponse{
		Directives: directives,
		Total:      len(directives),
	})
}

// GetDirective handles GET /api/directives/{id}.
//
//	@Summary		Get a single directive
//	@Tags			directives
//	@Produce		json
//	@Param			id	path		string	true	"Directive id"
//	@Success		200	{object}	models.Directive
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/directives/{id} [get]
func (h *Handler) GetDirective(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get directive failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CreateDirective handles POST /api/directives.
//
//	@Summary		Create a directive
//	@Tags			directives
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDirectiveRequest	true	"Directive to create"
//	@Success		201		{object}	models.Directive
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/directives [post]
func (h *Handler) CreateDirective(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateDirectiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	d, err := h.svc.Create(r.Context(), req.toModel())
	if err != nil {
		slog.Error("create directive failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// UpdateDirective handles PUT /api/directives/{id}.
//
//	@Summary		Update a directive
//	@Tags			directives
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Directive id"
//	@Param			body	body		UpdateDirectiveRequest	true	"Fields to update"
//	@Success		200		{object}	models.Directive
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/directives/{id} [put]
func (h *Handler) UpdateDirective(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")
	var req UpdateDirectiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	patch := directiveservice.Patch{
		Subject:              req.Subject,
		Particulars:          req.Particulars,
		Owner:                req.Owner,
		PrimaryEmail:         req.PrimaryEmail,
		SecondaryEmail:       req.SecondaryEmail,
		Amount:               req.Amount,
		Vendor:               req.Vendor,
		SheetName:            req.SheetName,
		MeetingDate:          req.MeetingDate,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		ClearEndDate:         req.ClearEndDate,
		ImplementationStatus: req.ImplementationStatus,
		CompletionNote:       req.CompletionNote,
		UpdatedBy:            req.UpdatedBy,
	}
	if req.Outcomes != nil {
		patch.Outcomes = make([]models.Outcome, len(req.Outcomes))
		for i, o := range req.Outcomes {
			patch.Outcomes[i] = models.Outcome{
				Text:              o.Text,
				Status:            models.OutcomeStatus(o.Status),
				CompletionDetails: o.CompletionDetails,
				DelayReason:       o.DelayReason,
				Challenges:        o.Challenges,
			}
		}
	}

	d, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("update directive failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteDirective handles DELETE /api/directives/{id}.
//
//	@Summary		Delete a directive
//	@Tags			directives
//	@Param			id	path	string	true	"Directive id"
//	@Success		204	"Directive deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/directives/{id} [delete]
func (h *Handler) DeleteDirective(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("delete directive failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllDirectives handles DELETE /api/directives (administrative bulk clear).
//
//	@Summary		Delete all directives
//	@Tags			directives
//	@Produce		json
//	@Success		200	{object}	map[string]int64
//	@Security		BearerAuth
//	@Router			/directives [delete]
func (h *Handler) DeleteAllDirectives(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.DeleteAll(r.Context())
	if err != nil {
		slog.Error("bulk clear failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// RemindDirective handles POST /api/directives/{id}/remind.
//
//	@Summary		Send a manual reminder for a directive
//	@Tags			reminders
//	@Produce		json
//	@Param			id	path		string	true	"Directive id"
//	@Success		200	{object}	directiveservice.DispatchResult
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/directives/{id}/remind [post]
func (h *Handler) RemindDirective(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.svc.Remind(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("manual reminder failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Sweep handles POST /api/reminders/sweep (on-demand run of the daily pass).
//
//	@Summary		Run the reminder sweep now
//	@Tags			reminders
//	@Produce		json
//	@Success		200	{object}	directiveservice.SweepResult
//	@Security		BearerAuth
//	@Router			/reminders/sweep [post]
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Sweep(r.Context())
	if err != nil {
		slog.Error("manual sweep failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetSettings handles GET /api/reminder-settings.
//
//	@Summary		Get reminder settings
//	@Tags			reminders
//	@Produce		json
//	@Success		200	{object}	models.ReminderSettings
//	@Security		BearerAuth
//	@Router			/reminder-settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.Settings(r.Context())
	if err != nil {
		slog.Error("get settings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/reminder-settings.
//
//	@Summary		Update reminder settings
//	@Tags			reminders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReminderSettingsRequest	true	"New settings"
//	@Success		200		{object}	models.ReminderSettings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reminder-settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req ReminderSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	settings, err := h.svc.UpdateSettings(r.Context(), req.toModel())
	if err != nil {
		slog.Error("update settings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Stats handles GET /api/reports/stats.
//
//	@Summary		Aggregate compliance report
//	@Tags			reports
//	@Produce		json
//	@Param			source	query		string	false	"Narrow to one source"
//	@Success		200		{object}	store.Stats
//	@Security		BearerAuth
//	@Router			/reports/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "All" {
		source = ""
	}
	stats, err := h.svc.Stats(r.Context(), models.Source(source))
	if err != nil {
		slog.Error("stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// NonResponsive handles GET /api/reports/non-responsive.
//
//	@Summary		Directives with disengaged owners
//	@Tags			reports
//	@Produce		json
//	@Param			source	query		string	false	"Narrow to one source"
//	@Success		200		{object}	DirectiveListResponse
//	@Security		BearerAuth
//	@Router			/reports/non-responsive [get]
func (h *Handler) NonResponsive(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "All" {
		source = ""
	}
	directives, err := h.svc.NonResponsive(r.Context(), models.Source(source))
	if err != nil {
		slog.Error("non-responsive report failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if directives == nil {
		directives = []*models.Directive{}
	}
	writeJSON(w, http.StatusOK, DirectiveListResponse{Directives: directives, Total: len(directives)})
}

// Owners handles GET /api/owners.
//
//	@Summary		List known process owners
//	@Tags			directives
//	@Produce		json
//	@Success		200	{object}	map[string][]string
//	@Security		BearerAuth
//	@Router			/owners [get]
func (h *Handler) Owners(w http.ResponseWriter, r *http.Request) {
	owners, err := h.svc.Owners(r.Context())
	if err != nil {
		slog.Error("owners failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if owners == nil {
		owners = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"owners": owners})
}

// Sheets handles GET /api/sheets.
//
//	@Summary		List known sheet names
//	@Tags			directives
//	@Produce		json
//	@Success		200	{object}	map[string][]string
//	@Security		BearerAuth
//	@Router			/sheets [get]
func (h *Handler) Sheets(w http.ResponseWriter, r *http.Request) {
	sheets, err := h.svc.Sheets(r.Context())
	if err != nil {
		slog.Error("sheets failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if sheets == nil {
		sheets = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sheets": sheets})
}

// Import handles POST /api/import: a CSV request body, with the sheet name
// in the "sheet" query parameter.
//
//	@Summary		Import directives from CSV
//	@Tags			import
//	@Accept			text/csv
//	@Produce		json
//	@Param			sheet	query		string	true	"Sheet name for the batch"
//	@Success		200		{object}	importer.Result
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	sheet := r.URL.Query().Get("sheet")
	if sheet == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'sheet' is required"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	result, err := h.imp.ImportCSV(r.Context(), r.Body, sheet)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, result)
}
