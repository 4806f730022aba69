package httpx

import (
	"log/slog"
	"net/http"

	"github.com/d0ggzi/celery-clinic/internal/domain/model"
	"github.com/d0ggzi/celery-clinic/internal/service"
)

// RecordHandlers serves the appointment JSON API.
type RecordHandlers struct {
	Svc    *service.AppointmentService
	Logger *slog.Logger
}

// Submit handles POST /records. It enqueues the booking and returns its id without waiting.
func (h *RecordHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	resp, err := h.Svc.Submit(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Status handles GET /records/{record_id}. Unknown ids report PENDING.
func (h *RecordHandlers) Status(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Svc.PollStatus(r.Context(), r.PathValue("record_id"))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// List handles GET /api/records with an optional JMESPath ?query=.
func (h *RecordHandlers) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.QueryRecords(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// Get handles GET /api/records/{record_id}.
func (h *RecordHandlers) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Svc.GetRecord(r.Context(), r.PathValue("record_id"))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}
