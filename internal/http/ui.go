package httpx

import (
	"log/slog"
	"net/http"

	"github.com/d0ggzi/celery-clinic/internal/domain/model"
	"github.com/d0ggzi/celery-clinic/internal/service"
)

// PageData is passed to every page template.
type PageData struct {
	Title   string
	Page    string
	Records []model.Record
	Error   string
}

// UIHandlers serves the HTML pages.
type UIHandlers struct {
	T      *TemplateRenderer
	Svc    *service.AppointmentService
	Logger *slog.Logger
}

// Index renders the booking form.
func (h *UIHandlers) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, PageIndex, PageData{Title: "Запись к врачу", Page: PageIndex})
}

// AllRecords renders completed appointments sorted by date.
func (h *UIHandlers) AllRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Svc.ListCompleted(r.Context())
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "list records", "error", err)
		h.render(w, r, http.StatusInternalServerError, PageRecords, PageData{
			Title: "Записи",
			Page:  PageRecords,
			Error: "Не удалось загрузить записи",
		})
		return
	}
	h.render(w, r, http.StatusOK, PageRecords, PageData{Title: "Записи", Page: PageRecords, Records: recs})
}

func (h *UIHandlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data PageData) {
	if err := h.T.Render(w, status, page, data); err != nil {
		h.Logger.ErrorContext(r.Context(), "render page", "page", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
