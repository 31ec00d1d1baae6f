package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/raffleapp/registration/internal/districts"
	"github.com/raffleapp/registration/internal/registration"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const maxFormBytes = 64 << 10

const (
	msgCSRF      = "Сессия устарела. Обновите страницу и попробуйте снова."
	msgStorage   = "Ошибка подключения к базе данных. Пожалуйста, попробуйте снова."
	msgServer    = "Ошибка сервера. Попробуйте позже."
	msgThrottled = "Слишком много попыток. Попробуйте позже."
)

// Registrar is satisfied by *registration.Service.
type Registrar interface {
	Register(ctx context.Context, sub registration.Submission) (*registration.Result, error)
}

type flash struct {
	Category string
	Message  string
}

type page struct {
	Form          registration.Submission
	Errors        map[string]string
	Flashes       []flash
	Modal         string
	CommunityLink string
	Districts     []string
	Genders       []registration.Choice
	CSRFToken     string
}

type Handler struct {
	registrar Registrar
	registry  *districts.Registry
	csrf      *CSRF
	log       *slog.Logger
}

func NewHandler(r Registrar, reg *districts.Registry, csrf *CSRF, log *slog.Logger) *Handler {
	if reg == nil {
		reg = districts.Default
	}
	return &Handler{registrar: r, registry: reg, csrf: csrf, log: log}
}

func (h *Handler) newPage(w http.ResponseWriter, r *http.Request) *page {
	return &page{
		Districts:     h.registry.Names(),
		Genders:       registration.Genders,
		CommunityLink: registration.DefaultCommunityLink,
		CSRFToken:     h.csrf.Token(w, r),
	}
}

// Index renders an empty form.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, h.newPage(w, r))
}

// Submit handles the posted form. Every path re-renders the form with the
// submitted values.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	p := h.newPage(w, r)
	p.Form = submissionFromRequest(r)

	if !h.csrf.Verify(r) {
		p.Flashes = append(p.Flashes, flash{"error", msgCSRF})
		h.render(w, http.StatusBadRequest, p)
		return
	}

	res, err := h.registrar.Register(r.Context(), p.Form)
	var verr *registration.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		p.Errors = verr.Fields
		h.render(w, http.StatusOK, p)
		return
	case errors.Is(err, registration.ErrStorage):
		h.log.Error("database error while processing form", "error", err)
		p.Flashes = append(p.Flashes, flash{"error", msgStorage})
		h.render(w, http.StatusServiceUnavailable, p)
		return
	default:
		h.log.Error("unexpected error while processing form", "error", err)
		p.Flashes = append(p.Flashes, flash{"error", msgServer})
		h.render(w, http.StatusInternalServerError, p)
		return
	}

	if res.Outcome.Rejected() {
		p.Flashes = append(p.Flashes, flash{"error", res.Message})
	} else {
		p.Modal = res.Modal
		p.CommunityLink = res.CommunityLink
	}
	h.render(w, http.StatusOK, p)
}

// Throttled re-renders the posted form with a flash when the submit
// throttle rejects the request.
func (h *Handler) Throttled(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	p := h.newPage(w, r)
	if err := r.ParseForm(); err == nil {
		p.Form = submissionFromRequest(r)
	}
	p.Flashes = append(p.Flashes, flash{"error", msgThrottled})
	h.render(w, http.StatusTooManyRequests, p)
}

func submissionFromRequest(r *http.Request) registration.Submission {
	return registration.Submission{
		FullName:  r.PostFormValue(registration.FieldFullName),
		Phone:     r.PostFormValue(registration.FieldPhone),
		Age:       r.PostFormValue(registration.FieldAge),
		Gender:    r.PostFormValue(registration.FieldGender),
		District:  r.PostFormValue(registration.FieldDistrict),
		Latitude:  r.PostFormValue(registration.FieldLatitude),
		Longitude: r.PostFormValue(registration.FieldLongitude),
	}
}

func (h *Handler) render(w http.ResponseWriter, status int, p *page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := indexTmpl.Execute(w, p); err != nil {
		h.log.Error("rendering index", "error", err)
	}
}

// Pinger is satisfied by *registration.GormStore.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the database answers.
func Health(p Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if err := p.Ping(r.Context()); err != nil {
			log.Warn("health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	}
}
