package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"arcop/internal/domain"
	"arcop/internal/platform/metrics"
	"arcop/internal/platform/middleware"
	"arcop/internal/ratelimit"
	"arcop/internal/request"
	"arcop/internal/rut"
	"arcop/internal/transport/http/shared"
	dErrors "arcop/pkg/domain-errors"
	"arcop/pkg/requestcontext"
)

// PublicService defines the lifecycle operations reachable without
// authentication.
type PublicService interface {
	Create(ctx context.Context, cmd request.CreateCommand) (request.CreateResult, error)
	ValidateIdentity(ctx context.Context, token string) (domain.Request, error)
	ListByEmail(ctx context.Context, email string) ([]request.Summary, error)
	GetByToken(ctx context.Context, token string) (request.Summary, error)
}

// PublicHandler serves the requester-facing intake and status endpoints.
type PublicHandler struct {
	service PublicService
	logger  *slog.Logger
	metrics *metrics.Metrics
	limiter *ratelimit.Middleware
}

// NewPublicHandler creates the public Handler. The limiter may be nil; only
// the intake endpoint is rate limited.
func NewPublicHandler(
	service PublicService,
	logger *slog.Logger,
	m *metrics.Metrics,
	limiter *ratelimit.Middleware) *PublicHandler {
	return &PublicHandler{
		service: service,
		logger:  logger,
		metrics: m,
		limiter: limiter,
	}
}

// Register mounts the public routes.
func (h *PublicHandler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(middleware.Timeout(30 * time.Second))
	api.Use(middleware.ContentTypeJSON)

	if h.limiter != nil {
		api.With(h.limiter.Limit).Post("/requests", h.handleCreate)
	} else {
		api.Post("/requests", h.handleCreate)
	}
	api.Post("/requests/validate/{token}", h.handleValidate)
	api.Get("/requests", h.handleListByEmail)
	api.Get("/requests/token/{token}", h.handleStatusByToken)

	r.Mount("/api", api)
}

type createRequestBody struct {
	FullName      string   `json:"full_name"`
	RUT           string   `json:"rut"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	Kind          string   `json:"kind"`
	Scope         string   `json:"scope"`
	Categories    []string `json:"categories"`
	Format        string   `json:"preferred_format"`
	TermsAccepted bool     `json:"terms_accepted"`
}

type createResponseBody struct {
	Number           string    `json:"number"`
	Status           string    `json:"status"`
	Email            string    `json:"email"`
	CreatedAt        time.Time `json:"created_at"`
	ResponseDeadline time.Time `json:"response_deadline"`
	ConfirmationSent bool      `json:"confirmation_sent"`
}

func (h *PublicHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	res, err := h.service.Create(ctx, request.CreateCommand{
		FullName:      body.FullName,
		RUT:           body.RUT,
		Email:         body.Email,
		Phone:         body.Phone,
		Kind:          body.Kind,
		Scope:         body.Scope,
		Categories:    body.Categories,
		Format:        body.Format,
		TermsAccepted: body.TermsAccepted,
	})
	if err != nil {
		// A failed confirmation email does not undo the intake. The
		// requester still gets their number; without it they could never
		// follow up on the request.
		if dErrors.Is(err, dErrors.CodeDeliveryFailed) && res.Number != "" {
			shared.WriteJSON(w, http.StatusCreated, createResponse(res, false))
			return
		}
		h.logger.WarnContext(ctx, "request intake failed",
			"error", err, "request_id", requestcontext.RequestID(ctx))
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, createResponse(res, true))
}

func createResponse(res request.CreateResult, sent bool) createResponseBody {
	return createResponseBody{
		Number:           res.Number,
		Status:           string(res.Status),
		Email:            res.Email,
		CreatedAt:        res.CreatedAt,
		ResponseDeadline: res.ResponseDeadline,
		ConfirmationSent: sent,
	}
}

type validateResponseBody struct {
	Number            string    `json:"number"`
	Status            string    `json:"status"`
	Kind              string    `json:"kind"`
	Format            string    `json:"preferred_format"`
	RUT               string    `json:"rut"`
	IdentityValidated bool      `json:"identity_validated"`
	ResponseDeadline  time.Time `json:"response_deadline"`
}

func (h *PublicHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := chi.URLParam(r, "token")

	req, err := h.service.ValidateIdentity(ctx, token)
	if err != nil {
		h.logger.WarnContext(ctx, "identity validation failed",
			"error", err, "request_id", requestcontext.RequestID(ctx))
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, validateResponseBody{
		Number:            req.Number,
		Status:            string(req.Status),
		Kind:              string(req.Kind),
		Format:            string(req.Format),
		RUT:               rut.Mask(req.RUT),
		IdentityValidated: req.IdentityValidated,
		ResponseDeadline:  req.ResponseDeadline,
	})
}

type summaryBody struct {
	Number            string    `json:"number"`
	Status            string    `json:"status"`
	Kind              string    `json:"kind"`
	Format            string    `json:"preferred_format"`
	RUT               string    `json:"rut"`
	IdentityValidated bool      `json:"identity_validated"`
	CreatedAt         time.Time `json:"created_at"`
	ResponseDeadline  time.Time `json:"response_deadline"`
	DaysRemaining     int       `json:"days_remaining"`
	DownloadURL       string    `json:"download_url,omitempty"`
}

func summaryResponse(s request.Summary) summaryBody {
	return summaryBody{
		Number:            s.Number,
		Status:            string(s.Status),
		Kind:              string(s.Kind),
		Format:            string(s.Format),
		RUT:               s.MaskedRUT,
		IdentityValidated: s.IdentityValidated,
		CreatedAt:         s.CreatedAt,
		ResponseDeadline:  s.ResponseDeadline,
		DaysRemaining:     s.DaysRemaining,
		DownloadURL:       s.DownloadURL,
	}
}

func (h *PublicHandler) handleListByEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summaries, err := h.service.ListByEmail(ctx, r.URL.Query().Get("email"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	out := make([]summaryBody, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, summaryResponse(s))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"requests": out})
}

func (h *PublicHandler) handleStatusByToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.service.GetByToken(ctx, chi.URLParam(r, "token"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, summaryResponse(summary))
}
