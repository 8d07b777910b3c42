package httptransport

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"arcop/internal/audit"
	"arcop/internal/domain"
	"arcop/internal/platform/config"
	"arcop/internal/platform/middleware"
	"arcop/internal/request"
	"arcop/internal/transport/http/shared"
	dErrors "arcop/pkg/domain-errors"
	"arcop/pkg/requestcontext"
	"arcop/pkg/secrets"
)

const sessionTTL = 8 * time.Hour

// ReviewerService defines the back-office lifecycle operations.
type ReviewerService interface {
	Assign(ctx context.Context, number, assignee string) (domain.Request, error)
	Start(ctx context.Context, number string) (domain.Request, error)
	Resolve(ctx context.Context, number, downloadURL string) (domain.Request, error)
	Close(ctx context.Context, number string) (domain.Request, error)
	Reject(ctx context.Context, number, reason string) (domain.Request, error)
	ListAll(ctx context.Context) ([]domain.Request, error)
	Stats(ctx context.Context) (request.Stats, error)
}

// TokenIssuer mints reviewer session tokens after a successful login.
type TokenIssuer interface {
	GenerateToken(username string, expiresIn time.Duration) (string, error)
}

// AuditPublisher records reviewer logins and serves the per-request
// activity trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
	List(ctx context.Context, ref string) ([]audit.Event, error)
}

// ReviewerHandler serves the authenticated back-office endpoints.
type ReviewerHandler struct {
	service   ReviewerService
	tokens    TokenIssuer
	validator middleware.JWTValidator
	cfg       config.Reviewer
	logger    *slog.Logger
	audit     AuditPublisher
}

func NewReviewerHandler(
	service ReviewerService,
	tokens TokenIssuer,
	validator middleware.JWTValidator,
	cfg config.Reviewer,
	logger *slog.Logger,
	auditPublisher AuditPublisher) *ReviewerHandler {
	return &ReviewerHandler{
		service:   service,
		tokens:    tokens,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
		audit:     auditPublisher,
	}
}

// Register mounts the reviewer routes. Everything except login sits behind
// the bearer-token guard.
func (h *ReviewerHandler) Register(r chi.Router) {
	reviewer := chi.NewRouter()
	reviewer.Use(middleware.Timeout(30 * time.Second))
	reviewer.Use(middleware.ContentTypeJSON)

	reviewer.Post("/login", h.handleLogin)

	reviewer.Group(func(g chi.Router) {
		g.Use(middleware.RequireReviewer(h.validator, h.logger))
		g.Get("/requests", h.handleList)
		g.Get("/requests/{number}/log", h.handleLog)
		g.Get("/stats", h.handleStats)
		g.Post("/requests/{number}/assign", h.handleAssign)
		g.Post("/requests/{number}/start", h.handleStart)
		g.Post("/requests/{number}/resolve", h.handleResolve)
		g.Post("/requests/{number}/close", h.handleClose)
		g.Post("/requests/{number}/reject", h.handleReject)
	})

	r.Mount("/reviewer", reviewer)
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponseBody struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

func (h *ReviewerHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body loginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if h.cfg.PasswordHash == "" {
		h.logger.ErrorContext(ctx, "reviewer login attempted but no password hash configured")
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "reviewer login is not configured"))
		return
	}

	usernameMatch := subtle.ConstantTimeCompare([]byte(body.Username), []byte(h.cfg.Username)) == 1
	if err := secrets.Verify(body.Password, h.cfg.PasswordHash); err != nil || !usernameMatch {
		h.logger.WarnContext(ctx, "reviewer login rejected",
			"username", body.Username,
			"request_id", requestcontext.RequestID(ctx))
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		return
	}

	token, err := h.tokens.GenerateToken(body.Username, sessionTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "could not mint session token", "error", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not create session"))
		return
	}

	if h.audit != nil {
		_ = h.audit.Emit(ctx, audit.Event{
			Timestamp: requestcontext.Now(ctx),
			Action:    audit.ActionReviewerLogin,
			Actor:     body.Username,
			Detail:    "ip=" + requestcontext.ClientIP(ctx),
		})
	}

	shared.WriteJSON(w, http.StatusOK, loginResponseBody{
		Token:     token,
		ExpiresIn: int(sessionTTL.Seconds()),
	})
}

// requestBody is the full reviewer view. The validation token itself never
// leaves the service boundary.
type requestBody struct {
	ID                string     `json:"id"`
	Number            string     `json:"number"`
	FullName          string     `json:"full_name"`
	RUT               string     `json:"rut"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone,omitempty"`
	Kind              string     `json:"kind"`
	Scope             string     `json:"scope"`
	Categories        []string   `json:"categories,omitempty"`
	Format            string     `json:"preferred_format"`
	Status            string     `json:"status"`
	IdentityValidated bool       `json:"identity_validated"`
	AssignedTo        string     `json:"assigned_to,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	DownloadURL       string     `json:"download_url,omitempty"`
	DownloadURLExpiry *time.Time `json:"download_url_expiry,omitempty"`
	OriginIP          string     `json:"origin_ip,omitempty"`
	UserAgent         string     `json:"user_agent,omitempty"`
	ResponseDeadline  time.Time  `json:"response_deadline"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func requestResponse(req domain.Request) requestBody {
	return requestBody{
		ID:                req.ID,
		Number:            req.Number,
		FullName:          req.FullName,
		RUT:               req.RUT,
		Email:             req.Email,
		Phone:             req.Phone,
		Kind:              string(req.Kind),
		Scope:             string(req.Scope),
		Categories:        req.Categories,
		Format:            string(req.Format),
		Status:            string(req.Status),
		IdentityValidated: req.IdentityValidated,
		AssignedTo:        req.AssignedTo,
		ResolvedAt:        req.ResolvedAt,
		DownloadURL:       req.DownloadURL,
		DownloadURLExpiry: req.DownloadURLExpiry,
		OriginIP:          req.OriginIP,
		UserAgent:         req.UserAgent,
		ResponseDeadline:  req.ResponseDeadline,
		CreatedAt:         req.CreatedAt,
		UpdatedAt:         req.UpdatedAt,
	}
}

func (h *ReviewerHandler) handleList(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.ListAll(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]requestBody, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, requestResponse(req))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"requests": out})
}

type logEntryBody struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	Actor     string    `json:"actor"`
}

func (h *ReviewerHandler) handleLog(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	if h.audit == nil {
		shared.WriteJSON(w, http.StatusOK, map[string]any{"number": number, "log": []logEntryBody{}})
		return
	}
	entries, err := h.audit.List(r.Context(), number)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]logEntryBody, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntryBody{
			Timestamp: e.Timestamp,
			Action:    string(e.Action),
			Detail:    e.Detail,
			Actor:     e.Actor,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"number": number, "log": out})
}

func (h *ReviewerHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"total":     stats.Total,
		"overdue":   stats.Overdue,
		"by_status": stats.ByStatus,
		"by_kind":   stats.ByKind,
		"by_format": stats.ByFormat,
	})
}

type assignBody struct {
	Assignee string `json:"assignee"`
}

func (h *ReviewerHandler) handleAssign(w http.ResponseWriter, r *http.Request) {
	var body assignBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	h.respond(w, r, func(ctx context.Context, number string) (domain.Request, error) {
		return h.service.Assign(ctx, number, body.Assignee)
	})
}

func (h *ReviewerHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Start)
}

type resolveBody struct {
	DownloadURL string `json:"download_url"`
}

func (h *ReviewerHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var body resolveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	h.respond(w, r, func(ctx context.Context, number string) (domain.Request, error) {
		return h.service.Resolve(ctx, number, body.DownloadURL)
	})
}

func (h *ReviewerHandler) handleClose(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Close)
}

type rejectBody struct {
	Reason string `json:"reason"`
}

func (h *ReviewerHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	var body rejectBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	h.respond(w, r, func(ctx context.Context, number string) (domain.Request, error) {
		return h.service.Reject(ctx, number, body.Reason)
	})
}

func (h *ReviewerHandler) respond(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, number string) (domain.Request, error)) {
	ctx := r.Context()
	number := chi.URLParam(r, "number")

	req, err := op(ctx, number)
	if err != nil {
		h.logger.WarnContext(ctx, "reviewer operation failed",
			"number", number,
			"error", err,
			"actor", requestcontext.Actor(ctx),
			"request_id", requestcontext.RequestID(ctx))
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, requestResponse(req))
}
