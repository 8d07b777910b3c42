// Package request orchestrates the lifecycle of data-subject access requests:
// intake, identity validation, the reviewer pipeline and deadline expiry.
package request

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"arcop/internal/audit"
	"arcop/internal/domain"
	"arcop/internal/notifier"
	"arcop/internal/platform/config"
	"arcop/internal/platform/metrics"
	"arcop/internal/request/store"
	"arcop/internal/rut"
	"arcop/internal/schedule"
	"arcop/internal/validation"
	dErrors "arcop/pkg/domain-errors"
	"arcop/pkg/platform/sentinel"
	pstrings "arcop/pkg/platform/strings"
	"arcop/pkg/requestcontext"
	"arcop/pkg/secrets"
)

// AuditPublisher records lifecycle actions in the activity log.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the request lifecycle. All deadline and expiry
// arithmetic reads time through requestcontext.Now exactly once per command.
type Service struct {
	store     store.Store
	notifier  notifier.Notifier
	deadlines config.Deadlines

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(st store.Store, n notifier.Notifier, deadlines config.Deadlines, opts ...Option) *Service {
	s := &Service{
		store:     st,
		notifier:  n,
		deadlines: deadlines,
		logger:    slog.Default(),
		tracer:    otel.Tracer("arcop/request"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the intake form, persists the request and mails the
// validation link. The request survives a failed delivery; the caller gets a
// delivery error but the record stays PENDING and queryable by email.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "request.Create")
	defer span.End()

	now := requestcontext.Now(ctx)

	res := validation.Validate(validation.Candidate{
		FullName:      cmd.FullName,
		RUT:           cmd.RUT,
		Email:         cmd.Email,
		Phone:         cmd.Phone,
		Scope:         cmd.Scope,
		Categories:    cmd.Categories,
		Format:        cmd.Format,
		TermsAccepted: cmd.TermsAccepted,
	})
	kind := domain.KindAccess
	if cmd.Kind != "" {
		kind = domain.Kind(cmd.Kind)
		if !kind.Valid() {
			res.Failures = append(res.Failures,
				validation.Failure{Field: "kind", Message: "unknown request kind"})
		}
	}
	if !res.Valid() {
		s.inc(func(m *metrics.Metrics) { m.ValidationFailures.Inc() })
		return CreateResult{}, validationError(res)
	}

	token, err := secrets.Generate()
	if err != nil {
		return CreateResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate validation token")
	}

	seq, err := s.store.NextSequence(ctx, now.Year())
	if err != nil {
		return CreateResult{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "could not allocate request number")
	}

	req := domain.Request{
		ID:               uuid.NewString(),
		Number:           fmt.Sprintf("SOL-%d-%05d", now.Year(), seq),
		FullName:         strings.TrimSpace(cmd.FullName),
		RUT:              rut.Format(cmd.RUT),
		Email:            validation.NormalizedEmail(cmd.Email),
		Phone:            strings.TrimSpace(cmd.Phone),
		Kind:             kind,
		Scope:            domain.Scope(cmd.Scope),
		Categories:       pstrings.DedupeAndTrim(cmd.Categories),
		Format:           domain.Format(cmd.Format),
		Status:           domain.StatusPending,
		ValidationToken:  token,
		TokenExpiry:      now.Add(time.Duration(s.deadlines.TokenExpiryMinutes) * time.Minute),
		ResponseDeadline: schedule.BusinessDaysFrom(now, s.deadlines.ResponseBusinessDays),
		OriginIP:         requestcontext.ClientIP(ctx),
		UserAgent:        requestcontext.UserAgent(ctx),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.Append(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return CreateResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "request identifier collision")
		}
		return CreateResult{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "could not persist request")
	}

	span.SetAttributes(attribute.String("request.number", req.Number))
	s.emitAudit(ctx, audit.Event{
		Timestamp: now,
		Action:    audit.ActionRequestCreated,
		Ref:       req.Number,
		Detail: fmt.Sprintf("kind=%s scope=%s format=%s agent=%s",
			req.Kind, req.Scope, req.Format, agentSummary(req.UserAgent)),
	})
	s.inc(func(m *metrics.Metrics) { m.RequestsCreated.Inc() })
	s.logger.InfoContext(ctx, "request created",
		"number", req.Number, "kind", req.Kind, "format", req.Format)

	result := CreateResult{
		ID:               req.ID,
		Number:           req.Number,
		Status:           req.Status,
		Email:            req.Email,
		CreatedAt:        req.CreatedAt,
		ResponseDeadline: req.ResponseDeadline,
	}

	if err := s.notifier.SendConfirmation(ctx, req); err != nil {
		s.inc(func(m *metrics.Metrics) { m.DeliveryFailures.Inc() })
		s.logger.ErrorContext(ctx, "confirmation email failed",
			"number", req.Number, "error", err)
		return result, dErrors.Wrap(err, dErrors.CodeDeliveryFailed,
			"request stored but the confirmation email could not be sent")
	}
	return result, nil
}

// ValidateIdentity consumes a validation link. An expired token leaves the
// request untouched, PENDING, until the deadline sweeper picks it up. The
// token stays on the record after use; a second click reports the request as
// already validated instead of failing the lookup.
func (s *Service) ValidateIdentity(ctx context.Context, token string) (domain.Request, error) {
	ctx, span := s.tracer.Start(ctx, "request.ValidateIdentity")
	defer span.End()

	now := requestcontext.Now(ctx)

	req, err := s.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.Request{}, dErrors.New(dErrors.CodeNotFound, "validation link not found")
		}
		return domain.Request{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "could not look up validation token")
	}
	span.SetAttributes(attribute.String("request.number", req.Number))

	if req.IdentityValidated {
		return domain.Request{}, dErrors.New(dErrors.CodeAlreadyValidated, "identity already validated for this request")
	}
	if req.TokenExpired(now) {
		s.inc(func(m *metrics.Metrics) { m.TokensExpired.Inc() })
		return domain.Request{}, dErrors.New(dErrors.CodeTokenExpired,
			"the validation link has expired, please submit a new request")
	}
	if !req.Status.CanTransitionTo(domain.StatusValidated) {
		return domain.Request{}, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot validate identity from status %s", req.Status))
	}

	validated := domain.StatusValidated
	yes := true
	updated, err := s.store.Update(ctx, req.ID, req.Version,
		domain.Patch{Status: &validated, IdentityValidated: &yes}, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the race. If the winner was another click on the same
			// link, report that instead of a bare conflict.
			current, readErr := s.store.FindByToken(ctx, token)
			if readErr == nil && current.IdentityValidated {
				return domain.Request{}, dErrors.New(dErrors.CodeAlreadyValidated, "identity already validated for this request")
			}
			return domain.Request{}, dErrors.Wrap(err, dErrors.CodeInvalidTransition, "request was modified concurrently")
		}
		return domain.Request{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "could not update request")
	}

	s.emitAudit(ctx, audit.Event{
		Timestamp: now,
		Action:    audit.ActionIdentityValidated,
		Ref:       updated.Number,
	})
	s.inc(func(m *metrics.Metrics) { m.IdentitiesValidated.Inc() })
	s.logger.InfoContext(ctx, "identity validated", "number", updated.Number)

	if err := s.notifier.SendIdentityConfirmed(ctx, updated); err != nil {
		// The transition already happened; losing the acknowledgement email
		// is not worth failing the validation over.
		s.inc(func(m *metrics.Metrics) { m.DeliveryFailures.Inc() })
		s.logger.ErrorContext(ctx, "identity-validated email failed",
			"number", updated.Number, "error", err)
	}
	return updated, nil
}

// Assign hands the request to a named reviewer.
func (s *Service) Assign(ctx context.Context, number, assignee string) (domain.Request, error) {
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return domain.Request{}, dErrors.New(dErrors.CodeBadRequest, "assignee is required")
	}
	assigned := domain.StatusAssigned
	return s.transition(ctx, number, audit.ActionRequestAssigned,
		domain.Patch{Status: &assigned, AssignedTo: &assignee},
		"assignee="+assignee)
}

// Start marks the assigned request as being worked on.
func (s *Service) Start(ctx context.Context, number string) (domain.Request, error) {
	inProgress := domain.StatusInProgress
	return s.transition(ctx, number, audit.ActionRequestStarted,
		domain.Patch{Status: &inProgress}, "")
}

// Resolve publishes the download link and mails the data-ready notice. The
// link stays live for the configured window.
func (s *Service) Resolve(ctx context.Context, number, downloadURL string) (domain.Request, error) {
	downloadURL = strings.TrimSpace(downloadURL)
	if downloadURL == "" {
		return domain.Request{}, dErrors.New(dErrors.CodeBadRequest, "download URL is required")
	}

	now := requestcontext.Now(ctx)
	resolved := domain.StatusResolved
	urlExpiry := now.Add(time.Duration(s.deadlines.DownloadLinkHours) * time.Hour)
	updated, err := s.transition(ctx, number, audit.ActionRequestResolved, domain.Patch{
		Status:            &resolved,
		ResolvedAt:        &now,
		DownloadURL:       &downloadURL,
		DownloadURLExpiry: &urlExpiry,
	}, "")
	if err != nil {
		return domain.Request{}, err
	}

	if err := s.notifier.SendDataReady(ctx, updated); err != nil {
		s.inc(func(m *metrics.Metrics) { m.DeliveryFailures.Inc() })
		s.logger.ErrorContext(ctx, "data-ready email failed",
			"number", updated.Number, "error", err)
	}
	return updated, nil
}

// Close finishes a resolved request.
func (s *Service) Close(ctx context.Context, number string) (domain.Request, error) {
	closed := domain.StatusClosed
	return s.transition(ctx, number, audit.ActionRequestClosed,
		domain.Patch{Status: &closed}, "")
}

// Reject turns the request down with a stated reason.
func (s *Service) Reject(ctx context.Context, number, reason string) (domain.Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Request{}, dErrors.New(dErrors.CodeBadRequest, "a rejection reason is required")
	}
	rejected := domain.StatusRejected
	return s.transition(ctx, number, audit.ActionRequestRejected,
		domain.Patch{Status: &rejected}, "reason="+reason)
}

func (s *Service) transition(ctx context.Context, number string, action audit.Action, patch domain.Patch, detail string) (domain.Request, error) {
	now := requestcontext.Now(ctx)

	req, err := s.store.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.Request{}, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return domain.Request{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "could not look up request")
	}
	if patch.Status == nil || !req.Status.CanTransitionTo(*patch.Status) {
		target := domain.Status("")
		if patch.Status != nil {
			target = *patch.Status
		}
		return domain.Request{}, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", req.Status, target))
	}

	updated, err := s.store.Update(ctx, req.ID, req.Version, patch, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return domain.Request{}, dErrors.Wrap(err, dErrors.CodeInvalidTransition, "request was modified concurrently")
		}
		return domain.Request{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "could not update request")
	}

	s.emitAudit(ctx, audit.Event{
		Timestamp: now,
		Action:    action,
		Ref:       updated.Number,
		Detail:    detail,
		Actor:     requestcontext.Actor(ctx),
	})
	s.logger.InfoContext(ctx, "request transitioned",
		"number", updated.Number, "status", updated.Status, "actor", requestcontext.Actor(ctx))
	return updated, nil
}

// ExpireOverdue sweeps requests past their response deadline into EXPIRED.
// Requests that change concurrently are skipped; the next sweep retries them.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "request.ExpireOverdue")
	defer span.End()

	now := requestcontext.Now(ctx)

	overdue, err := s.store.ListOverdue(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "could not list overdue requests")
	}

	expired := domain.StatusExpired
	count := 0
	for _, req := range overdue {
		if _, err := s.store.Update(ctx, req.ID, req.Version, domain.Patch{Status: &expired}, now); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				continue
			}
			return count, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "could not expire request")
		}
		s.emitAudit(ctx, audit.Event{
			Timestamp: now,
			Action:    audit.ActionRequestExpired,
			Ref:       req.Number,
			Detail:    "deadline=" + req.ResponseDeadline.Format("2006-01-02"),
		})
		s.inc(func(m *metrics.Metrics) { m.RequestsExpired.Inc() })
		s.logger.WarnContext(ctx, "request expired past deadline", "number", req.Number)
		count++
	}
	span.SetAttributes(attribute.Int("expired.count", count))
	return count, nil
}

// ListByEmail returns public summaries of every request the address has filed.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]Summary, error) {
	email = validation.NormalizedEmail(email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "email is required")
	}

	now := requestcontext.Now(ctx)
	reqs, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "could not list requests")
	}

	summaries := make([]Summary, 0, len(reqs))
	for _, req := range reqs {
		summaries = append(summaries, newSummary(req, now))
	}
	return summaries, nil
}

// GetByToken returns the public summary behind a validation link, regardless
// of whether the token is still live. The status page uses it.
func (s *Service) GetByToken(ctx context.Context, token string) (Summary, error) {
	req, err := s.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Summary{}, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return Summary{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "could not look up request")
	}
	return newSummary(req, requestcontext.Now(ctx)), nil
}

// ListAll returns every request in full, for the reviewer board.
func (s *Service) ListAll(ctx context.Context) ([]domain.Request, error) {
	reqs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "could not list requests")
	}
	return reqs, nil
}

// Stats aggregates the portfolio for the reviewer dashboard.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	now := requestcontext.Now(ctx)

	counts, err := s.store.AggregateCounts(ctx)
	if err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "could not aggregate counts")
	}
	overdue, err := s.store.ListOverdue(ctx, now)
	if err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "could not list overdue requests")
	}

	return Stats{
		Total:    counts.Total,
		Overdue:  len(overdue),
		ByStatus: counts.ByStatus,
		ByKind:   counts.ByKind,
		ByFormat: counts.ByFormat,
	}, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if event.Actor == "" {
		event.Actor = requestcontext.Actor(ctx)
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action, "ref", event.Ref, "error", err)
	}
}

func (s *Service) inc(f func(m *metrics.Metrics)) {
	if s.metrics != nil {
		f(s.metrics)
	}
}

func validationError(res validation.Result) error {
	fields := make([]dErrors.FieldError, 0, len(res.Failures))
	for _, f := range res.Failures {
		fields = append(fields, dErrors.FieldError{Field: f.Field, Message: f.Message})
	}
	first, _ := res.First()
	return dErrors.WithFields(first.Message, fields)
}

func agentSummary(raw string) string {
	if raw == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return "unknown"
	}
	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := ua.OS(); os != "" {
		summary += " on " + os
	}
	return summary
}
