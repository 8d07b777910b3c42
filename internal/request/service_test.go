package request

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"arcop/internal/audit"
	"arcop/internal/domain"
	"arcop/internal/platform/config"
	"arcop/internal/request/store"
	dErrors "arcop/pkg/domain-errors"
	"arcop/pkg/requestcontext"
)

// fakeNotifier records every delivery so tests can assert on exactly-once
// semantics, and can be told to fail a specific delivery.
type fakeNotifier struct {
	mu            sync.Mutex
	confirmations []domain.Request
	validated     []domain.Request
	dataReady     []domain.Request

	failConfirmation error
	failDataReady    error
}

func (f *fakeNotifier) SendConfirmation(_ context.Context, req domain.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failConfirmation != nil {
		return f.failConfirmation
	}
	f.confirmations = append(f.confirmations, req)
	return nil
}

func (f *fakeNotifier) SendIdentityConfirmed(_ context.Context, req domain.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validated = append(f.validated, req)
	return nil
}

func (f *fakeNotifier) SendDataReady(_ context.Context, req domain.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDataReady != nil {
		return f.failDataReady
	}
	f.dataReady = append(f.dataReady, req)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	store    *store.InMemory
	notifier *fakeNotifier
	auditLog *audit.InMemoryStore
	svc      *Service
	base     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.notifier = &fakeNotifier{}
	s.auditLog = audit.NewInMemoryStore()
	s.svc = New(s.store, s.notifier, config.Deadlines{
		ResponseBusinessDays: 15,
		TokenExpiryMinutes:   30,
		DownloadLinkHours:    48,
	}, WithAuditPublisher(audit.NewPublisher(s.auditLog)))
	// Monday, well clear of weekends for deadline arithmetic.
	s.base = time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
}

// at returns a context whose clock reads the base time shifted by d.
func (s *ServiceSuite) at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.base.Add(d))
}

func validCommand() CreateCommand {
	return CreateCommand{
		FullName:      "María José Contreras",
		RUT:           "12.345.678-5",
		Email:         "Maria.Jose@Example.CL",
		Phone:         "+56 9 1234 5678",
		Scope:         "ALL",
		Format:        "PDF",
		TermsAccepted: true,
	}
}

func (s *ServiceSuite) TestCreate() {
	res, err := s.svc.Create(s.at(0), validCommand())
	s.Require().NoError(err)

	s.Equal("SOL-2025-00001", res.Number)
	s.Equal(domain.StatusPending, res.Status)
	s.Equal("maria.jose@example.cl", res.Email, "email is normalized to lower case")
	// 15 business days from Monday 2025-03-03.
	s.Equal(time.Date(2025, time.March, 24, 10, 0, 0, 0, time.UTC), res.ResponseDeadline)

	stored, err := s.store.FindByNumber(context.Background(), res.Number)
	s.Require().NoError(err)
	s.Equal("12.345.678-5", stored.RUT, "RUT is stored formatted")
	s.NotEmpty(stored.ValidationToken)
	s.Equal(s.base.Add(30*time.Minute), stored.TokenExpiry)
	s.False(stored.IdentityValidated)

	s.Require().Len(s.notifier.confirmations, 1, "exactly one confirmation email")
	s.Equal(stored.ValidationToken, s.notifier.confirmations[0].ValidationToken)

	events, err := s.auditLog.ListByRef(context.Background(), res.Number)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionRequestCreated, events[0].Action)
	s.Equal("system", events[0].Actor)
}

func (s *ServiceSuite) TestCreateNumbersAreSequentialPerYear() {
	first, err := s.svc.Create(s.at(0), validCommand())
	s.Require().NoError(err)
	second, err := s.svc.Create(s.at(time.Minute), validCommand())
	s.Require().NoError(err)

	s.Equal("SOL-2025-00001", first.Number)
	s.Equal("SOL-2025-00002", second.Number)
}

func (s *ServiceSuite) TestCreateCollectsAllValidationFailures() {
	cmd := CreateCommand{
		FullName:      "X",
		RUT:           "12.345.678-0",
		Email:         "not-an-email",
		Scope:         "SPECIFIC",
		Format:        "DOCX",
		TermsAccepted: false,
	}

	_, err := s.svc.Create(s.at(0), cmd)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	fields := dErrors.FieldsOf(err)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	s.Equal([]string{"full_name", "rut", "email", "categories", "preferred_format", "terms_accepted"}, names)

	s.Empty(s.notifier.confirmations, "nothing is sent for an invalid form")
	all, _ := s.store.ListAll(context.Background())
	s.Empty(all, "nothing is persisted for an invalid form")
}

func (s *ServiceSuite) TestCreateRejectsUnknownKind() {
	cmd := validCommand()
	cmd.Kind = "DELETION"

	_, err := s.svc.Create(s.at(0), cmd)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Require().Len(dErrors.FieldsOf(err), 1)
	s.Equal("kind", dErrors.FieldsOf(err)[0].Field)
}

func (s *ServiceSuite) TestCreateSurvivesDeliveryFailure() {
	s.notifier.failConfirmation = errors.New("smtp: connection refused")

	res, err := s.svc.Create(s.at(0), validCommand())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDeliveryFailed))
	s.Equal("SOL-2025-00001", res.Number, "the result is still returned")

	// The request outlives the failed email and stays queryable.
	summaries, err := s.svc.ListByEmail(s.at(time.Minute), "maria.jose@example.cl")
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Equal(domain.StatusPending, summaries[0].Status)
}

func (s *ServiceSuite) TestValidateIdentity() {
	res, err := s.svc.Create(s.at(0), validCommand())
	s.Require().NoError(err)
	stored, err := s.store.FindByNumber(context.Background(), res.Number)
	s.Require().NoError(err)

	updated, err := s.svc.ValidateIdentity(s.at(10*time.Minute), stored.ValidationToken)
	s.Require().NoError(err)
	s.Equal(domain.StatusValidated, updated.Status)
	s.True(updated.IdentityValidated)

	s.Require().Len(s.notifier.validated, 1, "exactly one identity-validated email")

	events, err := s.auditLog.ListByRef(context.Background(), res.Number)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.ActionIdentityValidated, events[1].Action)
}

func (s *ServiceSuite) TestValidateIdentityTwiceReportsAlreadyValidated() {
	res, err := s.svc.Create(s.at(0), validCommand())
	s.Require().NoError(err)
	stored, _ := s.store.FindByNumber(context.Background(), res.Number)

	_, err = s.svc.ValidateIdentity(s.at(5*time.Minute), stored.ValidationToken)
	s.Require().NoError(err)

	_, err = s.svc.ValidateIdentity(s.at(6*time.Minute), stored.ValidationToken)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyValidated))
	s.Len(s.notifier.validated, 1, "no second email")
}

func (s *ServiceSuite) TestValidateIdentityExpiredTokenLeavesRequestUntouched() {
	res, err := s.svc.Create(s.at(0), validCommand())
	s.Require().NoError(err)
	stored, _ := s.store.FindByNumber(context.Background(), res.Number)

	// 31 virtual minutes later the 30-minute window is over.
	_, err = s.svc.ValidateIdentity(s.at(31*time.Minute), stored.ValidationToken)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTokenExpired))

	after, err := s.store.FindByNumber(context.Background(), res.Number)
	s.Require().NoError(err)
	s.Equal(domain.StatusPending, after.Status, "expiry does not transition the request")
	s.False(after.IdentityValidated)
	s.Empty(s.notifier.validated)
}

func (s *ServiceSuite) TestValidateIdentityUnknownToken() {
	_, err := s.svc.ValidateIdentity(s.at(0), "no-such-token")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestValidateIdentityConcurrentClicksOneWinner() {
	res, err := s.svc.Create(s.at(0), validCommand())
	s.Require().NoError(err)
	stored, _ := s.store.FindByNumber(context.Background(), res.Number)

	const goroutines = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, alreadyValidated := 0, 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.ValidateIdentity(s.at(5*time.Minute), stored.ValidationToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case dErrors.HasCode(err, dErrors.CodeAlreadyValidated):
				alreadyValidated++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, successes, "exactly one click wins")
	s.Equal(goroutines-1, alreadyValidated, "losers are told the identity is already validated")
	s.Len(s.notifier.validated, 1, "exactly one email despite the race")
}

func (s *ServiceSuite) TestReviewerPipelineEndToEnd() {
	cmd := validCommand()
	cmd.Scope = "SPECIFIC"
	cmd.Categories = []string{"datos de contacto", " historial de compras "}
	res, err := s.svc.Create(s.at(0), cmd)
	s.Require().NoError(err)
	stored, _ := s.store.FindByNumber(context.Background(), res.Number)
	s.Equal([]string{"datos de contacto", "historial de compras"}, stored.Categories)

	_, err = s.svc.ValidateIdentity(s.at(5*time.Minute), stored.ValidationToken)
	s.Require().NoError(err)

	reviewer := requestcontext.WithActor(s.at(time.Hour), "dpo")
	assigned, err := s.svc.Assign(reviewer, res.Number, "ana.riquelme")
	s.Require().NoError(err)
	s.Equal(domain.StatusAssigned, assigned.Status)
	s.Equal("ana.riquelme", assigned.AssignedTo)

	started, err := s.svc.Start(requestcontext.WithActor(s.at(2*time.Hour), "dpo"), res.Number)
	s.Require().NoError(err)
	s.Equal(domain.StatusInProgress, started.Status)

	resolveCtx := requestcontext.WithActor(s.at(3*time.Hour), "dpo")
	resolved, err := s.svc.Resolve(resolveCtx, res.Number, "https://portal.example.cl/descargas/xyz")
	s.Require().NoError(err)
	s.Equal(domain.StatusResolved, resolved.Status)
	s.Require().NotNil(resolved.ResolvedAt)
	s.Require().NotNil(resolved.DownloadURLExpiry)
	s.Equal(s.base.Add(3*time.Hour+48*time.Hour), *resolved.DownloadURLExpiry)
	s.Require().Len(s.notifier.dataReady, 1, "data-ready email sent once")

	closed, err := s.svc.Close(requestcontext.WithActor(s.at(4*time.Hour), "dpo"), res.Number)
	s.Require().NoError(err)
	s.Equal(domain.StatusClosed, closed.Status)

	events, err := s.auditLog.ListByRef(context.Background(), res.Number)
	s.Require().NoError(err)
	actions := make([]audit.Action, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	s.Equal([]audit.Action{
		audit.ActionRequestCreated,
		audit.ActionIdentityValidated,
		audit.ActionRequestAssigned,
		audit.ActionRequestStarted,
		audit.ActionRequestResolved,
		audit.ActionRequestClosed,
	}, actions)
	s.Equal("dpo", events[2].Actor, "reviewer actions carry the actor")
}

func (s *ServiceSuite) TestAssignRequiresValidatedIdentity() {
	res, err := s.svc.Create(s.at(0), validCommand())
	s.Require().NoError(err)

	_, err = s.svc.Assign(s.at(time.Hour), res.Number, "ana.riquelme")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ServiceSuite) TestRejectNeedsReason() {
	res, err := s.svc.Create(s.at(0), validCommand())
	s.Require().NoError(err)

	_, err = s.svc.Reject(s.at(time.Hour), res.Number, "  ")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	rejected, err := s.svc.Reject(s.at(time.Hour), res.Number, "identity could not be verified")
	s.Require().NoError(err)
	s.Equal(domain.StatusRejected, rejected.Status)

	// Terminal states accept nothing further.
	_, err = s.svc.Close(s.at(2*time.Hour), res.Number)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ServiceSuite) TestTransitionUnknownNumber() {
	_, err := s.svc.Start(s.at(0), "SOL-2025-99999")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestExpireOverdue() {
	res, err := s.svc.Create(s.at(0), validCommand())
	s.Require().NoError(err)

	// One day past the 15-business-day deadline.
	pastDeadline := s.at(22 * 24 * time.Hour)
	count, err := s.svc.ExpireOverdue(pastDeadline)
	s.Require().NoError(err)
	s.Equal(1, count)

	after, err := s.store.FindByNumber(context.Background(), res.Number)
	s.Require().NoError(err)
	s.Equal(domain.StatusExpired, after.Status)

	events, err := s.auditLog.ListByRef(context.Background(), res.Number)
	s.Require().NoError(err)
	s.Equal(audit.ActionRequestExpired, events[len(events)-1].Action)

	// A second sweep finds nothing.
	count, err = s.svc.ExpireOverdue(pastDeadline)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ServiceSuite) TestExpireOverdueSkipsTerminalRequests() {
	res, err := s.svc.Create(s.at(0), validCommand())
	s.Require().NoError(err)
	_, err = s.svc.Reject(s.at(time.Hour), res.Number, "duplicate request")
	s.Require().NoError(err)

	count, err := s.svc.ExpireOverdue(s.at(22 * 24 * time.Hour))
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ServiceSuite) TestListByEmailMasksRUT() {
	_, err := s.svc.Create(s.at(0), validCommand())
	s.Require().NoError(err)

	summaries, err := s.svc.ListByEmail(s.at(time.Minute), "MARIA.JOSE@example.cl")
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Equal("**.***.**8-5", summaries[0].MaskedRUT)
	s.Empty(summaries[0].DownloadURL, "no link before resolution")
}

func (s *ServiceSuite) TestSummaryExposesDownloadLinkOnlyWhileLive() {
	res, err := s.svc.Create(s.at(0), validCommand())
	s.Require().NoError(err)
	stored, _ := s.store.FindByNumber(context.Background(), res.Number)
	_, err = s.svc.ValidateIdentity(s.at(5*time.Minute), stored.ValidationToken)
	s.Require().NoError(err)
	_, err = s.svc.Assign(s.at(time.Hour), res.Number, "ana.riquelme")
	s.Require().NoError(err)
	_, err = s.svc.Start(s.at(time.Hour), res.Number)
	s.Require().NoError(err)
	_, err = s.svc.Resolve(s.at(2*time.Hour), res.Number, "https://portal.example.cl/descargas/xyz")
	s.Require().NoError(err)

	live, err := s.svc.GetByToken(s.at(3*time.Hour), stored.ValidationToken)
	s.Require().NoError(err)
	s.Equal("https://portal.example.cl/descargas/xyz", live.DownloadURL)

	// 49 hours after resolution the link is hidden again.
	stale, err := s.svc.GetByToken(s.at(2*time.Hour+49*time.Hour), stored.ValidationToken)
	s.Require().NoError(err)
	s.Empty(stale.DownloadURL)
}

func (s *ServiceSuite) TestStats() {
	first, err := s.svc.Create(s.at(0), validCommand())
	s.Require().NoError(err)
	_, err = s.svc.Create(s.at(time.Minute), validCommand())
	s.Require().NoError(err)
	stored, _ := s.store.FindByNumber(context.Background(), first.Number)
	_, err = s.svc.ValidateIdentity(s.at(5*time.Minute), stored.ValidationToken)
	s.Require().NoError(err)

	stats, err := s.svc.Stats(s.at(time.Hour))
	s.Require().NoError(err)
	s.Equal(2, stats.Total)
	s.Zero(stats.Overdue)
	s.Equal(1, stats.ByStatus[domain.StatusPending])
	s.Equal(1, stats.ByStatus[domain.StatusValidated])
	s.Equal(2, stats.ByKind[domain.KindAccess])

	overdueStats, err := s.svc.Stats(s.at(22 * 24 * time.Hour))
	s.Require().NoError(err)
	s.Equal(2, overdueStats.Overdue)
}
