package httptransport

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"arcop/internal/domain"
	"arcop/internal/request"
	"arcop/internal/transport/http/mocks"
	dErrors "arcop/pkg/domain-errors"
)

//go:generate mockgen -source=handlers_public.go -destination=mocks/public.go -package=mocks PublicService
type PublicHandlerSuite struct {
	suite.Suite
}

func TestPublicHandlerSuite(t *testing.T) {
	suite.Run(t, new(PublicHandlerSuite))
}

func newPublicRouter(t *testing.T) (http.Handler, *mocks.MockPublicService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockPublicService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := NewPublicHandler(mockService, logger, nil, nil)
	r := chi.NewRouter()
	handler.Register(r)
	return r, mockService
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body
}

func (s *PublicHandlerSuite) TestCreateReturnsRequestNumber() {
	router, mockService := newPublicRouter(s.T())
	createdAt := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	deadline := time.Date(2025, 3, 24, 10, 0, 0, 0, time.UTC)

	mockService.EXPECT().Create(gomock.Any(), request.CreateCommand{
		FullName:      "María José Contreras",
		RUT:           "12.345.678-5",
		Email:         "maria@example.cl",
		Kind:          "ACCESS",
		Scope:         "ALL",
		Format:        "PDF",
		TermsAccepted: true,
	}).Return(request.CreateResult{
		ID:               "b5e0e3ce-0000-4000-8000-000000000001",
		Number:           "SOL-2025-00001",
		Status:           domain.StatusPending,
		Email:            "maria@example.cl",
		CreatedAt:        createdAt,
		ResponseDeadline: deadline,
	}, nil)

	body, err := json.Marshal(map[string]any{
		"full_name":        "María José Contreras",
		"rut":              "12.345.678-5",
		"email":            "maria@example.cl",
		"kind":             "ACCESS",
		"scope":            "ALL",
		"preferred_format": "PDF",
		"terms_accepted":   true,
	})
	s.Require().NoError(err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewReader(body)))

	s.Equal(http.StatusCreated, rec.Code)
	resp := decodeBody(s.T(), rec)
	s.Equal("SOL-2025-00001", resp["number"])
	s.Equal("PENDING", resp["status"])
	s.Equal(true, resp["confirmation_sent"])
}

func (s *PublicHandlerSuite) TestCreateValidationFailureListsFields() {
	router, mockService := newPublicRouter(s.T())

	mockService.EXPECT().Create(gomock.Any(), gomock.Any()).Return(
		request.CreateResult{},
		dErrors.WithFields("full name is required", []dErrors.FieldError{
			{Field: "full_name", Message: "full name is required"},
			{Field: "rut", Message: "rut check digit does not match"},
		}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewReader([]byte(`{"rut":"12.345.678-0"}`))))

	s.Equal(http.StatusBadRequest, rec.Code)
	resp := decodeBody(s.T(), rec)
	errBody := resp["error"].(map[string]any)
	s.Equal("validation_failed", errBody["code"])
	fields := errBody["fields"].([]any)
	s.Len(fields, 2)
	first := fields[0].(map[string]any)
	s.Equal("full_name", first["field"])
}

func (s *PublicHandlerSuite) TestCreateStillSucceedsWhenConfirmationEmailFails() {
	router, mockService := newPublicRouter(s.T())

	res := request.CreateResult{
		Number: "SOL-2025-00007",
		Status: domain.StatusPending,
		Email:  "maria@example.cl",
	}
	mockService.EXPECT().Create(gomock.Any(), gomock.Any()).Return(
		res, dErrors.New(dErrors.CodeDeliveryFailed, "request stored but the confirmation email could not be sent"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewReader([]byte(`{"full_name":"x"}`))))

	s.Equal(http.StatusCreated, rec.Code)
	resp := decodeBody(s.T(), rec)
	s.Equal("SOL-2025-00007", resp["number"])
	s.Equal(false, resp["confirmation_sent"])
}

func (s *PublicHandlerSuite) TestCreateRejectsMalformedBody() {
	router, _ := newPublicRouter(s.T())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewReader([]byte(`{not json`))))

	s.Equal(http.StatusBadRequest, rec.Code)
	resp := decodeBody(s.T(), rec)
	s.Equal("bad_request", resp["error"].(map[string]any)["code"])
}

func (s *PublicHandlerSuite) TestValidateIdentity() {
	router, mockService := newPublicRouter(s.T())
	deadline := time.Date(2025, 3, 24, 10, 0, 0, 0, time.UTC)

	mockService.EXPECT().ValidateIdentity(gomock.Any(), "tok-abc").Return(domain.Request{
		Number:            "SOL-2025-00001",
		RUT:               "12.345.678-5",
		Status:            domain.StatusValidated,
		Kind:              domain.KindAccess,
		Format:            domain.FormatPDF,
		IdentityValidated: true,
		ResponseDeadline:  deadline,
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/requests/validate/tok-abc", nil))

	s.Equal(http.StatusOK, rec.Code)
	resp := decodeBody(s.T(), rec)
	s.Equal("SOL-2025-00001", resp["number"])
	s.Equal("VALIDATED", resp["status"])
	s.Equal("ACCESS", resp["kind"])
	s.Equal("**.***.**8-5", resp["rut"])
	s.Equal(true, resp["identity_validated"])
}

func (s *PublicHandlerSuite) TestValidateIdentityStatusMapping() {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown token", dErrors.New(dErrors.CodeNotFound, "validation link not found"), http.StatusNotFound},
		{"expired token", dErrors.New(dErrors.CodeTokenExpired, "validation link has expired"), http.StatusGone},
		{"already validated", dErrors.New(dErrors.CodeAlreadyValidated, "identity already validated"), http.StatusConflict},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			router, mockService := newPublicRouter(s.T())
			mockService.EXPECT().ValidateIdentity(gomock.Any(), "tok-abc").Return(domain.Request{}, tc.err)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/requests/validate/tok-abc", nil))

			s.Equal(tc.want, rec.Code)
		})
	}
}

func (s *PublicHandlerSuite) TestListByEmailMasksRUT() {
	router, mockService := newPublicRouter(s.T())

	mockService.EXPECT().ListByEmail(gomock.Any(), "maria@example.cl").Return([]request.Summary{{
		Number:        "SOL-2025-00001",
		Status:        domain.StatusPending,
		Kind:          domain.KindAccess,
		Format:        domain.FormatPDF,
		MaskedRUT:     "**.***.**8-5",
		DaysRemaining: 15,
	}}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/requests?email=maria%40example.cl", nil))

	s.Equal(http.StatusOK, rec.Code)
	resp := decodeBody(s.T(), rec)
	reqs := resp["requests"].([]any)
	s.Require().Len(reqs, 1)
	item := reqs[0].(map[string]any)
	s.Equal("**.***.**8-5", item["rut"])
	s.Equal(float64(15), item["days_remaining"])
	s.NotContains(item, "download_url")
}

func (s *PublicHandlerSuite) TestStatusByTokenExposesLiveDownloadLink() {
	router, mockService := newPublicRouter(s.T())

	mockService.EXPECT().GetByToken(gomock.Any(), "tok-abc").Return(request.Summary{
		Number:      "SOL-2025-00003",
		Status:      domain.StatusResolved,
		Kind:        domain.KindAccess,
		Format:      domain.FormatCSV,
		MaskedRUT:   "**.***.**8-5",
		DownloadURL: "https://files.example.cl/export.zip",
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/requests/token/tok-abc", nil))

	s.Equal(http.StatusOK, rec.Code)
	resp := decodeBody(s.T(), rec)
	s.Equal("RESOLVED", resp["status"])
	s.Equal("https://files.example.cl/export.zip", resp["download_url"])
}

func (s *PublicHandlerSuite) TestStatusByTokenUnknown() {
	router, mockService := newPublicRouter(s.T())

	mockService.EXPECT().GetByToken(gomock.Any(), "nope").Return(
		request.Summary{}, dErrors.New(dErrors.CodeNotFound, "request not found"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/requests/token/nope", nil))

	s.Equal(http.StatusNotFound, rec.Code)
}
