package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"hemobank/internal/bank"
	"hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/testutil"
)

type stubService struct {
	created *bank.Bank
	err     error
	listed  []*bank.Bank

	gotCreate bank.CreateInput
	gotPatch  bank.DisplayPatch
	gotID     domain.BankID
}

func (s *stubService) Create(_ context.Context, _ domain.Principal, in bank.CreateInput) (*bank.Bank, error) {
	s.gotCreate = in
	return s.created, s.err
}

func (s *stubService) Update(_ context.Context, _ domain.Principal, id domain.BankID, patch bank.DisplayPatch) (*bank.Bank, error) {
	s.gotID, s.gotPatch = id, patch
	return s.created, s.err
}

func (s *stubService) List(context.Context, domain.Principal) ([]*bank.Bank, error) {
	return s.listed, nil
}

type stubValidator struct {
	principal domain.Principal
}

func (v *stubValidator) ValidateToken(string) (domain.Principal, error) {
	return v.principal, nil
}

func newTestRouter(svc *stubService, role domain.Role) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := &stubValidator{principal: domain.Principal{ID: domain.UserID(uuid.New()), Role: role}}
	r := chi.NewRouter()
	New(svc, validator, logger).Register(r)
	return r
}

func sampleBank() *bank.Bank {
	now := time.Now().UTC()
	return &bank.Bank{
		ID:        domain.NewBankID(),
		Name:      "Central Blood Bank",
		City:      "Metropolis",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateBankEndpoint(t *testing.T) {
	svc := &stubService{created: sampleBank()}
	router := newTestRouter(svc, domain.RoleAdmin)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/banks", map[string]string{
		"name": "Central Blood Bank",
		"city": "Metropolis",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "Central Blood Bank", svc.gotCreate.Name)
	require.Equal(t, "Metropolis", svc.gotCreate.City)

	var got bankResponse
	testutil.DecodeJSON(t, rec, &got)
	require.Equal(t, svc.created.ID, got.ID)
}

func TestCreateBankEndpointRequiresAdmin(t *testing.T) {
	router := newTestRouter(&stubService{}, domain.RolePatient)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/banks", map[string]string{"name": "X", "city": "Y"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateBankEndpointMapsConflict(t *testing.T) {
	svc := &stubService{err: dErrors.New(dErrors.CodeConflict, "a bank with this name already exists")}
	router := newTestRouter(svc, domain.RoleAdmin)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/banks", map[string]string{"name": "X", "city": "Y"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateBankEndpoint(t *testing.T) {
	svc := &stubService{created: sampleBank()}
	router := newTestRouter(svc, domain.RoleAdmin)

	id := domain.NewBankID()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/banks/update", map[string]string{
		"id":    id.String(),
		"phone": "555-0100",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, id, svc.gotID)
	require.NotNil(t, svc.gotPatch.Phone)
	require.Equal(t, "555-0100", *svc.gotPatch.Phone)
	require.Nil(t, svc.gotPatch.Name)
}

func TestListBanksEndpoint(t *testing.T) {
	svc := &stubService{listed: []*bank.Bank{sampleBank(), sampleBank()}}
	router := newTestRouter(svc, domain.RoleAdmin)

	req := testutil.NewJSONRequest(t, http.MethodGet, "/admin/banks", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []bankResponse
	testutil.DecodeJSON(t, rec, &got)
	require.Len(t, got, 2)
}
