package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hemobank/internal/bank"
	"hemobank/internal/platform/middleware"
	"hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/httputil"
)

// Service is the bank administration surface the HTTP layer consumes.
type Service interface {
	Create(ctx context.Context, actor domain.Principal, in bank.CreateInput) (*bank.Bank, error)
	Update(ctx context.Context, actor domain.Principal, id domain.BankID, patch bank.DisplayPatch) (*bank.Bank, error)
	List(ctx context.Context, actor domain.Principal) ([]*bank.Bank, error)
}

// Handler handles bank administration endpoints.
type Handler struct {
	logger    *slog.Logger
	banks     Service
	validator middleware.TokenValidator
}

func New(banks Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		banks:     banks,
		validator: validator,
	}
}

// Register mounts the bank administration routes, all admin-only.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Use(middleware.RequireAdmin(h.logger))
		r.Post("/admin/banks", h.handleCreate)
		r.Post("/admin/banks/update", h.handleUpdate)
		r.Get("/admin/banks", h.handleList)
	})
}

type bankResponse struct {
	ID        domain.BankID `json:"id"`
	Name      string        `json:"name"`
	Address   string        `json:"address,omitempty"`
	City      string        `json:"city"`
	Phone     string        `json:"phone,omitempty"`
	Email     string        `json:"email,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func toBankResponse(b *bank.Bank) bankResponse {
	return bankResponse{
		ID:        b.ID,
		Name:      b.Name,
		Address:   b.Address,
		City:      b.City,
		Phone:     b.Phone,
		Email:     b.Email,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

type createRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	b, err := h.banks.Create(ctx, actor, bank.CreateInput{
		Name:    req.Name,
		Address: req.Address,
		City:    req.City,
		Phone:   req.Phone,
		Email:   req.Email,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "bank creation rejected",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toBankResponse(b))
}

type updateRequest struct {
	ID      string  `json:"id"`
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	id, err := domain.ParseBankID(req.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	b, err := h.banks.Update(ctx, actor, id, bank.DisplayPatch{
		Name:    req.Name,
		Address: req.Address,
		City:    req.City,
		Phone:   req.Phone,
		Email:   req.Email,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBankResponse(b))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	banks, err := h.banks.List(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]bankResponse, 0, len(banks))
	for _, b := range banks {
		out = append(out, toBankResponse(b))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
