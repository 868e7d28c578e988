package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hemobank/internal/inventory"
	"hemobank/internal/platform/middleware"
	"hemobank/internal/stock"
	"hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/httputil"
)

// Service is the stock surface the HTTP layer consumes.
type Service interface {
	AddStock(ctx context.Context, actor domain.Principal, bankID domain.BankID, group domain.BloodGroup, units int) (*inventory.Record, error)
	RemoveStock(ctx context.Context, actor domain.Principal, bankID domain.BankID, group domain.BloodGroup, units int) (*inventory.Record, error)
	Report(ctx context.Context) ([]stock.GroupTotal, error)
}

// Handler handles the stock report and administrator stock mutations.
type Handler struct {
	logger    *slog.Logger
	stock     Service
	validator middleware.TokenValidator
}

func New(stock Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		stock:     stock,
		validator: validator,
	}
}

// Register mounts the stock routes. The report is readable by any
// authenticated user; mutations additionally require the administrator role.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Get("/blood/stock", h.handleReport)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.logger))
			r.Post("/blood/stock/add", h.handleAdd)
			r.Post("/blood/stock/remove", h.handleRemove)
			r.Post("/admin/inventory/add", h.handleAdd)
		})
	})
}

// mutateRequest covers add and remove. bankId is optional; when absent the
// central bank is the target.
type mutateRequest struct {
	BankID     string `json:"bankId,omitempty"`
	BloodGroup string `json:"bloodGroup"`
	Units      int    `json:"units"`
}

func (r mutateRequest) parse() (domain.BankID, domain.BloodGroup, error) {
	group, err := domain.ParseBloodGroup(r.BloodGroup)
	if err != nil {
		return domain.BankID{}, "", err
	}
	if r.BankID == "" {
		return domain.BankID{}, group, nil
	}
	bankID, err := domain.ParseBankID(r.BankID)
	if err != nil {
		return domain.BankID{}, "", err
	}
	return bankID, group, nil
}

type stockRecordResponse struct {
	BankID     domain.BankID     `json:"bankId"`
	BloodGroup domain.BloodGroup `json:"bloodGroup"`
	Units      int               `json:"units"`
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.stock.AddStock)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.stock.RemoveStock)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, domain.Principal, domain.BankID, domain.BloodGroup, int) (*inventory.Record, error)) {
	ctx := r.Context()
	actor, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req mutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	bankID, group, err := req.parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := op(ctx, actor, bankID, group, req.Units)
	if err != nil {
		h.logger.WarnContext(ctx, "stock mutation rejected",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stockRecordResponse{
		BankID:     rec.BankID,
		BloodGroup: rec.Group,
		Units:      rec.Units,
	})
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.stock.Report(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
