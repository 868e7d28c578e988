package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hemobank/internal/booking"
	"hemobank/internal/platform/middleware"
	"hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/httputil"
)

// Service is the booking surface the HTTP layer consumes.
type Service interface {
	Book(ctx context.Context, actor domain.Principal, group domain.BloodGroup, quantity int, emergency bool) (*booking.Booking, error)
	Cancel(ctx context.Context, actor domain.Principal, id domain.BookingID) (*booking.Booking, error)
	List(ctx context.Context, actor domain.Principal) ([]*booking.Booking, error)
}

// Handler handles booking endpoints.
type Handler struct {
	logger    *slog.Logger
	bookings  Service
	validator middleware.TokenValidator
}

func New(bookings Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		bookings:  bookings,
		validator: validator,
	}
}

// Register mounts the booking routes. All of them require authentication;
// role checks beyond that live in the service.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/blood/book", h.handleBook)
		r.Post("/blood/cancel", h.handleCancel)
		r.Get("/blood/bookings", h.handleList)
	})
}

type bookRequest struct {
	BloodGroup string `json:"bloodGroup"`
	Quantity   int    `json:"quantity"`
	Emergency  bool   `json:"emergency"`
}

func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	group, err := domain.ParseBloodGroup(req.BloodGroup)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	b, err := h.bookings.Book(ctx, actor, group, req.Quantity, req.Emergency)
	if err != nil {
		h.logger.WarnContext(ctx, "booking rejected",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, b)
}

type cancelRequest struct {
	BookingID string `json:"bookingId"`
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	id, err := domain.ParseBookingID(req.BookingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	b, err := h.bookings.Cancel(ctx, actor, id)
	if err != nil {
		h.logger.WarnContext(ctx, "cancellation rejected",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	items, err := h.bookings.List(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []*booking.Booking{}
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}
