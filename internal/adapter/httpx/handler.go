package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zibanoo/commerce-core/internal/adapter/httpx/middlewares"
	"github.com/zibanoo/commerce-core/internal/core/domain"
	"github.com/zibanoo/commerce-core/internal/core/ports"
)

// Handler translates HTTP requests into service calls. It owns no business
// rules: validation beyond JSON shape and all sequencing live in the
// services.
type Handler struct {
	orders     ports.OrderService
	checkout   ports.CheckoutService
	promotions ports.PromotionService
	cart       ports.CartService
}

func NewHandler(
	orders ports.OrderService,
	checkout ports.CheckoutService,
	promotions ports.PromotionService,
	cart ports.CartService,
) *Handler {
	return &Handler{
		orders:     orders,
		checkout:   checkout,
		promotions: promotions,
		cart:       cart,
	}
}

// CreateOrder snapshots the caller's active cart into a new PENDING order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := middlewares.UserID(r.Context())

	order, err := h.orders.CreateOrder(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateOrderResponse{
		OrderNumber: order.Number,
		Status:      string(order.Status),
	})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), middlewares.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, mapOrder(&orders[i], nil))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	details, err := h.orders.GetOrder(r.Context(),
		chi.URLParam(r, "id"),
		middlewares.UserID(r.Context()),
		middlewares.IsAdmin(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(details.Order, details.StatusLogs))
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Cancel(r.Context(),
		chi.URLParam(r, "id"),
		middlewares.UserID(r.Context()),
		middlewares.IsAdmin(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order, nil))
}

func (h *Handler) ProcessOrder(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.orders.Process)
}

func (h *Handler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.orders.Ship)
}

func (h *Handler) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.orders.Deliver)
}

// ConfirmPayment is the payment-gateway webhook. It is idempotent: repeated
// deliveries for an already-PAID order return the current state and run no
// side effects.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	order, err := h.checkout.ConfirmPayment(r.Context(), ports.PaymentConfirmation{
		OrderID:      req.OrderID,
		BankType:     domain.BankType(req.BankType),
		TrackingCode: req.TrackingCode,
		Amount:       req.Amount,
		Success:      req.Success,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order, nil))
}

func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req ValidateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	v, err := h.promotions.ValidateCode(r.Context(), req.Code)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CouponValidationResponse{
		Valid:           v.Valid,
		DiscountType:    string(v.Kind),
		DiscountPercent: v.DiscountPercent,
		Message:         v.Message,
	})
}

func (h *Handler) ListCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.cart.ListCart(r.Context(), middlewares.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(view))
}

func (h *Handler) AddCartLine(w http.ResponseWriter, r *http.Request) {
	var req AddCartLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	line, err := h.cart.AddLine(r.Context(), ports.AddCartLineInput{
		UserID:     middlewares.UserID(r.Context()),
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": line.ID})
}

func (h *Handler) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	err := h.cart.RemoveLine(r.Context(), chi.URLParam(r, "id"), middlewares.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	filter, err := promotionFilterFromQuery(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	promos, err := h.promotions.ListPromotions(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]PromotionResponse, 0, len(promos))
	for i := range promos {
		out = append(out, mapPromotion(&promos[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	var req CreatePromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	promo, err := h.promotions.CreatePromotion(r.Context(), ports.CreatePromotionInput{
		Title:           req.Title,
		Kind:            domain.PromotionKind(req.DiscountType),
		DiscountPercent: req.DiscountPercent,
		Code:            req.Code,
		ProductIDs:      req.ProductIDs,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		IsActive:        req.IsActive,
		MaxUses:         req.MaxUses,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapPromotion(promo))
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type transitionFunc func(ctx context.Context, orderID, actor string) (*domain.Order, error)

func (h *Handler) adminTransition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	order, err := fn(r.Context(), chi.URLParam(r, "id"), middlewares.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order, nil))
}

func promotionFilterFromQuery(r *http.Request) (ports.PromotionFilter, error) {
	var filter ports.PromotionFilter
	q := r.URL.Query()
	ve := domain.NewValidationError()

	if v := q.Get("is_active"); v != "" {
		active := v == "true" || v == "1"
		filter.IsActive = &active
	}
	if v := q.Get("discount_type"); v != "" {
		kind := domain.PromotionKind(v)
		if !kind.Known() {
			ve.Add("discount_type", "must be PRODUCT or COUPON")
		} else {
			filter.Kind = &kind
		}
	}
	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			ve.Add("start_date", "must be RFC3339")
		} else {
			filter.StartAfter = &t
		}
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			ve.Add("end_date", "must be RFC3339")
		} else {
			filter.EndBefore = &t
		}
	}
	if err := ve.ErrOrNil(); err != nil {
		return ports.PromotionFilter{}, err
	}
	return filter, nil
}
