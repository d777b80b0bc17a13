package httpx

import (
	"time"

	"github.com/zibanoo/commerce-core/internal/core/domain"
	"github.com/zibanoo/commerce-core/internal/core/ports"
)

type CreateOrderResponse struct {
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
}

type OrderLineDTO struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type StatusLogDTO struct {
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderResponse struct {
	ID           string         `json:"id"`
	OrderNumber  string         `json:"order_number"`
	Status       string         `json:"status"`
	Subtotal     int64          `json:"subtotal"`
	Discount     int64          `json:"discount"`
	Total        int64          `json:"total"`
	BankType     string         `json:"bank_type,omitempty"`
	TrackingCode string         `json:"tracking_code,omitempty"`
	Lines        []OrderLineDTO `json:"lines"`
	StatusLogs   []StatusLogDTO `json:"status_logs,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type ConfirmPaymentRequest struct {
	OrderID      string `json:"order_id"`
	BankType     string `json:"bank_type"`
	TrackingCode string `json:"tracking_code"`
	Amount       int64  `json:"amount"`
	Success      bool   `json:"success"`
}

type ValidateCouponRequest struct {
	Code string `json:"code"`
}

type CouponValidationResponse struct {
	Valid           bool   `json:"is_valid"`
	DiscountType    string `json:"discount_type"`
	DiscountPercent int    `json:"discount_value"`
	Message         string `json:"message"`
}

type AddCartLineRequest struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	CouponCode string `json:"coupon_code,omitempty"`
}

type CartLineDTO struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type CartResponse struct {
	Items  []CartLineDTO `json:"items"`
	Totals domain.Totals `json:"totals"`
}

type CreatePromotionRequest struct {
	Title           string    `json:"title"`
	DiscountType    string    `json:"discount_type"`
	DiscountPercent int       `json:"discount_percent"`
	Code            string    `json:"code,omitempty"`
	ProductIDs      []string  `json:"products,omitempty"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	IsActive        bool      `json:"is_active"`
	MaxUses         *int      `json:"max_uses,omitempty"`
}

type PromotionResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	DiscountType    string    `json:"discount_type"`
	DiscountPercent int       `json:"discount_percent"`
	Code            string    `json:"code,omitempty"`
	ProductIDs      []string  `json:"products,omitempty"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	IsActive        bool      `json:"is_active"`
	MaxUses         *int      `json:"max_uses,omitempty"`
	UsedCount       int       `json:"used_count"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func mapOrder(o *domain.Order, logs []domain.StatusLogEntry) OrderResponse {
	resp := OrderResponse{
		ID:          o.ID,
		OrderNumber: o.Number,
		Status:      string(o.Status),
		Subtotal:    o.Subtotal,
		Discount:    o.Discount,
		Total:       o.Total,
		Lines:       make([]OrderLineDTO, 0, len(o.Lines)),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.BankType != nil {
		resp.BankType = string(*o.BankType)
	}
	if o.TrackingCode != nil {
		resp.TrackingCode = *o.TrackingCode
	}
	for _, line := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineDTO{
			ProductID: line.ProductID,
			Title:     line.Title,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}
	for _, entry := range logs {
		resp.StatusLogs = append(resp.StatusLogs, StatusLogDTO{
			OldStatus: string(entry.OldStatus),
			NewStatus: string(entry.NewStatus),
			Actor:     entry.Actor,
			CreatedAt: entry.CreatedAt,
		})
	}
	return resp
}

func mapCart(view *ports.CartView) CartResponse {
	resp := CartResponse{
		Items:  make([]CartLineDTO, 0, len(view.Lines)),
		Totals: view.Totals,
	}
	for _, lv := range view.Lines {
		resp.Items = append(resp.Items, CartLineDTO{
			ID:        lv.Line.ID,
			ProductID: lv.Line.ProductID,
			Title:     lv.ProductTitle,
			UnitPrice: lv.UnitPrice,
			Quantity:  lv.Line.Quantity,
			Subtotal:  lv.Subtotal,
		})
	}
	return resp
}

func mapPromotion(p *domain.Promotion) PromotionResponse {
	resp := PromotionResponse{
		ID:              p.ID,
		Title:           p.Title,
		DiscountType:    string(p.Kind),
		DiscountPercent: p.DiscountPercent,
		ProductIDs:      p.ProductIDs,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		IsActive:        p.IsActive,
		MaxUses:         p.MaxUses,
		UsedCount:       p.UsedCount,
	}
	if p.Code != nil {
		resp.Code = *p.Code
	}
	return resp
}
