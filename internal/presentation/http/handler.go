package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shopora/checkout/internal/application/checkout"
	"github.com/shopora/checkout/internal/domain/order"
)

// Handler exposes the orchestrator operations over HTTP. Authentication is
// out of scope: the identity collaborator terminates it upstream and passes
// the result in X-User-ID / X-User-Role headers, which the core trusts.
type Handler struct {
	svc *checkout.Service
}

func NewHandler(svc *checkout.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	orders := r.Group("/orders")
	orders.POST("", h.createOrder)
	orders.GET("/:id", h.getOrder)
	orders.POST("/:id/checkout-session", h.initiatePayment)
	orders.POST("/:id/cancel", h.cancelOrder)
	orders.POST("/:id/advance", h.advanceStatus)
	orders.POST("/:id/freeze", h.freezeOrder)
	orders.POST("/:id/restore", h.restoreOrder)

	r.POST("/webhooks/stripe", h.paymentWebhook)
}

type createOrderRequest struct {
	Address string `json:"address" binding:"required,min=5,max=1000"`
	Phone   string `json:"phone" binding:"required"`
	Note    string `json:"note" binding:"omitempty,min=2,max=500"`
	Payment string `json:"payment" binding:"required,oneof=card cash"`
	Coupon  string `json:"coupon"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	o, err := h.svc.CreateOrder(c.Request.Context(), checkout.CreateOrderInput{
		Actor:    actorFrom(c),
		Address:  req.Address,
		Phone:    req.Phone,
		Note:     req.Note,
		Payment:  order.PaymentMethod(req.Payment),
		CouponID: req.Coupon,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderBody(o))
}

func (h *Handler) getOrder(c *gin.Context) {
	o, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderBody(o))
}

func (h *Handler) initiatePayment(c *gin.Context) {
	session, err := h.svc.InitiatePayment(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": session.ID, "url": session.URL})
}

func (h *Handler) cancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	_ = c.ShouldBindJSON(&req)

	o, err := h.svc.CancelOrder(c.Request.Context(), c.Param("id"), req.Reason, actorFrom(c))
	if errors.Is(err, checkout.ErrRefundFailed) {
		// The cancellation stands; only the refund needs operator attention.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "order": orderBody(o)})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderBody(o))
}

func (h *Handler) advanceStatus(c *gin.Context) {
	o, err := h.svc.AdvanceStatus(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderBody(o))
}

func (h *Handler) freezeOrder(c *gin.Context) {
	o, err := h.svc.FreezeOrder(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderBody(o))
}

func (h *Handler) restoreOrder(c *gin.Context) {
	o, err := h.svc.RestoreOrder(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderBody(o))
}

func (h *Handler) paymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	err = h.svc.HandlePaymentWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if errors.Is(err, checkout.ErrPaymentVerification) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func actorFrom(c *gin.Context) checkout.Actor {
	return checkout.Actor{
		UserID: c.GetHeader("X-User-ID"),
		Role:   c.GetHeader("X-User-Role"),
	}
}

func writeError(c *gin.Context, err error) {
	var stockErr *checkout.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "product_id": stockErr.ProductID})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, checkout.ErrCouponNotFound),
		errors.Is(err, checkout.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, checkout.ErrCouponExpired),
		errors.Is(err, checkout.ErrCouponExhausted),
		errors.Is(err, checkout.ErrOrderNotEligible),
		errors.Is(err, checkout.ErrOrderNotCancelable):
		status = http.StatusConflict
	case errors.Is(err, checkout.ErrForbidden):
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

type lineItemBody struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

type orderResponse struct {
	ID              string         `json:"id"`
	Code            string         `json:"code"`
	Status          string         `json:"status"`
	Payment         string         `json:"payment"`
	Address         string         `json:"address"`
	Phone           string         `json:"phone"`
	Note            string         `json:"note,omitempty"`
	CancelReason    string         `json:"cancel_reason,omitempty"`
	Coupon          string         `json:"coupon,omitempty"`
	DiscountPercent string         `json:"discount_percent"`
	Total           int64          `json:"total"`
	Subtotal        int64          `json:"subtotal"`
	Items           []lineItemBody `json:"items"`
	PaidAt          *time.Time     `json:"paid_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func orderBody(o *order.Order) orderResponse {
	items := make([]lineItemBody, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, lineItemBody{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		})
	}
	return orderResponse{
		ID:              o.ID,
		Code:            o.Code,
		Status:          o.Status.String(),
		Payment:         string(o.Payment),
		Address:         o.Address,
		Phone:           o.Phone,
		Note:            o.Note,
		CancelReason:    o.CancelReason,
		Coupon:          o.CouponID,
		DiscountPercent: o.DiscountPercent.String(),
		Total:           o.Total,
		Subtotal:        o.Subtotal,
		Items:           items,
		PaidAt:          o.PaidAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
