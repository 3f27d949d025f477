package handler

import (
	appbilling "github.com/agualoti/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader lets clients retry a payment without recording it twice
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

// PaymentHandler handles payments against invoices
type PaymentHandler struct {
	BaseHandler
	paymentService *appbilling.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *appbilling.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Record applies a payment to an invoice and reports the settlement
func (h *PaymentHandler) Record(c *gin.Context) {
	operator, ok := h.requireOperator(c)
	if !ok {
		return
	}
	invoiceID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	key := c.GetHeader(IdempotencyKeyHeader)
	if len(key) > maxIdempotencyKeyLength {
		h.BadRequest(c, "Idempotency-Key must be at most 128 characters")
		return
	}

	var req appbilling.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	result, err := h.paymentService.Record(c.Request.Context(), invoiceID, req, operator, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// List returns the payments of an invoice with their total
func (h *PaymentHandler) List(c *gin.Context) {
	invoiceID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	payments, err := h.paymentService.ListForInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}
