package handler

import (
	appbilling "github.com/agualoti/backend/internal/application/billing"
	"github.com/agualoti/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// InvoiceHandler handles invoice issuing, lookup, mora and admin amendments
type InvoiceHandler struct {
	BaseHandler
	invoiceService *appbilling.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *appbilling.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// Create issues an invoice from explicit readings
func (h *InvoiceHandler) Create(c *gin.Context) {
	operator, ok := h.requireOperator(c)
	if !ok {
		return
	}
	var req appbilling.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	invoice, err := h.invoiceService.Create(c.Request.Context(), req, operator)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// GenerateFromReading issues an invoice for a recorded, unbilled reading
func (h *InvoiceHandler) GenerateFromReading(c *gin.Context) {
	operator, ok := h.requireOperator(c)
	if !ok {
		return
	}
	var req appbilling.GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	invoice, err := h.invoiceService.GenerateFromReading(c.Request.Context(), req, operator)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// List returns a page of invoices with their mora as of today
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter appbilling.InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}
	page := dto.NormalizePage(filter.Page, filter.PageSize)
	filter.Page, filter.PageSize = page.Page, page.PageSize

	invoices, total, err := h.invoiceService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, invoices, total, page.Page, page.PageSize)
}

// GetByID returns one invoice
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// GetByNumber looks an invoice up by its printed number, e.g. FAC-000042
func (h *InvoiceHandler) GetByNumber(c *gin.Context) {
	invoice, err := h.invoiceService.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// GetMora assesses the late fee of a stored invoice.
// The optional as_of query parameter moves the evaluation date.
func (h *InvoiceHandler) GetMora(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	mora, err := h.invoiceService.AssessMora(c.Request.Context(), id, c.Query("as_of"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mora)
}

// ListMoraSnapshots returns the stored daily mora snapshots of an invoice
func (h *InvoiceHandler) ListMoraSnapshots(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	snapshots, err := h.invoiceService.ListMoraSnapshots(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, snapshots)
}

// AmendDueDate moves the due date of a pending invoice. Admin only.
func (h *InvoiceHandler) AmendDueDate(c *gin.Context) {
	admin, ok := h.requireOperator(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req appbilling.AmendDueDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	invoice, err := h.invoiceService.AmendDueDate(c.Request.Context(), id, req, admin)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Void cancels an invoice. Admin only.
func (h *InvoiceHandler) Void(c *gin.Context) {
	admin, ok := h.requireOperator(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req appbilling.VoidInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	invoice, err := h.invoiceService.Void(c.Request.Context(), id, req, admin)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}
