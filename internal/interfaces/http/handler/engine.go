package handler

import (
	appbilling "github.com/agualoti/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
)

// EngineHandler exposes the three calculation contracts without touching storage
type EngineHandler struct {
	BaseHandler
	invoiceService *appbilling.InvoiceService
}

// NewEngineHandler creates a new EngineHandler
func NewEngineHandler(invoiceService *appbilling.InvoiceService) *EngineHandler {
	return &EngineHandler{invoiceService: invoiceService}
}

// QuoteTariff prices a consumption volume.
// POST /tariff/quote {"consumption": 15}
func (h *EngineHandler) QuoteTariff(c *gin.Context) {
	var req appbilling.TariffQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	quote, err := h.invoiceService.Quote(req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// AssessMora computes the late fee for explicit invoice figures
func (h *EngineHandler) AssessMora(c *gin.Context) {
	var req appbilling.AssessMoraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	mora, err := h.invoiceService.AssessFigures(req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mora)
}

// ValidateDates checks issue, due and period dates for coherence.
// Failures come back as INVALID_DATE_RANGE naming the offending field.
func (h *EngineHandler) ValidateDates(c *gin.Context) {
	var req appbilling.ValidateDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	if err := h.invoiceService.ValidateDates(req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appbilling.ValidateDatesResponse{Valid: true})
}
