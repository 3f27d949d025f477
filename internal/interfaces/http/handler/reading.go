package handler

import (
	appbilling "github.com/agualoti/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
)

// ReadingHandler handles meter reading capture
type ReadingHandler struct {
	BaseHandler
	readingService *appbilling.ReadingService
}

// NewReadingHandler creates a new ReadingHandler
func NewReadingHandler(readingService *appbilling.ReadingService) *ReadingHandler {
	return &ReadingHandler{readingService: readingService}
}

// Record captures a reading for the authenticated operator
func (h *ReadingHandler) Record(c *gin.Context) {
	operator, ok := h.requireOperator(c)
	if !ok {
		return
	}
	var req appbilling.RecordReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	reading, err := h.readingService.Record(c.Request.Context(), req, operator)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, reading)
}

// GetByID returns one reading
func (h *ReadingHandler) GetByID(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	reading, err := h.readingService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reading)
}
