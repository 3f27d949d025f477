package handler

import (
	appbilling "github.com/agualoti/backend/internal/application/billing"
	"github.com/agualoti/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ClientHandler handles water service clients and their readings
type ClientHandler struct {
	BaseHandler
	clientService  *appbilling.ClientService
	readingService *appbilling.ReadingService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(clientService *appbilling.ClientService, readingService *appbilling.ReadingService) *ClientHandler {
	return &ClientHandler{clientService: clientService, readingService: readingService}
}

// Register creates a client
func (h *ClientHandler) Register(c *gin.Context) {
	var req appbilling.RegisterClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	client, err := h.clientService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, client)
}

// List returns a page of clients, optionally filtered by search text and status
func (h *ClientHandler) List(c *gin.Context) {
	var filter appbilling.ClientListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}
	page := dto.NormalizePage(filter.Page, filter.PageSize)
	filter.Page, filter.PageSize = page.Page, page.PageSize

	clients, total, err := h.clientService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, clients, total, page.Page, page.PageSize)
}

// GetByID returns one client
func (h *ClientHandler) GetByID(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	client, err := h.clientService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// Deactivate stops billing a client
func (h *ClientHandler) Deactivate(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	client, err := h.clientService.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

type pageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ListReadings returns a client's readings, newest period first
func (h *ClientHandler) ListReadings(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindingError(c, err)
		return
	}
	page := dto.NormalizePage(q.Page, q.PageSize)

	readings, total, err := h.readingService.ListByClient(c.Request.Context(), id, page.Page, page.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, readings, total, page.Page, page.PageSize)
}
