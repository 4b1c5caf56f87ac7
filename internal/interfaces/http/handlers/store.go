package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bivex/storekit-manager/internal/application/dto"
	"github.com/bivex/storekit-manager/internal/interfaces/http/response"
)

// ProductsQuerier executes catalog queries
type ProductsQuerier interface {
	Execute(ctx context.Context, identifiers []string) (*dto.ProductsResponse, error)
}

// PaymentSubmitter executes payment submissions
type PaymentSubmitter interface {
	Execute(ctx context.Context, req *dto.PaymentRequest) (*dto.PaymentResponse, error)
}

// RestoreStarter executes restore requests
type RestoreStarter interface {
	Execute(ctx context.Context) (*dto.RestoreResponse, error)
}

// StatusReader executes status queries
type StatusReader interface {
	Execute(ctx context.Context) (*dto.StatusResponse, error)
}

// StoreHandler handles catalog, payment and restore endpoints
type StoreHandler struct {
	products ProductsQuerier
	payments PaymentSubmitter
	restore  RestoreStarter
	status   StatusReader
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(products ProductsQuerier, payments PaymentSubmitter, restore RestoreStarter, status StatusReader) *StoreHandler {
	return &StoreHandler{
		products: products,
		payments: payments,
		restore:  restore,
		status:   status,
	}
}

// RegisterRoutes mounts the store endpoints under group
func (h *StoreHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/products", h.GetProducts)
	group.POST("/payments", h.CreatePayment)
	group.POST("/restore", h.Restore)
	group.GET("/status", h.Status)
}

// GetProducts queries the platform catalog
// @Summary Query products
// @Tags store
// @Produce json
// @Security Bearer
// @Param ids query string true "Comma-separated product identifiers"
// @Success 200 {object} response.SuccessResponse{data=dto.ProductsResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 504 {object} response.ErrorResponse
// @Router /products [get]
func (h *StoreHandler) GetProducts(c *gin.Context) {
	identifiers := parseIdentifiers(c.Query("ids"))

	resp, err := h.products.Execute(c.Request.Context(), identifiers)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, resp)
}

// CreatePayment submits a payment for a product from the last catalog query
// @Summary Submit payment
// @Tags store
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.PaymentRequest true "Payment request"
// @Success 202 {object} response.SuccessResponse{data=dto.PaymentResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /payments [post]
func (h *StoreHandler) CreatePayment(c *gin.Context) {
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request format: "+err.Error())
		return
	}

	resp, err := h.payments.Execute(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Accepted(c, resp)
}

// Restore opens a restore session
// @Summary Restore purchases
// @Tags store
// @Produce json
// @Security Bearer
// @Success 202 {object} response.SuccessResponse{data=dto.RestoreResponse}
// @Failure 409 {object} response.ErrorResponse
// @Router /restore [post]
func (h *StoreHandler) Restore(c *gin.Context) {
	resp, err := h.restore.Execute(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Accepted(c, resp)
}

// Status reports the manager state
// @Summary Manager status
// @Tags store
// @Produce json
// @Security Bearer
// @Success 200 {object} response.SuccessResponse{data=dto.StatusResponse}
// @Router /status [get]
func (h *StoreHandler) Status(c *gin.Context) {
	resp, err := h.status.Execute(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, resp)
}

// parseIdentifiers splits a comma-separated list, dropping blanks
func parseIdentifiers(raw string) []string {
	identifiers := make([]string, 0)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			identifiers = append(identifiers, id)
		}
	}
	return identifiers
}
