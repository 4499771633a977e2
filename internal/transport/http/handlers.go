package httpt

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"orderdesk/internal/entity"
	"orderdesk/internal/export"
	"orderdesk/internal/form"
	"orderdesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const _xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *OrderHandler) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Verify access key
// @Description Checks the shared access key and opens an operator session
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body httpt.AuthRequest true "Access key"
// @Success 200 {object} httpt.AuthResponse
// @Failure 401 {object} httpt.AuthResponse
// @Router /api/auth/verify [post]
func (h *OrderHandler) verifyAuthHandler(c *gin.Context) {
	const op = "transport.verifyAuthHandler"

	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusInternalServerError, AuthResponse{
			Message: "An error occurred during authentication",
		})
		return
	}

	session, err := h.guard.Login(req.Key)
	if err != nil {
		h.log.LogAttrs(c.Request.Context(), logger.WarnLevel, "access key rejected",
			logger.String("op", op),
			logger.String("client_ip", c.ClientIP()),
		)
		c.JSON(http.StatusUnauthorized, AuthResponse{Message: "Invalid access key"})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Success:   true,
		Message:   "Authentication successful",
		ExpiresAt: &session.ExpiresAt,
	})
}

// @Summary List orders
// @Description Returns orders newest first, optionally filtered by status and a search query
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, shipped, delivered, cancelled or all"
// @Param q query string false "Matches customer name, phone, email, tracking number or item name"
// @Success 200 {object} httpt.OrdersResponse
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 401 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/orders [get]
func (h *OrderHandler) listOrdersHandler(c *gin.Context) {
	const op = "transport.listOrdersHandler"

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	orders, err := h.svc.ListOrders(ctx, filterFrom(c))
	if err != nil {
		h.handleServiceError(c, err, op, "Failed to fetch orders")
		return
	}

	if orders == nil {
		orders = []entity.Order{}
	}

	c.JSON(http.StatusOK, OrdersResponse{Orders: orders})
}

// @Summary Dashboard statistics
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} entity.Stats
// @Failure 401 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/orders/stats [get]
func (h *OrderHandler) statsHandler(c *gin.Context) {
	const op = "transport.statsHandler"

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		h.handleServiceError(c, err, op, "Failed to compute statistics")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary Export orders
// @Description Downloads orders as an .xlsx workbook
// @Tags Orders
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param scope query string false "all (default) or filtered"
// @Param status query string false "Status filter when scope is filtered"
// @Param q query string false "Search query when scope is filtered"
// @Success 200 {file} file
// @Failure 401 {object} httpt.ErrorResponse
// @Failure 404 {object} httpt.ErrorResponse "Nothing to export"
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/orders/export [get]
func (h *OrderHandler) exportOrdersHandler(c *gin.Context) {
	const op = "transport.exportOrdersHandler"

	filter := entity.OrderFilter{}
	filtered := strings.EqualFold(c.Query("scope"), "filtered")
	if filtered {
		filter = filterFrom(c)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	orders, err := h.svc.ListOrders(ctx, filter)
	if err != nil {
		h.handleServiceError(c, err, op, "Failed to export orders")
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Write(&buf, orders); err != nil {
		if errors.Is(err, export.ErrNoOrders) {
			msg := "No orders to export"
			if filtered {
				msg += " with current filters"
			}
			c.JSON(http.StatusNotFound, ErrorResponse{Error: msg})
			return
		}
		h.handleServiceError(c, err, op, "Failed to export orders")
		return
	}

	h.log.LogAttrs(ctx, logger.InfoLevel, "orders exported",
		logger.String("op", op),
		logger.Int("rows", len(orders)),
		logger.Bool("filtered", filtered),
	)

	c.Header("Content-Disposition", `attachment; filename="`+h.exporter.FileName()+`"`)
	c.Data(http.StatusOK, _xlsxContentType, buf.Bytes())
}

// @Summary Check one step of the order form
// @Description Validates the named step and reports the step the form may move to
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body httpt.DraftRequest true "Step and draft order"
// @Success 200 {object} httpt.DraftResponse
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 401 {object} httpt.ErrorResponse
// @Router /api/orders/draft/validate [post]
func (h *OrderHandler) validateDraftHandler(c *gin.Context) {
	const op = "transport.validateDraftHandler"

	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleBadBody(c, op, err)
		return
	}

	step, err := form.ParseStep(req.Step)
	if err != nil {
		h.handleServiceError(c, err, op, "")
		return
	}

	next, errs, err := form.CheckStep(h.validator, step, req.Order)
	if err != nil {
		h.handleServiceError(c, err, op, "")
		return
	}

	in := entity.Normalize(req.Order)
	c.JSON(http.StatusOK, DraftResponse{
		Valid:  len(errs) == 0,
		Step:   step.String(),
		Next:   next.String(),
		Final:  step.Final(),
		Totals: entity.Recompute(in.Items, in.ShippingCharges),
		Errors: errs,
	})
}

// @Summary Create order
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param order body entity.OrderInput true "Order"
// @Success 201 {object} httpt.OrderResponse
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 401 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/orders [post]
func (h *OrderHandler) createOrderHandler(c *gin.Context) {
	const op = "transport.createOrderHandler"

	var in entity.OrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.handleBadBody(c, op, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	order, err := h.svc.CreateOrder(ctx, in)
	if err != nil {
		h.handleServiceError(c, err, op, "Failed to create order")
		return
	}

	c.JSON(http.StatusCreated, OrderResponse{Message: "Order created successfully", Order: order})
}

// @Summary Get order
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order id"
// @Success 200 {object} httpt.OrderResponse
// @Failure 401 {object} httpt.ErrorResponse
// @Failure 404 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/orders/{id} [get]
func (h *OrderHandler) getOrderHandler(c *gin.Context) {
	const op = "transport.getOrderHandler"

	id, ok := h.orderID(c, op)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	order, err := h.svc.GetOrder(ctx, id)
	if err != nil {
		h.handleServiceError(c, err, op, "Failed to fetch order")
		return
	}

	c.JSON(http.StatusOK, OrderResponse{Order: order})
}

// @Summary Replace order
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order id"
// @Param order body entity.OrderInput true "Order"
// @Success 200 {object} httpt.OrderResponse
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 401 {object} httpt.ErrorResponse
// @Failure 404 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/orders/{id} [put]
func (h *OrderHandler) replaceOrderHandler(c *gin.Context) {
	const op = "transport.replaceOrderHandler"

	id, ok := h.orderID(c, op)
	if !ok {
		return
	}

	var in entity.OrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.handleBadBody(c, op, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	order, err := h.svc.ReplaceOrder(ctx, id, in)
	if err != nil {
		h.handleServiceError(c, err, op, "Failed to update order")
		return
	}

	c.JSON(http.StatusOK, OrderResponse{Message: "Order updated successfully", Order: order})
}

// @Summary Update order status
// @Description Moving to shipped records today's date as the sent date when none is set
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order id"
// @Param request body httpt.StatusRequest true "New status"
// @Success 200 {object} httpt.OrderResponse
// @Failure 400 {object} httpt.ErrorResponse
// @Failure 401 {object} httpt.ErrorResponse
// @Failure 404 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/orders/{id} [patch]
func (h *OrderHandler) updateStatusHandler(c *gin.Context) {
	const op = "transport.updateStatusHandler"

	id, ok := h.orderID(c, op)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleBadBody(c, op, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	order, err := h.svc.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		h.handleServiceError(c, err, op, "Failed to update order status")
		return
	}

	c.JSON(http.StatusOK, OrderResponse{Message: "Order status updated successfully", Order: order})
}

// @Summary Delete order
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order id"
// @Success 200 {object} httpt.DeleteResponse
// @Failure 401 {object} httpt.ErrorResponse
// @Failure 404 {object} httpt.ErrorResponse
// @Failure 500 {object} httpt.ErrorResponse
// @Router /api/orders/{id} [delete]
func (h *OrderHandler) deleteOrderHandler(c *gin.Context) {
	const op = "transport.deleteOrderHandler"

	id, ok := h.orderID(c, op)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	deleted, err := h.svc.DeleteOrder(ctx, id)
	if err != nil {
		h.handleServiceError(c, err, op, "Failed to delete order")
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{Message: "Order deleted successfully", DeletedOrder: deleted})
}

func (h *OrderHandler) orderID(c *gin.Context, op string) (uuid.UUID, bool) {
	raw := c.Param("id")

	id, err := uuid.Parse(raw)
	if err != nil {
		h.handleInvalidUUID(c, op, raw)
		return uuid.Nil, false
	}

	return id, true
}

// filterFrom reads status and q. "all" and an empty status mean no filter.
func filterFrom(c *gin.Context) entity.OrderFilter {
	filter := entity.OrderFilter{Query: strings.TrimSpace(c.Query("q"))}

	if status := strings.ToLower(strings.TrimSpace(c.Query("status"))); status != "" && status != "all" {
		filter.Status = entity.Status(status)
	}

	return filter
}
