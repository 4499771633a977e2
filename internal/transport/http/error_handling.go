package httpt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"orderdesk/internal/entity"
	"orderdesk/pkg/logger"

	"github.com/gin-gonic/gin"
)

// handleServiceError writes the response for a failed service call. failure
// is the operator-facing title used for persistence errors.
func (h *OrderHandler) handleServiceError(c *gin.Context, err error, op, failure string) {
	ctx := c.Request.Context()
	log := h.log.Ctx(ctx)

	var (
		verr *entity.ValidationError
		perr *entity.PersistenceError
	)

	switch {
	case errors.As(err, &verr):
		log.LogAttrs(ctx, logger.InfoLevel, "request rejected",
			logger.String("op", op),
			logger.Any("fields", verr.Fields.Keys()),
		)
		c.JSON(http.StatusBadRequest, validationResponse(verr))
	case errors.Is(err, entity.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "Unauthorized",
			Message: "Invalid or missing access key. Please authenticate first.",
		})
	case errors.Is(err, entity.ErrDataNotFound):
		log.LogAttrs(ctx, logger.WarnLevel, "order not found",
			logger.String("op", op),
			logger.String("order_id", c.Param("id")),
			logger.String("client_ip", c.ClientIP()),
		)
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Order not found",
			Message: fmt.Sprintf("Order with ID %s does not exist", c.Param("id")),
		})
	case errors.Is(err, context.DeadlineExceeded):
		log.LogAttrs(ctx, logger.WarnLevel, "request timeout",
			logger.String("op", op),
			logger.String("path", c.Request.URL.Path),
			logger.String("client_ip", c.ClientIP()),
		)
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "Request timed out"})
	case errors.As(err, &perr):
		// Constraint failures are tagged ErrInvalidData but keep the
		// backend diagnostics.
		log.LogAttrs(ctx, logger.ErrorLevel, op+" failed",
			logger.Err(err),
			logger.String("code", perr.Code),
			logger.String("remote_addr", c.ClientIP()),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   failure,
			Details: perr.Message,
			Hint:    perr.Hint,
			Code:    perr.Code,
		})
	case errors.Is(err, entity.ErrInvalidData):
		log.LogAttrs(ctx, logger.InfoLevel, "request rejected",
			logger.String("op", op),
			logger.String("reason", err.Error()),
		)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid order data", Message: err.Error()})
	default:
		log.LogAttrs(ctx, logger.ErrorLevel, "internal server error",
			logger.String("op", op),
			logger.Err(err),
			logger.String("path", c.Request.URL.Path),
			logger.String("client_ip", c.ClientIP()),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Message: "An unexpected error occurred",
		})
	}
}

func validationResponse(verr *entity.ValidationError) ErrorResponse {
	switch {
	case errors.Is(verr.Reason, entity.ErrMissingRequiredFields):
		return ErrorResponse{
			Error:  "Missing required fields: customer_name, phone, address",
			Fields: verr.Fields,
		}
	case errors.Is(verr.Reason, entity.ErrNoItems):
		return ErrorResponse{Error: "At least one item is required", Fields: verr.Fields}
	case errors.Is(verr.Reason, entity.ErrInvalidStatus):
		names := make([]string, 0, len(entity.Statuses()))
		for _, s := range entity.Statuses() {
			names = append(names, string(s))
		}
		return ErrorResponse{
			Error:   "Invalid status",
			Message: "Status must be one of: " + strings.Join(names, ", "),
			Fields:  verr.Fields,
		}
	default:
		return ErrorResponse{Error: "Invalid order data", Fields: verr.Fields}
	}
}

func (h *OrderHandler) handleInvalidUUID(c *gin.Context, op, value string) {
	ctx := c.Request.Context()

	h.log.Ctx(ctx).LogAttrs(ctx, logger.WarnLevel, "invalid order id format",
		logger.String("op", op),
		logger.String("value", value),
		logger.String("remote_addr", c.ClientIP()),
	)

	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   "Order not found",
		Message: fmt.Sprintf("Order with ID %s does not exist", value),
	})
}

func (h *OrderHandler) handleBadBody(c *gin.Context, op string, err error) {
	ctx := c.Request.Context()

	h.log.Ctx(ctx).LogAttrs(ctx, logger.InfoLevel, "malformed request body",
		logger.String("op", op),
		logger.String("reason", err.Error()),
	)

	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
}
