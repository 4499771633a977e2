// nolint: revive,staticcheck
// swagger:meta
package httpt

import (
	"time"

	"orderdesk/internal/entity"
)

// swagger:model ErrorResponse
type ErrorResponse struct {
	Error   string             `json:"error"`
	Message string             `json:"message,omitempty"`
	Details string             `json:"details,omitempty"`
	Hint    string             `json:"hint,omitempty"`
	Code    string             `json:"code,omitempty"`
	Fields  entity.FieldErrors `json:"fields,omitempty"`
}

// swagger:model OrderResponse
type OrderResponse struct {
	Message string        `json:"message,omitempty"`
	Order   *entity.Order `json:"order"`
}

// swagger:model OrdersResponse
type OrdersResponse struct {
	Orders []entity.Order `json:"orders"`
}

// swagger:model DeleteResponse
type DeleteResponse struct {
	Message string `json:"message"`
	entity.DeletedOrder
}

// swagger:model AuthRequest
type AuthRequest struct {
	Key string `json:"key"`
}

// swagger:model AuthResponse
type AuthResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// swagger:model StatusRequest
type StatusRequest struct {
	Status string `json:"status"`
}

// swagger:model DraftRequest
type DraftRequest struct {
	Step  string            `json:"step"`
	Order entity.OrderInput `json:"order"`
}

// swagger:model DraftResponse
type DraftResponse struct {
	Valid  bool               `json:"valid"`
	Step   string             `json:"step"`
	Next   string             `json:"next"`
	Final  bool               `json:"final"`
	Totals entity.Totals      `json:"totals"`
	Errors entity.FieldErrors `json:"errors,omitempty"`
}
