package httpt

import (
	_ "orderdesk/docs" // for swagger

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Orderdesk API
// @version         1.0
// @description     Order management for a live-animal mail-order shop
// @contact.name    API Support
// @contact.email   support@example.com
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func (h *OrderHandler) setupRoutes() {
	h.router.GET("/health", h.healthHandler)

	api := h.router.Group("/api")
	{
		api.POST("/auth/verify", h.verifyAuthHandler)

		orders := api.Group("/orders", h.authMiddleware())
		{
			orders.GET("", h.listOrdersHandler)
			orders.POST("", h.createOrderHandler)
			orders.GET("/stats", h.statsHandler)
			orders.GET("/export", h.exportOrdersHandler)
			orders.POST("/draft/validate", h.validateDraftHandler)
			orders.GET("/:id", h.getOrderHandler)
			orders.PUT("/:id", h.replaceOrderHandler)
			orders.PATCH("/:id", h.updateStatusHandler)
			orders.DELETE("/:id", h.deleteOrderHandler)
		}
	}

	h.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
