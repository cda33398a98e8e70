package router

import (
	"net/http"

	"storefront/internal/handlers"
	"storefront/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type Handlers struct {
	Orders  *handlers.OrderHandler
	Cart    *handlers.CartHandler
	Catalog *handlers.CatalogHandler
	Courier *handlers.CourierHandler
}

func Router(h Handlers, tokens middleware.TokenParser, log *zap.Logger) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Cart-ID", "X-Guest-Order"},
		ExposeHeaders:    []string{"Content-Length", "X-Cart-ID"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/", middleware.OptionalAuth(tokens, log))

	products := api.Group("/products")
	products.GET("", h.Catalog.ListProducts)
	products.GET("/:idOrSlug", h.Catalog.GetProduct)
	api.POST("/promotions/validate", h.Catalog.ValidatePromotion)

	cart := api.Group("/cart")
	cart.GET("", h.Cart.Get)
	cart.DELETE("", h.Cart.Clear)
	cart.POST("/items", h.Cart.AddItem)
	cart.PATCH("/items/:lineId", h.Cart.UpdateItem)
	cart.DELETE("/items/:lineId", h.Cart.RemoveItem)

	orders := api.Group("/orders")
	orders.POST("", h.Orders.Create)
	orders.GET("/track/:orderId", h.Orders.TrackPublic)
	orders.POST("/track/secure", h.Orders.TrackSecure)
	orders.GET("/my-orders", middleware.RequireAuth(), h.Orders.MyOrders)
	orders.PATCH("/:orderId/cancel", h.Orders.Cancel)

	admin := orders.Group("/admin", middleware.RequireAdmin())
	admin.GET("/list", h.Orders.List)
	admin.GET("/overview", h.Orders.Overview)
	admin.PUT("/:orderId/status", h.Orders.UpdateStatus)
	admin.PUT("/:orderId/payment", h.Orders.UpdatePayment)

	courier := api.Group("/courier/steadfast", middleware.RequireAdmin())
	courier.POST("/create", h.Courier.Create)
	courier.POST("/bulk", h.Courier.Bulk)

	return r
}
