package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/fusionmarkt/shop/internal/handlers"
	"github.com/fusionmarkt/shop/internal/service/token"
)

type Deps struct {
	DB              *gorm.DB
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	SearchHandler   *handlers.SearchHandler
	CheckoutHandler *handlers.CheckoutHandler
	PaymentHandler  *handlers.PaymentHandler
	OrderHandler    *handlers.OrderHandler
	TokenService    *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api")

	api.POST("/register", d.AuthHandler.Register)
	api.POST("/login", d.AuthHandler.Login)
	api.POST("/logout", d.AuthHandler.LogOut)

	api.GET("/search", d.SearchHandler.Search)

	products := api.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	admin := api.Group("/admin", d.TokenService.AutoRefreshMiddlewareAdmin)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	// Checkout works for guests too; the payload carries the identity.
	api.POST("/checkout", d.CheckoutHandler.Begin)

	// Gateway callback. The gateway POSTs the 3-D Secure outcome here and
	// may probe with GET first.
	api.POST("/payment/callback", d.PaymentHandler.Callback)
	api.GET("/payment/callback", d.PaymentHandler.CallbackProbe)

	orders := api.Group("/orders", d.TokenService.AutoRefreshMiddleware)
	orders.GET("", d.OrderHandler.ListMyOrders)
	orders.GET("/:number", d.OrderHandler.GetMyOrder)

	// Contract documents are fetched with the mailed access token, no login.
	api.GET("/orders/contracts", d.OrderHandler.GetContracts)
}
