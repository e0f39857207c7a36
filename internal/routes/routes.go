package routes

import (
	"net/http"
	"os"

	"storefront-api/internal/handlers"
	"storefront-api/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter wires every endpoint under /api/v1.
func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	origin := os.Getenv("CORS_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.SessionHeader},
		AllowCredentials: true,
	}))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"message": "pong"}})
		})

		// --- Auth (public) ---
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.POST("/refresh", h.Refresh)
			authGroup.POST("/logout", h.Logout)
		}

		// --- Catalog (public) ---
		v1.GET("/products", h.ListProducts)
		v1.GET("/products/slug/:slug", h.GetProductBySlug)
		v1.GET("/products/:id", h.GetProduct)

		// --- Cart (user or guest session) ---
		cart := v1.Group("/cart")
		cart.Use(middleware.CartIdentity())
		{
			cart.GET("", h.GetCart)
			cart.DELETE("", h.ClearCart)
			cart.POST("/items", h.AddToCart)
			cart.PUT("/items/:productId", h.UpdateCartItem)
			cart.DELETE("/items/:productId", h.DeleteCartItem)
		}

		// --- Account, orders, wishlist (login required) ---
		authed := v1.Group("/")
		authed.Use(middleware.RequireAuth())
		{
			authed.GET("/users/me", h.GetMe)
			authed.PUT("/users/me", h.UpdateMe)
			authed.PUT("/users/me/password", h.ChangePassword)
			authed.DELETE("/users/me", h.DeactivateMe)

			authed.POST("/orders", h.Checkout)
			authed.GET("/orders", h.GetMyOrders)
			authed.GET("/orders/:id", h.GetOrderDetails)
			authed.POST("/orders/:id/cancel", h.CancelOrder)

			authed.GET("/wishlist", h.GetWishlist)
			authed.POST("/wishlist/:productId", h.AddToWishlist)
			authed.DELETE("/wishlist/:productId", h.RemoveFromWishlist)
		}

		// --- Admin ---
		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAuth())
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/products", h.CreateProduct)
			admin.PUT("/products/:id", h.UpdateProduct)
			admin.DELETE("/products/:id", h.DeleteProduct)
			admin.PATCH("/products/:id/stock", h.UpdateStock)

			admin.GET("/orders", h.ListOrders)
			admin.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		}
	}

	return router
}
