package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/config"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/httpapi/handlers"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/httpapi/middleware"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	h := handlers.NewHandler(db, cfg, rds)

	r.GET("/ping", h.Ping)

	// users & auth
	r.POST("/users", h.CreateUser)
	r.GET("/users/:id", h.GetUserByID)
	r.POST("/login", h.Login)

	// catalog is public
	r.GET("/catalog", h.GetCatalog)
	r.GET("/catalog/stats", h.GetProductStats)
	r.GET("/catalog/by-price", h.GetProductsByPrice)

	// provider webhook (signature-verified, no bearer token)
	r.POST("/webhooks/openai", h.OpenAIWebhook)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))

	// cart
	authGroup.POST("/cart", h.AddToCart)
	authGroup.GET("/cart", h.GetCart)
	authGroup.PUT("/cart/:cartId/items/:productId", h.UpdateCartItem)
	authGroup.DELETE("/cart", h.ClearAllCarts)

	// chat
	authGroup.POST("/chat", h.CreateChatSession)
	authGroup.GET("/chat/:id", h.GetChatSession)
	authGroup.POST("/chat/:id/messages", h.AddChatMessage)
	authGroup.POST("/chat/:id/actions/:actionId/confirm", h.ConfirmChatAction)

	return r
}
