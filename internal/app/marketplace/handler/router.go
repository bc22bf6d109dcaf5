package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shoply/pkg/logger"
	"shoply/pkg/metrics"
)

// SetupRoutes настраивает все маршруты приложения с использованием Gin.
// Чтение каталога публичное, мутации каталога и все операции
// с избранным требуют аутентификации
func SetupRoutes(productHandler *ProductHandler, favoritesHandler *FavoritesHandler, authMiddleware *AuthMiddleware) *gin.Engine {
	router := gin.New()

	// Recovery middleware для обработки panic
	router.Use(gin.Recovery())

	// JSON logging middleware для HTTP-запросов
	router.Use(logger.GinLoggerMiddleware())

	// Prometheus metrics middleware
	router.Use(metrics.GinPrometheusMiddleware("marketplace"))

	// CORS настройки для web-клиента
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposeHeaders:    []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "marketplace",
		})
	})

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	products := router.Group("/products")
	{
		// Публичные эндпоинты каталога
		products.GET("", productHandler.ListProducts)
		products.GET("/:id", productHandler.GetProduct)

		// Мутации каталога требуют аутентификации
		protected := products.Group("")
		protected.Use(authMiddleware.Authenticate())
		{
			protected.POST("", productHandler.CreateProduct)
			protected.PUT("/:id", productHandler.UpdateProduct)
			protected.DELETE("/:id", productHandler.DeleteProduct)
		}
	}

	favorites := router.Group("/favorites")
	favorites.Use(authMiddleware.Authenticate())
	{
		favorites.GET("", favoritesHandler.ListFavorites)
		favorites.POST("/:productId", favoritesHandler.AddFavorite)
		favorites.DELETE("/:productId", favoritesHandler.RemoveFavorite)
	}

	return router
}
