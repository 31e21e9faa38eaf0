package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/mailer"
	"storefront/internal/middleware"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)
	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureCartIndexes(db); err != nil {
		log.Printf("cart index warning: %v", err)
	}
	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("product index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}

	var catalog *cache.Catalog
	if config.AppEnv.RedisAddr != "" {
		catalog, err = cache.NewCatalog(config.AppEnv.RedisAddr)
		if err != nil {
			log.Printf("catalog cache disabled: %v", err)
		} else {
			defer catalog.Close()
			log.Println("catalog cache connected to:", config.AppEnv.RedisAddr)
		}
	}

	mail := mailer.New(config.AppEnv.SendgridAPIKey, config.AppEnv.MailFrom)

	jwtSecret := config.AppEnv.JWTSecret
	accessTTL := config.AppEnv.AccessTokenTTL
	refreshTTL := config.AppEnv.RefreshTokenTTL

	r := gin.Default()
	r.Static("/public", "./public")

	r.POST("/auth/register", handlers.Register(db, mail, jwtSecret, accessTTL, refreshTTL))
	r.POST("/auth/login", handlers.Login(db, jwtSecret, accessTTL, refreshTTL))
	r.POST("/auth/refresh", handlers.Refresh(db, jwtSecret, accessTTL, refreshTTL))
	r.POST("/auth/logout", handlers.Logout(db))
	r.GET("/auth/me", middleware.UserAuth(jwtSecret), handlers.GetMe(db))

	r.POST("/admin/login", handlers.AdminLogin(db, jwtSecret, accessTTL, refreshTTL))

	r.GET("/products", handlers.GetProducts(db))
	r.GET("/products/:id", handlers.GetProduct(db))
	r.GET("/categories", handlers.GetCategories(db))
	r.GET("/pages/:page/settings", handlers.GetPageSettings(db))

	user := r.Group("/user")
	user.Use(middleware.UserAuth(jwtSecret))
	{
		user.GET("/addresses", handlers.GetUserAddresses(db))
		user.POST("/addresses", handlers.CreateUserAddress(db))
		user.PUT("/addresses/:id", handlers.UpdateUserAddress(db))
		user.DELETE("/addresses/:id", handlers.DeleteUserAddress(db))
	}

	cart := r.Group("/cart")
	cart.Use(middleware.UserAuth(jwtSecret))
	{
		cart.GET("", handlers.GetCart(db, catalog))
		cart.DELETE("", handlers.ClearCart(db))
		cart.POST("/items", handlers.AddCartItem(db, catalog))
		cart.PUT("/items", handlers.UpdateCartItem(db, catalog))
		cart.DELETE("/items", handlers.RemoveCartItem(db))
	}

	orders := r.Group("/orders")
	orders.Use(middleware.UserAuth(jwtSecret))
	{
		orders.POST("", handlers.Checkout(db, mail))
		orders.GET("", handlers.GetMyOrders(db))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(jwtSecret))
	{
		admin.GET("/me", func(c *gin.Context) {
			c.JSON(200, gin.H{"ok": true})
		})

		admin.GET("/products", handlers.GetAllProducts(db))
		admin.POST("/products", handlers.CreateProduct(db, catalog))
		admin.PUT("/products/:id", handlers.UpdateProduct(db, catalog))
		admin.DELETE("/products/:id", handlers.DeleteProduct(db, catalog))
		admin.POST("/products/:id/image", handlers.UploadProductImage(db, catalog, config.AppEnv.UploadDir))

		admin.GET("/categories", handlers.GetAllCategories(db))
		admin.POST("/categories", handlers.CreateCategory(db))
		admin.PUT("/categories/:id", handlers.UpdateCategory(db))
		admin.DELETE("/categories/:id", handlers.DeleteCategory(db))

		admin.GET("/orders", handlers.GetAllOrders(db))
		admin.PUT("/orders/:id/status", handlers.UpdateOrderStatus(db))
		admin.DELETE("/orders/:id", handlers.DeleteOrder(db))

		admin.GET("/customers", handlers.GetCustomers(db))

		admin.PUT("/pages/:page/settings", handlers.UpsertPageSettings(db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
