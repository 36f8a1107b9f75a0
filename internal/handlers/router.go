package handlers

import (
	"database/sql"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopmate/backend/internal/config"
	"github.com/shopmate/backend/internal/models"
	"github.com/shopmate/backend/internal/services"
)

type Services struct {
	Payments services.PaymentService
	Images   services.ImageStore
	Mailer   services.Mailer
	Ranker   services.Ranker
}

func NewRouter(db *sql.DB, cfg *config.Config, svcs Services) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	authHandler := &AuthHandler{DB: db, Cfg: cfg, Images: svcs.Images, Mailer: svcs.Mailer}
	productHandler := &ProductHandler{DB: db, Images: svcs.Images, Ranker: svcs.Ranker}
	orderHandler := &OrderHandler{DB: db, Payments: svcs.Payments}
	adminHandler := &AdminHandler{DB: db, Images: svcs.Images}

	jwtSecret := []byte(cfg.Auth.JWTSecret)
	authed := Authenticate(db, jwtSecret)
	adminOnly := RequireRoles(models.RoleAdmin)

	api := r.Group("/api/v1")

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", authed, authHandler.Me)
		authRoutes.GET("/logout", authed, authHandler.Logout)
		authRoutes.POST("/password/forgot", authHandler.ForgotPassword)
		authRoutes.PUT("/password/reset/:token", authHandler.ResetPassword)
		authRoutes.PUT("/password/update", authed, authHandler.UpdatePassword)
		authRoutes.PUT("/profile", authed, authHandler.UpdateProfile)
	}

	products := api.Group("/products")
	{
		products.GET("", productHandler.List)
		products.GET("/:productID", productHandler.Get)
		products.POST("/ai-search", productHandler.AISearch)
		products.PUT("/:productID/reviews", authed, productHandler.PostReview)
		products.DELETE("/:productID/reviews", authed, productHandler.DeleteReview)

		products.POST("/admin", authed, adminOnly, productHandler.Create)
		products.PUT("/admin/:productID", authed, adminOnly, productHandler.Update)
		products.DELETE("/admin/:productID", authed, adminOnly, productHandler.Delete)
	}

	orders := api.Group("/orders", authed)
	{
		orders.POST("", orderHandler.Place)
		orders.GET("/my", orderHandler.MyOrders)
		orders.GET("/:orderID", orderHandler.Get)

		orders.GET("/admin/all", adminOnly, orderHandler.AllOrders)
		orders.PUT("/admin/:orderID", adminOnly, orderHandler.UpdateStatus)
		orders.DELETE("/admin/:orderID", adminOnly, orderHandler.Delete)
	}

	api.POST("/payment/confirm", authed, orderHandler.ConfirmPayment)

	admin := api.Group("/admin", authed, adminOnly)
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.DELETE("/users/:userID", adminHandler.DeleteUser)
		admin.GET("/dashboard", adminHandler.Dashboard)
	}

	return r
}
