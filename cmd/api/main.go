package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/truckmitra/truckmitra-backend/internal/database"
	"github.com/truckmitra/truckmitra-backend/internal/handlers"
	"github.com/truckmitra/truckmitra-backend/internal/middleware"
	"github.com/truckmitra/truckmitra-backend/internal/services"
	"github.com/truckmitra/truckmitra-backend/pkg/gateways"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	utils.InitLogger()
	defer utils.Logger.Sync()

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// WebSocket hub for live offers and trip tracking
	hub := services.NewHub()
	go hub.Run()

	dispatcher := services.NewDispatcher(db, hub)

	// Background sweep for offers past their TTL
	sweeper := services.StartOfferSweeper(dispatcher)
	defer sweeper.Stop()

	razorpay := gateways.NewRazorpayClient()
	maps := gateways.NewMapsClient()
	kyc := gateways.NewKYCClient()

	r := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	// Locally stored document uploads
	r.Static("/uploads", "/app/uploads")

	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		auth.Use(middleware.RateLimit())
		{
			auth.POST("/otp/request", middleware.OTPRateLimit(), handlers.RequestOTP(db))
			auth.POST("/otp/verify", handlers.VerifyOTP(db))
		}

		// Gateway webhooks authenticate by signature, not bearer token
		api.POST("/webhooks/razorpay", handlers.RazorpayWebhook(db))

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
			}

			vendors := protected.Group("/vendors")
			vendors.Use(middleware.RequireUserType("vendor"))
			{
				vendors.GET("/status", handlers.GetVendorStatus(db))
				vendors.POST("/availability", handlers.UpdateAvailability(db))
				vendors.POST("/location", handlers.UpdateVendorLocation(db))
				vendors.POST("/vehicle", handlers.ListVehicle(db))
				vendors.POST("/documents", handlers.UploadVendorDocument())
				vendors.POST("/kyc/verify", handlers.VerifyVendorDocument(db, kyc))
				vendors.POST("/kyc/digilocker/init", handlers.InitDigiLockerFlow(kyc))
				vendors.POST("/kyc/digilocker/complete", handlers.CompleteDigiLockerFlow(db, kyc))

				vendors.GET("/offers", handlers.GetPendingOffers(db))
				vendors.POST("/offers/accept", handlers.AcceptOffer(db, dispatcher, hub))
				vendors.POST("/offers/reject", handlers.RejectOffer(db, dispatcher))
				vendors.GET("/bookings", handlers.GetVendorBookings(db))
			}

			bookings := protected.Group("/bookings")
			{
				bookings.POST("", middleware.RequireUserType("client"), handlers.CreateBooking(db, dispatcher, maps))
				bookings.GET("/client", middleware.RequireUserType("client"), handlers.GetClientBookings(db))
				bookings.GET("/nearby-vendors", handlers.GetNearbyVendors(db))
				bookings.GET("/:id/status", handlers.GetBookingStatus(db))
				bookings.POST("/:id/dispatch", middleware.RequireUserType("client"), handlers.RequestVendor(db, dispatcher))
				bookings.POST("/:id/cancel", handlers.CancelBooking(db, hub))
				bookings.PATCH("/:id/price", handlers.UpdateBookingPrice(db))
				bookings.PATCH("/:id/trip-status", middleware.RequireUserType("vendor"), handlers.UpdateTripStatus(db, hub))
				bookings.POST("/:id/trip-location", middleware.RequireUserType("vendor"), handlers.UpdateTripLocation(db, hub))
				bookings.GET("/:id/route", handlers.GetTripRoute(db))
			}

			subscriptions := protected.Group("/subscriptions")
			{
				subscriptions.GET("/plans", handlers.GetPlans(db))
				subscriptions.POST("", handlers.Subscribe(db, razorpay))
				subscriptions.GET("/me", handlers.GetMySubscription(db))
				subscriptions.POST("/cancel", handlers.CancelSubscription(db, razorpay))
				subscriptions.POST("/verify-payment", handlers.VerifySubscriptionPayment(db, razorpay))
			}

			payments := protected.Group("/payments")
			{
				payments.GET("/history", handlers.GetPaymentHistory(db))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
