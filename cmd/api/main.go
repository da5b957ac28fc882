package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/danukusuma/servehub_be/internal/config"
	"github.com/danukusuma/servehub_be/internal/db"
	"github.com/danukusuma/servehub_be/internal/handlers"
	"github.com/danukusuma/servehub_be/internal/middleware"
	"github.com/danukusuma/servehub_be/internal/models"
	"github.com/danukusuma/servehub_be/internal/realtime"
	"github.com/danukusuma/servehub_be/internal/services/booking"
	"github.com/danukusuma/servehub_be/internal/services/credits"
	"github.com/danukusuma/servehub_be/internal/services/notify"
	"github.com/danukusuma/servehub_be/internal/services/payments"
	"github.com/danukusuma/servehub_be/internal/services/reviews"
	"github.com/danukusuma/servehub_be/internal/services/stripegw"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.ProviderProfile{},
		&models.Address{},
		&models.ServiceCategory{},
		&models.Service{},
		&models.Booking{},
		&models.Payment{},
		&models.Installment{},
		&models.UserCredits{},
		&models.Review{},
		&models.Notification{},
	); err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis not reachable:", err)
	}

	hub := realtime.NewHub()
	go hub.Run()
	go realtime.Bridge(context.Background(), rdb, hub, notify.Channel)

	gateway := stripegw.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.StripeBaseURL, cfg.StripeCurrency)
	dispatcher := notify.NewDispatcher(gdb, hub, rdb)
	ledger := credits.NewLedger(gdb)
	stateMachine := booking.NewStateMachine(gdb, ledger, dispatcher)
	orchestrator := payments.NewOrchestrator(gdb, ledger, gateway, dispatcher)
	aggregator := reviews.NewAggregator(gdb, dispatcher)

	authH := &handlers.AuthHandler{DB: gdb, JWTSecret: cfg.JWTSecret, Expires: cfg.JWTExpiresMin}
	serviceH := &handlers.ServiceHandler{DB: gdb}
	bookingH := &handlers.BookingHandler{DB: gdb, StateMachine: stateMachine}
	paymentH := &handlers.PaymentHandler{DB: gdb, Orchestrator: orchestrator, Gateway: gateway}
	creditsH := &handlers.CreditsHandler{Ledger: ledger}
	reviewH := &handlers.ReviewHandler{Aggregator: aggregator}
	notificationH := &handlers.NotificationHandler{Dispatcher: dispatcher, Hub: hub}
	providerH := &handlers.ProviderHandler{DB: gdb}
	addressH := &handlers.AddressHandler{DB: gdb}

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://127.0.0.1:3000, http://localhost:3000",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/categories", serviceH.ListCategories)
	api.Get("/services", serviceH.List)
	api.Get("/services/:id", serviceH.Get)
	api.Get("/providers/:providerId/reviews", reviewH.ListForProvider)

	// gateway callback, authenticated by signature instead of JWT
	api.Post("/payments/callback", paymentH.HandleCallback)

	// protected (JWT from cookie)
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", authH.Me)

	protected.Post("/bookings", middleware.RequireRoles("customer"), bookingH.Create)
	protected.Get("/bookings", bookingH.List)
	protected.Get("/bookings/:id", bookingH.Get)
	protected.Patch("/bookings/:id/accept", middleware.RequireRoles("provider"), bookingH.Accept)
	protected.Patch("/bookings/:id/decline", middleware.RequireRoles("provider"), bookingH.Decline)
	protected.Patch("/bookings/:id/start", middleware.RequireRoles("provider"), bookingH.Start)
	protected.Patch("/bookings/:id/complete", middleware.RequireRoles("provider"), bookingH.Complete)
	protected.Patch("/bookings/:id/cancel", bookingH.Cancel)
	protected.Patch("/bookings/:id/reschedule", middleware.RequireRoles("customer"), bookingH.Reschedule)

	protected.Post("/payments", middleware.RequireRoles("customer"), paymentH.Process)
	protected.Post("/payments/intent", middleware.RequireRoles("customer"), paymentH.CreateIntent)
	protected.Post("/payments/:id/confirm", middleware.RequireRoles("customer"), paymentH.Confirm)
	protected.Post("/payments/:id/refund", paymentH.Refund)
	protected.Get("/payments", paymentH.List)

	protected.Get("/credits", creditsH.Balance)
	protected.Post("/credits/purchase", creditsH.Purchase)

	protected.Post("/reviews", middleware.RequireRoles("customer"), reviewH.Submit)
	protected.Patch("/reviews/:id/respond", middleware.RequireRoles("provider"), reviewH.Respond)

	protected.Get("/notifications", notificationH.List)
	protected.Patch("/notifications/:id/read", notificationH.MarkRead)

	protected.Post("/provider/become", middleware.RequireRoles("customer"), providerH.BecomeProvider)
	protected.Get("/provider/dashboard", middleware.RequireRoles("provider"), providerH.Dashboard)
	protected.Patch("/provider/availability", middleware.RequireRoles("provider"), providerH.SetAvailability)

	protected.Post("/services", middleware.RequireRoles("provider"), serviceH.Create)
	protected.Put("/services/:id", middleware.RequireRoles("provider"), serviceH.Update)

	protected.Get("/addresses", addressH.List)
	protected.Post("/addresses", addressH.Create)
	protected.Delete("/addresses/:id", addressH.Delete)
	protected.Patch("/addresses/:id/default", addressH.SetDefault)

	// WebSocket endpoint (authenticated via query param, no JWT middleware)
	app.Get("/ws/notifications", websocket.New(notificationH.WebSocketHandler))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
