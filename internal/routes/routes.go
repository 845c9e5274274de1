package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/d-krstic/StudioOpsBack/internal/config"
	"github.com/d-krstic/StudioOpsBack/internal/events"
	"github.com/d-krstic/StudioOpsBack/internal/handlers"
	"github.com/d-krstic/StudioOpsBack/internal/middleware"
	"github.com/d-krstic/StudioOpsBack/internal/repository"
	"github.com/d-krstic/StudioOpsBack/internal/services"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	seriesRepo := repository.NewSeriesRepository(db)
	packageRepo := repository.NewPackageRepository(db)
	timeOffRepo := repository.NewTimeOffRepository(db)

	hub := events.NewHub()
	go hub.Run()

	bookingService := services.NewBookingService(db, sessionRepo, participantRepo, resourceRepo, seriesRepo, packageRepo)
	creditService := services.NewCreditService(db, packageRepo)
	timeOffService := services.NewTimeOffService(timeOffRepo, resourceRepo)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	sessionHandler := handlers.NewSessionHandler(bookingService, hub)
	seriesHandler := handlers.NewSeriesHandler(bookingService, hub)
	packageHandler := handlers.NewPackageHandler(creditService)
	timeOffHandler := handlers.NewTimeOffHandler(timeOffService)
	eventsHandler := handlers.NewEventsHandler(hub, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	sessions := authProtected.Group("/sessions")
	sessions.Post("/book", sessionHandler.BookSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Put("/:id/reschedule", sessionHandler.RescheduleSession)
	sessions.Put("/:id/status", sessionHandler.UpdateStatus)
	sessions.Delete("/:id", sessionHandler.CancelSession)
	sessions.Post("/:id/participants", sessionHandler.AddParticipant)
	sessions.Delete("/:id/participants/:clientId", sessionHandler.RemoveParticipant)

	series := authProtected.Group("/series")
	series.Post("", seriesHandler.CreateSeries)
	series.Patch("/:id", seriesHandler.UpdateSeries)
	series.Delete("/:id", seriesHandler.DeleteSeries)

	packages := authProtected.Group("/packages")
	packages.Get("/:id", packageHandler.GetPackage)
	packages.Post("/:id/adjust", packageHandler.AdjustCredit)

	timeOff := authProtected.Group("/time-off")
	timeOff.Post("", timeOffHandler.RequestTimeOff)
	timeOff.Put("/:id/status", timeOffHandler.ResolveTimeOff)

	api.Use("/v1/ws", eventsHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(eventsHandler.HandleWebSocket))
}
