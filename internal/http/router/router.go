package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/workmarket-backend/internal/config"
	"github.com/ignatzorin/workmarket-backend/internal/http/middleware"
	"github.com/ignatzorin/workmarket-backend/internal/interface/http/handler"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/token"
)

// Handlers всё, что нужно роутеру; собирается в main.
type Handlers struct {
	Listings *handler.ListingHandler
	Bookings *handler.BookingHandler
	Reports  *handler.ReportHandler
	Health   *handler.HealthHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens *token.Verifier, limitStore limiter.Store) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RequestMetrics())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(limitStore, cfg.RateLimitLimit, cfg.RateLimitPeriod))
	api.Use(middleware.AuthMiddleware(tokens))

	id := middleware.UUIDValidator("id")

	listings := api.Group("/listings")
	{
		listings.POST("", h.Listings.CreateListing)
		listings.GET("", h.Listings.ListListings)
		listings.GET("/:id", id, h.Listings.GetListing)
		listings.DELETE("/:id", id, h.Listings.DeleteListing)
		listings.POST("/:id/publish", id, h.Listings.PublishListing)
		listings.POST("/:id/cancel", id, h.Listings.CancelListing)
		listings.POST("/:id/view", id, h.Listings.RecordView)
		listings.GET("/:id/candidates", id, h.Listings.RankCandidates)
		listings.POST("/:id/applications", id, h.Bookings.Apply)
		listings.GET("/:id/applications", id, h.Bookings.ListListingBookings)
	}

	bookings := api.Group("/bookings")
	{
		bookings.GET("/my", h.Bookings.ListMyBookings)
		bookings.GET("/:id", id, h.Bookings.GetBooking)
		bookings.POST("/:id/transition", id, h.Bookings.Transition)
		bookings.PUT("/:id/schedule", id, h.Bookings.Schedule)
		bookings.PUT("/:id/amount", id, h.Bookings.SetFinalAmount)
		bookings.POST("/:id/evidence", id, h.Bookings.AddEvidence)
		bookings.POST("/:id/rating", id, h.Bookings.Rate)
		bookings.POST("/:id/notes", id, h.Bookings.AddNote)
		bookings.POST("/:id/issue", id, h.Bookings.FlagIssue)
		bookings.GET("/:id/can-cancel", id, h.Bookings.CanCancel)
		bookings.GET("/:id/duration", id, h.Bookings.WorkDuration)
		bookings.GET("/:id/timeline", id, h.Bookings.Timeline)
	}

	admin := api.Group("/admin")
	{
		admin.GET("/reports/summary", h.Reports.Summary)
		admin.DELETE("/bookings/:id", id, h.Bookings.Purge)
	}

	return r
}
