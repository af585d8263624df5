package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mlimwengu/CourseHubGo/internal/service"
	"github.com/mlimwengu/CourseHubGo/pkg/health"
	"github.com/mlimwengu/CourseHubGo/pkg/middleware"
)

// RouterDeps bundles the services the router exposes.
type RouterDeps struct {
	Catalog       *service.CatalogService
	Reviews       *service.ReviewService
	Points        *service.PointsService
	Progress      *service.ProgressService
	Notifications *service.NotificationService
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(deps RouterDeps, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("coursehub"))
	r.Use(middleware.Tracing("coursehub"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	catalogHandler := NewCatalogHandler(deps.Catalog, deps.Reviews, logger)
	pointsHandler := NewPointsHandler(deps.Points, logger)
	progressHandler := NewProgressHandler(deps.Progress, logger)
	notificationHandler := NewNotificationHandler(deps.Notifications, logger)

	r.Route("/api/v1/courses", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", catalogHandler.CreateCourse)
		r.With(middleware.CacheControl(60)).Get("/", catalogHandler.ListCourses)
		r.With(middleware.CacheControl(60)).Get("/{id}", catalogHandler.GetCourse)
		r.Post("/{id}/reviews", catalogHandler.AddCourseReview)
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", catalogHandler.CreateProduct)
		r.With(middleware.CacheControl(60)).Get("/{id}", catalogHandler.GetProduct)
		r.Post("/{id}/reviews", catalogHandler.AddProductReview)
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", catalogHandler.CreateUser)
		r.Get("/{id}", catalogHandler.GetUser)
		r.Post("/{id}/points/credit", pointsHandler.CreditPoints)
		r.Get("/{id}/notifications", notificationHandler.ListNotifications)
		r.Put("/{id}/notifications/{notificationID}/read", notificationHandler.MarkNotificationRead)
	})

	r.Route("/api/v1/redemptions", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", pointsHandler.Redeem)
		r.Get("/", pointsHandler.ListRedemptions)
		r.Get("/{id}", pointsHandler.GetRedemption)
		r.Put("/{id}/status", pointsHandler.DecideRedemption)
	})

	r.Route("/api/v1/rewards", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", pointsHandler.CreateReward)
		r.With(middleware.CacheControl(300)).Get("/", pointsHandler.ListRewards)
	})

	r.Route("/api/v1/enrollments", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", progressHandler.Enroll)
		r.Get("/{id}", progressHandler.GetEnrollment)
		r.Post("/{id}/lessons", progressHandler.CompleteLesson)
	})

	return r
}
