package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	bookingdomain "github.com/drivelane/drivelane/internal/booking/domain"
	catalogdomain "github.com/drivelane/drivelane/internal/catalog/domain"
	"github.com/drivelane/drivelane/internal/config"
	enrollmentdomain "github.com/drivelane/drivelane/internal/enrollment/domain"
	"github.com/drivelane/drivelane/internal/observability/logger"
	"github.com/drivelane/drivelane/internal/observability/metrics"
	"github.com/drivelane/drivelane/internal/observability/tracing"
	sessiondomain "github.com/drivelane/drivelane/internal/session/domain"
)

// Server holds the HTTP handlers and their service dependencies.
type Server struct {
	cfg config.Config
	log *zap.Logger
	db  *gorm.DB

	catalogSvc    catalogdomain.Service
	enrollmentSvc enrollmentdomain.Service
	sessionSvc    sessiondomain.Service
	bookingSvc    bookingdomain.Service
}

type Params struct {
	fx.In

	Config        config.Config
	Log           *zap.Logger
	DB            *gorm.DB
	CatalogSvc    catalogdomain.Service
	EnrollmentSvc enrollmentdomain.Service
	SessionSvc    sessiondomain.Service
	BookingSvc    bookingdomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:           p.Config,
		log:           p.Log.Named("server"),
		db:            p.DB,
		catalogSvc:    p.CatalogSvc,
		enrollmentSvc: p.EnrollmentSvc,
		sessionSvc:    p.SessionSvc,
		bookingSvc:    p.BookingSvc,
	}
}

// Router builds the gin engine with middleware and all API routes.
func (s *Server) Router(httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(tracing.GinMiddleware())
	r.Use(metrics.GinMiddleware(httpMetrics))

	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/schools", s.CreateSchool)
		api.GET("/schools", s.ListSchools)
		api.GET("/schools/:id", s.GetSchool)
		api.GET("/schools/:id/offers", s.ListSchoolOffers)
		api.GET("/schools/:id/monitors", s.ListSchoolMonitors)
		api.GET("/schools/:id/enrollments", s.ListSchoolEnrollments)
		api.GET("/schools/:id/sessions", s.ListSchoolSessions)
		api.GET("/schools/:id/bookings", s.ListSchoolBookings)

		api.POST("/offers", s.CreateOffer)
		api.GET("/offers/:id", s.GetOffer)
		api.POST("/monitors", s.CreateMonitor)
		api.GET("/monitors/:id/sessions", s.ListMonitorSessions)

		api.POST("/enrollments", s.CreateEnrollment)
		api.GET("/enrollments/:id", s.GetEnrollment)
		api.GET("/enrollments/:id/sessions", s.ListEnrollmentSessions)
		api.GET("/students/:id/enrollments", s.ListStudentEnrollments)

		api.POST("/sessions", s.CreateSession)
		api.GET("/sessions/:id", s.GetSession)
		api.PATCH("/sessions/:id/status", s.TransitionSession)
		api.DELETE("/sessions/:id", s.DeleteSession)

		api.POST("/bookings", s.CreateBooking)
		api.GET("/bookings/:id", s.GetBooking)
		api.PATCH("/bookings/:id/status", s.UpdateBookingStatus)
		api.GET("/users/:id/bookings", s.ListUserBookings)
		api.GET("/users/:id/invoices", s.ListUserInvoices)

		api.GET("/invoices/:id", s.GetInvoice)
		api.POST("/invoices/:id/pay", rateLimitMiddleware(newRateLimiter(60, time.Minute)), s.SettlePayment)
	}

	r.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Provide(func(cfg config.Config) (*metrics.HTTPMetrics, error) {
		return metrics.NewHTTPMetrics(metrics.Config{
			ServiceName: "drivelane",
			Environment: cfg.Environment,
		}, otel.GetMeterProvider())
	}),
	fx.Invoke(func(lc fx.Lifecycle, s *Server, httpMetrics *metrics.HTTPMetrics) {
		srv := &http.Server{
			Addr:    s.cfg.HTTPAddr,
			Handler: s.Router(httpMetrics),
		}
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						s.log.Error("http server stopped", zap.Error(err))
					}
				}()
				s.log.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
	}),
)
