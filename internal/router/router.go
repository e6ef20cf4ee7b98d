// Package router assembles the echo instance: global middleware, the
// account and session routes, the booking routes and operational
// endpoints.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/metrics"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
)

// Deps is everything the routes need.  Redis may be nil, which disables
// rate limiting.
type Deps struct {
	DB        *sql.DB
	Auth      *handler.AuthHandler
	Bookings  *handler.BookingHandler
	Sessions  middleware.SessionValidator
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())

	RegisterOps(e, d.DB)
	RegisterAuth(e, d)
	RegisterBooking(e, d)
	return e
}

// RegisterOps exposes the health check and Prometheus metrics.
func RegisterOps(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers account and session routes.  Register and login
// are rate limited; everything else requires a session.
func RegisterAuth(e *echo.Echo, d Deps) {
	limit := middleware.RateLimit(d.RateLimit, d.Redis)

	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register, limit)
	g.POST("/login", d.Auth.Login, limit)

	authed := middleware.RequireSession(d.Sessions)
	g.POST("/logout", d.Auth.Logout, authed)
	g.POST("/logout-all", d.Auth.LogoutAll, authed)

	e.GET("/v1/me", d.Auth.Me, authed)
	e.GET("/v1/sessions", d.Auth.ListSessions, authed)
}

// RegisterBooking registers showing, booking and receipt routes.  Seat
// maps, availability and price previews are public.  Booking accepts an
// optional session so anonymous customers can book.
func RegisterBooking(e *echo.Echo, d Deps) {
	b := d.Bookings
	limit := middleware.RateLimit(d.RateLimit, d.Redis)

	s := e.Group("/v1/showings/:id")
	s.GET("/seats", b.SeatMap)
	s.POST("/availability", b.Availability)
	s.POST("/price", b.Price)
	s.POST("/bookings", b.Book, middleware.OptionalSession(d.Sessions), limit)

	authed := middleware.RequireSession(d.Sessions)
	e.GET("/v1/bookings", b.ListBookings, authed)
	e.GET("/v1/bookings/:id", b.GetBooking, authed)

	e.GET("/v1/receipts/:token", b.Receipt)
}
