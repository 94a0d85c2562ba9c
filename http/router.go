package http

import (
	"net/http"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var ErrServerClosed = http.ErrServerClosed

type RouterDeps struct {
	Purchases   PurchaseService
	Events      EventRepo
	TicketTypes TicketTypeRepo
	Clock       Clock
	JWTSecret   []byte
	// RateLimitStore limits purchase and confirm calls per user. Nil
	// disables rate limiting.
	RateLimitStore middleware.RateLimiterStore
}

func NewRouter(deps RouterDeps) *echo.Echo {
	server := commonHTTP.NewEcho()
	server.HTTPErrorHandler = handleError

	server.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	server.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handler := handler{
		purchases:   deps.Purchases,
		events:      deps.Events,
		ticketTypes: deps.TicketTypes,
		clock:       deps.Clock,
	}

	auth := authenticate(deps.JWTSecret)
	organizer := requireRole(roleOrganizer, roleAdmin)

	limited := []echo.MiddlewareFunc{auth}
	if deps.RateLimitStore != nil {
		limited = append(limited, rateLimit(deps.RateLimitStore))
	}

	server.POST("/api/tickets/purchase", handler.PurchaseTickets, limited...)
	server.POST("/api/tickets/confirm", handler.ConfirmPurchase, limited...)
	server.GET("/api/tickets/orders", handler.ListOrders, auth)
	server.PUT("/api/tickets/orders/:orderId/cancel-line-item", handler.CancelLineItem, auth)

	server.POST("/api/events", handler.CreateEvent, auth, organizer)
	server.GET("/api/events/:eventId", handler.GetEvent)
	server.POST("/api/tickets", handler.CreateTicketType, auth, organizer)
	server.GET("/api/tickets/event/:eventId", handler.ListTicketTypes)

	return server
}
