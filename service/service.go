package service

import (
	"context"
	"errors"
	"eventhub/clients"
	"eventhub/clock"
	"eventhub/config"
	"eventhub/db"
	"eventhub/event"
	"eventhub/http"
	"eventhub/message"
	handlers "eventhub/message/event"
	"eventhub/monitoring"
	"eventhub/purchase"
	"fmt"
	stdHTTP "net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Service struct {
	msgRouter  *message.Router
	forwarder  *message.OutboxForwarder
	monitor    *monitoring.Monitor
	httpRouter *echo.Echo
	httpAddr   string
}

// Collaborators carry out the side effects of order events. Nil fields
// disable the corresponding handlers.
type Collaborators struct {
	Mailer   handlers.ConfirmationMailer
	Receipts handlers.ReceiptIssuer
	Tracker  handlers.SpreadsheetAppender
	Printer  handlers.TicketPrinter
}

func New(
	cfg *config.Config,
	logger watermill.LoggerAdapter,
	redisClient *redis.Client,
	dbConn *sqlx.DB,
	collaborators Collaborators,
) (*Service, error) {
	clk := clock.NewSystem()

	eventRepo := db.NewEventRepo(dbConn)
	ticketTypeRepo := db.NewTicketTypeRepo(dbConn)
	orderRepo := db.NewOrderRepo(dbConn, logger)

	gateway := clients.NewStripeGateway(clients.StripeConfig{
		SecretKey:         cfg.StripeSecretKey,
		APIURL:            cfg.StripeAPIURL,
		MaxNetworkRetries: 2,
		HTTPClient:        &stdHTTP.Client{Timeout: cfg.GatewayTimeout},
	})

	purchases := purchase.NewService(eventRepo, ticketTypeRepo, orderRepo, gateway, clk, purchase.Config{
		Currency:        cfg.PaymentCurrency,
		AmountTolerance: cfg.AmountTolerance,
	})

	msgRouter, err := message.NewRouter(message.RouterDeps{
		Logger:      logger,
		RedisClient: redisClient,
		EventHandler: handlers.NewHandler(
			collaborators.Mailer,
			collaborators.Receipts,
			collaborators.Tracker,
			collaborators.Printer,
		),
	})
	if err != nil {
		return nil, fmt.Errorf("creating message router: %w", err)
	}

	fwd, err := message.NewForwarder(dbConn, redisClient, logger)
	if err != nil {
		return nil, fmt.Errorf("creating forwarder: %w", err)
	}

	monitor := monitoring.NewMonitor(redisClient,
		cqrs.StructName(&event.OrderConfirmed{}),
		cqrs.StructName(&event.OrderLineItemCanceled{}),
	)

	httpRouter := http.NewRouter(http.RouterDeps{
		Purchases:      purchases,
		Events:         eventRepo,
		TicketTypes:    ticketTypeRepo,
		Clock:          clk,
		JWTSecret:      []byte(cfg.JWTSecret),
		RateLimitStore: http.NewRedisRateLimitStore(redisClient, cfg.PurchaseRateLimit, time.Minute, clk),
	})

	return &Service{
		msgRouter:  msgRouter,
		forwarder:  fwd,
		monitor:    monitor,
		httpRouter: httpRouter,
		httpAddr:   cfg.HTTPAddr,
	}, nil
}

func (s Service) Run(ctx context.Context) error {
	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.forwarder.Run(runCtx); err != nil {
			return fmt.Errorf("running forwarder: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		if err := s.msgRouter.Run(runCtx); err != nil {
			return fmt.Errorf("running messaging router: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		return s.monitor.Run(runCtx)
	})

	g.Go(func() error {
		// Wait for message router
		<-s.msgRouter.Running()

		logrus.Infof("Starting HTTP server on %s...", s.httpAddr)
		err := s.httpRouter.Start(s.httpAddr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logrus.Info("Shutting down HTTP server...")
		if err := s.httpRouter.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("waiting for shutdown: %w", err)
	}
	logrus.Info("Shutdown complete.")

	return nil
}
