package main

import (
	"context"
	"eventhub/clients"
	"eventhub/config"
	"eventhub/db"
	"eventhub/service"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	log.Init(logrus.InfoLevel)
	logger := watermill.NewStdLogger(false, false)

	if err := run(logger); err != nil {
		logger.Error("failed to run", err, nil)
		os.Exit(1)
	}
}

func run(logger watermill.LoggerAdapter) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("failed to close redis connection", err, nil)
		}
	}()

	dbConn, err := sqlx.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close db connection", err, nil)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := db.InitialiseDB(ctx, dbConn); err != nil {
		return fmt.Errorf("initialising db: %w", err)
	}

	collaborators, err := newCollaborators(cfg)
	if err != nil {
		return err
	}

	svc, err := service.New(cfg, logger, rdb, dbConn, collaborators)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	return svc.Run(ctx)
}

// newCollaborators leaves out the ones that are not configured.
func newCollaborators(cfg *config.Config) (service.Collaborators, error) {
	var collaborators service.Collaborators

	if cfg.SMTPAddr != "" {
		collaborators.Mailer = clients.NewMailer(clients.MailerConfig{
			Addr:        cfg.SMTPAddr,
			User:        cfg.SMTPUser,
			Password:    cfg.SMTPPassword,
			From:        cfg.EmailFrom,
			FromName:    cfg.EmailFromName,
			FrontendURL: cfg.FrontendURL,
		})
	} else {
		logrus.Warn("SMTP_ADDR not set, confirmation e-mails are disabled")
	}

	if cfg.GatewayAddr != "" {
		c, err := clients.NewGatewayClients(cfg.GatewayAddr, &http.Client{Timeout: cfg.GatewayTimeout})
		if err != nil {
			return service.Collaborators{}, fmt.Errorf("creating gateway client: %w", err)
		}
		collaborators.Receipts = clients.NewReceiptsClient(c)
		collaborators.Tracker = clients.NewSpreadsheetsClient(c)
		collaborators.Printer = clients.NewFilesClient(c)
	} else {
		logrus.Warn("GATEWAY_ADDR not set, receipts, tracker and ticket printing are disabled")
	}

	return collaborators, nil
}
