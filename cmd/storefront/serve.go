package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pmgasset/nomadtech/internal/cache"
	"github.com/pmgasset/nomadtech/internal/catalog"
	"github.com/pmgasset/nomadtech/internal/config"
	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/pmgasset/nomadtech/internal/eventlog"
	storegrpc "github.com/pmgasset/nomadtech/internal/grpc"
	"github.com/pmgasset/nomadtech/internal/health"
	storehttp "github.com/pmgasset/nomadtech/internal/http"
	"github.com/pmgasset/nomadtech/internal/notify"
	"github.com/pmgasset/nomadtech/internal/payment"
	"github.com/pmgasset/nomadtech/internal/poller"
	"github.com/pmgasset/nomadtech/internal/publisher"
	"github.com/pmgasset/nomadtech/internal/reconcile"
	"github.com/pmgasset/nomadtech/internal/repository"
	"github.com/pmgasset/nomadtech/internal/service"
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API, webhook receiver and gRPC health server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply database migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger, migrate bool) error {
	creds := postgresCredentials(cfg)
	repo, err := repository.NewRepository(ctx, creds)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer repo.Close()
	log.Info("connected to order database", "host", cfg.Database.Host, "database", cfg.Database.Name)

	products, err := catalog.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		return err
	}
	defer products.Close()

	if migrate {
		if err := repo.RunMigrations(creds); err != nil {
			return err
		}
		if err := products.RunMigrations(cfg.Catalog.MigrationsPath); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Carts are unavailable until Redis comes back; webhooks still work.
		log.Warn("redis ping failed", "addr", cfg.Redis.Addr, "error", err)
	}
	carts := cache.NewRedisCache(redisClient, cfg.Redis.CartTTL)

	stripe := payment.NewStripeClient(payment.StripeConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Timeout:       cfg.Stripe.Timeout,
		APIURL:        cfg.Stripe.APIURL,
	}, log)

	mailer := notify.NewDispatcher(notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:   cfg.Email.SendGridAPIKey,
		From:     cfg.Email.From,
		FromName: cfg.Email.FromName,
		Timeout:  cfg.Email.Timeout,
	}, log), log)

	pub := publisher.New(publisher.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	}, log)
	defer pub.Close()

	var archive storehttp.EventRecorder = eventlog.Noop{}
	if cfg.Mongo.URI != "" {
		db, err := eventlog.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return err
		}
		events := eventlog.NewArchive(db)
		defer events.Close(context.WithoutCancel(ctx))
		if err := events.CreateIndexes(ctx); err != nil {
			return err
		}
		archive = events
		log.Info("webhook archive enabled", "database", cfg.Mongo.Database)
	}

	reconciler := reconcile.NewReconciler(repo, mailer, pub, log, reconcile.WithPlanCatalog(products))

	flow := domain.FlowOptions{
		ShowProgressIndicator: cfg.Flow.ShowProgressIndicator,
		CollectPhone:          cfg.Flow.CollectPhone,
	}
	cartService := service.NewCartService(carts, products, log)
	checkoutService := service.NewCheckoutService(cartService, stripe, service.CheckoutConfig{
		BaseURL:             cfg.HTTP.BaseURL,
		Currency:            cfg.Checkout.Currency,
		AllowedCountries:    cfg.Checkout.AllowedCountries,
		AutomaticTax:        cfg.Checkout.AutomaticTax,
		AllowPromotionCodes: cfg.Checkout.AllowPromotionCodes,
		SessionTTL:          cfg.Checkout.SessionTTL,
		Flow:                flow,
	}, log)

	checker := health.NewChecker(health.Config{
		Service:     cfg.Service.Name,
		Version:     cfg.Service.Version,
		Database:    repo,
		Processor:   stripe,
		CartStore:   carts,
		Credentials: cfg.Credentials(),
	}, log)

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.SweepCarts {
		sweeper := poller.NewPoller(poller.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, carts, log)
		defer sweeper.Close()
		go sweeper.Run(ctx)
		log.Info("cart sweeper started", "topic", cfg.Kafka.Topic)
	}

	srv := &http.Server{
		Addr: ":" + cfg.HTTP.Port,
		Handler: storehttp.NewRouter(storehttp.Deps{
			Products:       products,
			Carts:          cartService,
			Checkout:       checkoutService,
			Verifier:       stripe,
			Events:         reconciler,
			Archive:        archive,
			Orders:         repo,
			Shipper:        reconciler,
			Health:         checker,
			Flow:           flow,
			AdminToken:     cfg.HTTP.AdminToken,
			SecureCookies:  cfg.HTTP.SecureCookies,
			RequestTimeout: cfg.HTTP.RequestTimeout,
			WebhookTimeout: cfg.HTTP.WebhookTimeout,
			Logger:         log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		return fmt.Errorf("listen on grpc port %s: %w", cfg.GRPC.Port, err)
	}
	grpcServer := storegrpc.NewServer(checker, log)

	errCh := make(chan error, 2)
	go func() {
		log.Info("http server listening", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info("grpc server listening", "port", cfg.GRPC.Port)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down storefront")
	case serveErr = <-errCh:
		log.Error("server failed, shutting down", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	log.Info("storefront stopped")
	return serveErr
}
