package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tixvn/ms-go-payments/app/controller"
	"github.com/tixvn/ms-go-payments/app/events"
	paymentgrpc "github.com/tixvn/ms-go-payments/app/grpc"
	"github.com/tixvn/ms-go-payments/app/provider"
	"github.com/tixvn/ms-go-payments/app/repository"
	"github.com/tixvn/ms-go-payments/app/service"
	"github.com/tixvn/ms-go-payments/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start the HTTP (Echo) server, the gRPC server, and the in-process outbox publisher loops.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	deps := mustCreateDependencies()
	defer deps.close()

	paymentController := controller.NewPaymentController(deps.paymentService)
	webhookController := controller.NewWebhookController(deps.paymentService)
	grpcPaymentServer := paymentgrpc.NewServer(deps.paymentService)

	e := setupHTTPServer(paymentController, webhookController)
	grpcSrv, lis := setupGRPCServer(deps.cfg, grpcPaymentServer)

	publisherCtx, stopPublisher := context.WithCancel(context.Background())
	publisherDone := runPublisherLoops(publisherCtx, deps.publisher, deps.cfg.Outbox)

	go func() {
		httpAddr := net.JoinHostPort(deps.cfg.HTTP.Host, deps.cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	stopPublisher()
	<-publisherDone

	logrus.Info("Server stopped")
}

// runPublisherLoops drives the outbox from inside the serve process: publish
// every tick, scan exhausted records on its own interval, and purge published
// records once a day at 02:00 local time.
func runPublisherLoops(ctx context.Context, publisher *service.OutboxPublisher, cfg config.OutboxConfig) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		publishTicker := time.NewTicker(cfg.TickInterval)
		defer publishTicker.Stop()
		exhaustedTicker := time.NewTicker(cfg.ExhaustedScan)
		defer exhaustedTicker.Stop()
		cleanupTimer := time.NewTimer(untilNextCleanup(time.Now()))
		defer cleanupTimer.Stop()

		for {
			select {
			case <-ctx.Done():
				// final drain so events committed during shutdown still go
				// out, bounded so shutdown cannot hang on a dead bus
				drainCtx, cancel := context.WithTimeout(context.Background(), cfg.PublishTimeout)
				if _, err := publisher.RunPublishBatch(drainCtx); err != nil {
					logrus.WithError(err).Warn("Final outbox drain failed")
				}
				cancel()
				return
			case <-publishTicker.C:
				if _, err := publisher.RunPublishBatch(ctx); err != nil {
					logrus.WithError(err).Error("Outbox publish batch failed")
				}
			case <-exhaustedTicker.C:
				if _, err := publisher.RunExhaustedScan(ctx); err != nil {
					logrus.WithError(err).Error("Outbox exhausted scan failed")
				}
			case <-cleanupTimer.C:
				if _, err := publisher.RunCleanupBatch(ctx); err != nil {
					logrus.WithError(err).Error("Outbox cleanup batch failed")
				}
				cleanupTimer.Reset(untilNextCleanup(time.Now()))
			}
		}
	}()

	return done
}

func untilNextCleanup(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func setupHTTPServer(
	paymentController *controller.PaymentController,
	webhookController *controller.WebhookController,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.RequestID())

	e.GET("/health", paymentController.Health)

	payments := e.Group("/payments")
	payments.POST("/intents", paymentController.CreatePaymentIntent)
	payments.GET("/intents/:idempotency_key", paymentController.GetPaymentUrlByIdempotencyKey)

	e.POST("/webhook", webhookController.HandleWebhook)
	e.POST("/webhook/:provider", webhookController.HandleProviderWebhook)

	return e
}

func setupGRPCServer(cfg *config.Config, paymentServer *paymentgrpc.Server) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ForceServerCodec(paymentgrpc.Codec()),
		grpc.ChainUnaryInterceptor(
			paymentgrpc.RecoveryInterceptor(),
			paymentgrpc.RequestIDInterceptor(),
			paymentgrpc.LoggingInterceptor(),
		),
	)
	paymentgrpc.RegisterPaymentsServiceServer(grpcSrv, paymentServer)

	return grpcSrv, lis
}

type dependencies struct {
	cfg            *config.Config
	paymentService *service.PaymentService
	publisher      *service.OutboxPublisher
	close          func()
}

func mustCreateDependencies() *dependencies {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.DB.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	paymentRepo := repository.NewPaymentRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	callbackRepo := repository.NewPaymentCallbackRepository(db)
	txManager := repository.NewTxManager(db)

	providerRegistry := buildProviderRegistry(cfg)

	producer := events.NewProducer(events.ProducerConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID,
		SSL:      cfg.Kafka.SSL,
		Username: cfg.Kafka.Username,
		Password: cfg.Kafka.Password,
	})
	if err := producer.Ping(context.Background()); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to reach Kafka brokers")
	}

	serviceLogger := logrus.WithField("module", "payment-service")
	paymentService := service.NewPaymentService(
		paymentRepo,
		outboxRepo,
		callbackRepo,
		providerRegistry,
		txManager,
		serviceLogger,
	)

	publisherLogger := logrus.WithField("module", "outbox-publisher")
	publisher := service.NewOutboxPublisher(outboxRepo, producer, cfg.Outbox, publisherLogger)

	closeAll := func() {
		if err := producer.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close Kafka producer")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return &dependencies{
		cfg:            cfg,
		paymentService: paymentService,
		publisher:      publisher,
		close:          closeAll,
	}
}

func buildProviderRegistry(cfg *config.Config) *provider.Registry {
	adapters := []provider.Adapter{
		provider.NewZaloPayProvider(provider.ZaloPayConfig{
			AppID:       cfg.ZaloPay.AppID,
			Key1:        cfg.ZaloPay.Key1,
			Key2:        cfg.ZaloPay.Key2,
			Endpoint:    cfg.ZaloPay.Endpoint,
			CallbackURL: zaloPayCallbackURL(cfg.Webhook.BaseURL),
		}),
		provider.NewVNPayProvider(),
	}

	if cfg.PayOS.ClientID != "" {
		payOSProvider, err := provider.NewPayOSProvider(provider.PayOSConfig{
			ClientID:    cfg.PayOS.ClientID,
			APIKey:      cfg.PayOS.APIKey,
			ChecksumKey: cfg.PayOS.ChecksumKey,
		})
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize PayOS provider")
		}
		adapters = append(adapters, payOSProvider)
	} else {
		logrus.Warn("PayOS credentials not configured, provider disabled")
	}

	return provider.NewRegistry(adapters...)
}

func zaloPayCallbackURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return ""
	}
	return base + "/webhook/zalopay"
}
