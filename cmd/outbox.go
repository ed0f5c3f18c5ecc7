package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tixvn/ms-go-payments/app/service"
	"github.com/tixvn/ms-go-payments/config"
)

var workerMode bool

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Run outbox-related commands",
}

var outboxPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish pending outbox records to the event bus",
	Run: func(_ *cobra.Command, _ []string) {
		runOutboxCommand(
			"outbox_publish",
			func(cfg *config.Config) time.Duration { return cfg.Outbox.TickInterval },
			func(p *service.OutboxPublisher, ctx context.Context) error {
				_, err := p.RunPublishBatch(ctx)
				return err
			},
		)
	},
}

var outboxCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete published outbox records past the retention window",
	Run: func(_ *cobra.Command, _ []string) {
		runOutboxCommand(
			"outbox_cleanup",
			func(_ *config.Config) time.Duration { return 24 * time.Hour },
			func(p *service.OutboxPublisher, ctx context.Context) error {
				_, err := p.RunCleanupBatch(ctx)
				return err
			},
		)
	},
}

var outboxExhaustedCmd = &cobra.Command{
	Use:   "exhausted",
	Short: "Report outbox records that ran out of publish retries",
	Run: func(_ *cobra.Command, _ []string) {
		runOutboxCommand(
			"outbox_exhausted",
			func(cfg *config.Config) time.Duration { return cfg.Outbox.ExhaustedScan },
			func(p *service.OutboxPublisher, ctx context.Context) error {
				_, err := p.RunExhaustedScan(ctx)
				return err
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(outboxCmd)
	outboxCmd.AddCommand(outboxPublishCmd)
	outboxCmd.AddCommand(outboxCleanupCmd)
	outboxCmd.AddCommand(outboxExhaustedCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runOutboxCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(p *service.OutboxPublisher, ctx context.Context) error,
) {
	deps := mustCreateDependencies()
	defer deps.close()

	if workerMode {
		runWorker(name, intervalResolver(deps.cfg), deps.publisher, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(deps.publisher, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	publisher *service.OutboxPublisher,
	fn func(p *service.OutboxPublisher, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(publisher, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(publisher, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
