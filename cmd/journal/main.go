package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Replypush/internal/config/journal"
	"github.com/NordCoder/Replypush/internal/obs"
	"github.com/NordCoder/Replypush/internal/repository/kafka"
	pg "github.com/NordCoder/Replypush/internal/repository/postgres"
	"github.com/NordCoder/Replypush/internal/services/journal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func wiring(db *pg.DB, cons *kafka.Consumer, l *zap.Logger) *journal.Controller {
	uc := &journal.Handler{
		Store: pg.NewNotificationRepo(db),
		Log:   l.With(zap.String("component", "journal.handler")),
	}
	return &journal.Controller{Log: l, Sub: cons, UC: uc}
}

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:          "journal",
		Short:        "Record pushed replies from the reply_notified topic",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfgPath)
		},
	}
	root.Flags().StringVarP(&cfgPath, "config", "c", "../config/journal.yaml", "path to config file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(rootCtx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	// logger
	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting journal",
		zap.Any("kafka_in", cfg.In),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(rootCtx, cfg.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// db
	db, err := pg.NewDB(rootCtx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Ping(hctx)
	}, l)

	// kafka
	cons := kafka.BootstrapConsumer(rootCtx, cfg.In.AsConsumerConfig(), l)
	defer func() { _ = cons.Close() }()

	// start
	ctrl := wiring(db, cons, l)
	errCh := make(chan error, 1)
	go func() {
		l.Info("controller starting")
		errCh <- ctrl.Run(rootCtx)
	}()

	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr := <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			l.Error("controller error", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
	return nil
}
