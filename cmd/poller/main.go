package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Replypush/internal/config/poller"
	"github.com/NordCoder/Replypush/internal/domain/push"
	"github.com/NordCoder/Replypush/internal/lemmy"
	"github.com/NordCoder/Replypush/internal/obs"
	"github.com/NordCoder/Replypush/internal/obs/retry"
	"github.com/NordCoder/Replypush/internal/outbox"
	pushsvc "github.com/NordCoder/Replypush/internal/push"
	kafkaRepo "github.com/NordCoder/Replypush/internal/repository/kafka"
	pg "github.com/NordCoder/Replypush/internal/repository/postgres"
	"github.com/NordCoder/Replypush/internal/services/poller"
	"github.com/NordCoder/Replypush/internal/services/poller/repo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:          "poller",
		Short:        "Poll Lemmy accounts for new replies and push them to devices",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfgPath)
		},
	}
	root.Flags().StringVarP(&cfgPath, "config", "c", "../config/poller.yaml", "path to config file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func newDispatcher(ctx context.Context, cfg config.Push, l *zap.Logger) (push.Dispatcher, error) {
	if cfg.DryRun {
		l.Warn("push dry run: notifications are only logged")
		return pushsvc.NewLogDispatcher(l), nil
	}
	return pushsvc.NewFCM(ctx, cfg, l)
}

func run(ctx context.Context, cfgPath string) error {
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
	l.Info("starting poller",
		zap.Any("poller", cfg.Poller),
		zap.Any("kafka_out", cfg.Kafka),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
		zap.Bool("push_dry_run", cfg.Push.DryRun),
	)

	// otel
	otelCloser, err := obs.SetupOTel(ctx, cfg.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// db
	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	// push
	dispatcher, err := newDispatcher(ctx, cfg.Push, l)
	if err != nil {
		l.Fatal("push init", zap.Error(err))
	}

	// lemmy
	fetcher := lemmy.New(cfg.Lemmy)
	defer fetcher.Close()

	// kafka
	if err := kafkaRepo.EnsureTopic(ctx, cfg.Kafka.Brokers, kafkaRepo.TopicSpec{
		Name:              cfg.Kafka.Topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
		MaxWait:           5 * time.Second,
	}, l); err != nil {
		l.Warn("ensure topic", zap.Error(err))
	}
	prod := kafkaRepo.NewProducer(cfg.Kafka.AsProducerConfig()).WithLogger(l)
	defer func() { _ = prod.Close() }()
	events := kafkaRepo.NewReplyEventsKafka(prod)

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Ping(hctx)
	}, l)

	// wiring
	outboxRepo := pg.NewOutboxRepo(db)
	store := repo.Accounts{
		R:      pg.NewAccountRepo(db),
		Tx:     pg.NewTransactor(db, l),
		Outbox: outboxRepo,
		Clock:  systemClock{},
	}
	pool := poller.NewPool(&poller.Deps{
		Log:          l,
		Store:        store,
		Fetcher:      fetcher,
		Push:         dispatcher,
		Clock:        systemClock{},
		Poller:       cfg.Poller,
		PushCfg:      cfg.Push,
		FetchTimeout: cfg.Lemmy.Timeout,
	})
	journal := outbox.NewOutboxRunner(l, outboxRepo,
		outbox.MakeGlobalOutboxHandler(events, retry.DefaultPublishPolicy(l)), cfg.Outbox)

	// run
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pool.Run(gctx) })
	g.Go(func() error {
		journal.Start(gctx)
		journal.Wait()
		return nil
	})
	l.Info("poller started")

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		l.Error("poller stopped with error", zap.Error(err))
	}

	// graceful shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
	return nil
}
