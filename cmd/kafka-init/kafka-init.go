package main

import (
	"context"
	"log"
	"strings"
	"time"

	kafkax "github.com/NordCoder/Replypush/internal/repository/kafka"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var (
		brokers    []string
		topics     []string
		partitions int
		rf         int
		timeout    time.Duration
	)
	root := &cobra.Command{
		Use:          "kafka-init",
		Short:        "Create the replypush topics and wait for their leaders",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer func() { _ = l.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			for _, t := range topics {
				t = strings.TrimSpace(t)
				if t == "" {
					continue
				}
				if err := kafkax.EnsureTopic(ctx, brokers, kafkax.TopicSpec{
					Name:              t,
					NumPartitions:     partitions,
					ReplicationFactor: rf,
					MaxWait:           30 * time.Second,
				}, l); err != nil {
					return err
				}
				l.Info("topic ready", zap.String("topic", t))
			}
			return nil
		},
	}
	f := root.Flags()
	f.StringSliceVar(&brokers, "brokers", []string{"kafka:9092"}, "kafka bootstrap brokers")
	f.StringSliceVar(&topics, "topics", []string{"replypush.reply.notified"}, "topics to create")
	f.IntVar(&partitions, "partitions", 3, "partitions per topic")
	f.IntVar(&rf, "replication-factor", 1, "replication factor")
	f.DurationVar(&timeout, "timeout", 60*time.Second, "overall deadline")

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
