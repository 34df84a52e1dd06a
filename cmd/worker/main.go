package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cellannotation/cas/internal/queue"
	"github.com/cellannotation/cas/internal/storage"
	"github.com/cellannotation/cas/internal/util"
	"github.com/cellannotation/cas/pkg/leaselock"
	"github.com/cellannotation/cas/pkg/logger"
	"github.com/cellannotation/cas/pkg/logger/console"
	pgstore "github.com/cellannotation/cas/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug,
		JSON:   util.GetEnvBool("LOG_JSON", false),
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	// Init s3 client
	s3Client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "err", err)
	}

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	// Init rabbitmq
	conn, err := queue.Init()
	if err != nil {
		logger.Fatal("Failed to connect to queue", "err", err)
	}
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.TaxonomyQueue}); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	worker := &queue.Worker{
		Store:     pgstore.NewTaxonomyDBStorageWithConnection(pgConn),
		Objects:   storage.NewS3Bucket(s3Client),
		Locks:     leaselock.New(pgConn),
		Builder:   queue.NewBuilder(),
		Namespace: util.GetEnvString("CAS_NAMESPACE", "CAS"),
		LeaseTTL:  time.Duration(util.GetEnvInt("CAS_LEASE_TTL_SECONDS", 300)) * time.Second,
	}

	go serveMetrics(util.GetEnvString("METRICS_PORT", "9090"))

	// prefetch=1: one build at a time per worker
	err = ch.Qos(1, 0, false)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := ch.Consume(
		queue.TaxonomyQueue,
		"taxonomy_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.TaxonomyQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.TaxonomyQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.TaxonomyQueue)
				return
			}

			startTime := time.Now()
			logger.Info("Received message", "queue", queue.TaxonomyQueue)

			if err := worker.ProcessTaxonomyMessage(ctx, msg.Body); err != nil {
				logger.Error("Error processing message", "queue", queue.TaxonomyQueue, "err", err)
				queue.HandleProcessingError(ctx, ch, msg, queue.TaxonomyQueue, err)
			} else {
				if err := msg.Ack(false); err != nil {
					logger.Error("Failed to ack message", "err", err)
				}
				logger.Info("Message processed successfully", "queue", queue.TaxonomyQueue)
			}

			logger.Info("Processing time", "duration", time.Since(startTime).Round(time.Millisecond).String())
		}
	}
}

func serveMetrics(port string) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("Serving metrics", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server stopped", "err", err)
	}
}
