package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"gitlab.ozon.dev/qwestard/berryshop/internal/audit"
	"gitlab.ozon.dev/qwestard/berryshop/internal/config"
	"gitlab.ozon.dev/qwestard/berryshop/internal/db"
	"gitlab.ozon.dev/qwestard/berryshop/internal/kafka"
	taskprocessor "gitlab.ozon.dev/qwestard/berryshop/internal/processor"
	"gitlab.ozon.dev/qwestard/berryshop/internal/repository"
	"gitlab.ozon.dev/qwestard/berryshop/internal/server"
	"gitlab.ozon.dev/qwestard/berryshop/internal/service"
)

func main() {
	cfg := config.LoadConfig()

	database, err := db.NewDB(cfg.DSN, cfg.MigrationsDir)
	if err != nil {
		log.Fatalf("Error in connection to db: %v", err)
	}
	defer database.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	auditPool := audit.NewAuditWorkerPool(
		audit.AuditPoolConfig{BatchSize: 10, Timeout: 2 * time.Second, ChannelSize: 256},
		audit.NewDBProcessor(database),
		&audit.StdoutProcessor{Filter: cfg.FilterWord},
	)
	auditPool.Start(ctx, 2)
	defer auditPool.Shutdown(cancel)

	outbox := repository.NewPostgresAuditTaskRepository(database)

	svc := service.New(service.Deps{
		Users:      repository.NewUserRepository(database),
		Products:   repository.NewProductRepository(database),
		Orders:     repository.NewOrderRepository(database),
		Payments:   repository.NewPaymentRepository(database),
		Warehouses: repository.NewWarehouseRepository(database),
		Outbox:     outbox,
		AuditPool:  auditPool,
	})
	svc.StartCacheRefresh(ctx, 30*time.Second)
	if err := svc.RefreshActiveOrders(ctx); err != nil {
		log.Printf("Initial cache refresh failed: %v", err)
	}
	if err := svc.RefreshHistoryOrders(ctx); err != nil {
		log.Printf("Initial history refresh failed: %v", err)
	}

	producer, err := kafka.NewSaramaProducer(cfg.KafkaBrokers)
	if err != nil {
		log.Printf("Kafka producer unavailable, audit relay disabled: %v", err)
	} else {
		defer producer.Close()
		relay := taskprocessor.NewTaskProcessor(outbox, producer, cfg.KafkaTopic, 5*time.Second, 50)
		go relay.Start(ctx)

		consumerCfg := sarama.NewConfig()
		consumerCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
		go kafka.StartSaramaConsumer(ctx, consumerCfg, cfg.KafkaBrokers, cfg.KafkaGroupID, []string{cfg.KafkaTopic})
	}

	srv := server.NewServer(svc, auditPool, cfg)

	if err := srv.Run(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
