// Package scheduler содержит фоновый процесс: ретранслятор outbox и напоминания
// об окончании абонементов.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/gym-management/internal/config"
	"github.com/magabrotheeeer/gym-management/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
	outboxservice "github.com/magabrotheeeer/gym-management/internal/services/outbox"
	schedulerservice "github.com/magabrotheeeer/gym-management/internal/services/scheduler"
	"github.com/magabrotheeeer/gym-management/internal/storage/repository"
)

// App представляет приложение планировщика.
type App struct {
	outboxService    *outboxservice.OutboxService
	schedulerService *schedulerservice.SchedulerService
	publisher        *rabbitmq.Publisher
	relayInterval    time.Duration
	db               *repository.Storage
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	for i := 0; i < 10; i++ {
		err := repository.CheckDatabaseReady(ctx, db)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.GetGymQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	// схему создаёт gym-api, планировщик только ждёт её готовности
	if err := waitForDB(ctx, db); err != nil {
		db.Close()
		closeResources(ch, conn, logger)
		return nil, err
	}

	publisher := rabbitmq.NewPublisher(ch, cfg.Exchange)

	return &App{
		outboxService:    outboxservice.NewOutboxService(db, cfg.Outbox, logger),
		schedulerService: schedulerservice.NewSchedulerService(db, publisher, logger),
		publisher:        publisher,
		relayInterval:    cfg.RelayInterval,
		db:               db,
		conn:             conn,
		ch:               ch,
		logger:           logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает ретранслятор и напоминания и ждёт их остановки после отмены ctx.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.outboxService.RunRelay(ctx, a.publisher, a.relayInterval)
	}()
	go func() {
		defer wg.Done()
		a.schedulerService.RunMembershipReminders(ctx)
	}()

	<-ctx.Done()
	wg.Wait()

	a.logger.Info("shutting down scheduler service")

	closeResources(a.ch, a.conn, a.logger)
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
