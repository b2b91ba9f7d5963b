// Package worker обрабатывает очереди: активацию оплаченных абонементов
// и почтовые напоминания.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/gym-management/internal/cache"
	"github.com/magabrotheeeer/gym-management/internal/config"
	"github.com/magabrotheeeer/gym-management/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
	"github.com/magabrotheeeer/gym-management/internal/lib/smtp"
	membershipservice "github.com/magabrotheeeer/gym-management/internal/services/membership"
	outboxservice "github.com/magabrotheeeer/gym-management/internal/services/outbox"
	senderservice "github.com/magabrotheeeer/gym-management/internal/services/sender"
	"github.com/magabrotheeeer/gym-management/internal/storage/repository"
)

// App представляет приложение обработчика очередей.
type App struct {
	outboxService     *outboxservice.OutboxService
	membershipService *membershipservice.MembershipService
	senderService     *senderservice.SenderService
	db                *repository.Storage
	cache             *cache.Cache
	conn              *amqp.Connection
	ch                *amqp.Channel
	logger            *slog.Logger
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

// New создает новый экземпляр обработчика очередей.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		db.Close()
		cacheRedis.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.GetGymQueues())
	if err != nil {
		conn.Close()
		db.Close()
		cacheRedis.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)

	return &App{
		outboxService:     outboxservice.NewOutboxService(db, cfg.Outbox, logger),
		membershipService: membershipservice.NewMembershipService(db, cacheRedis, logger),
		senderService:     senderservice.NewSenderService(transport, logger),
		db:                db,
		cache:             cacheRedis,
		conn:              conn,
		ch:                ch,
		logger:            logger,
	}, nil
}

// Run подписывается на очереди и работает до отмены ctx. Соединения
// закрываются только после завершения всех начатых обработчиков.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	waitActivation, err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.QueueMembershipActivate, a.logger,
		a.outboxService.ActivationHandler(a.membershipService))
	if err != nil {
		a.logger.Error("failed to start activation consumer", sl.Err(err))
		a.close()
		return err
	}

	waitExpiring, err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.QueueMembershipExpiring, a.logger,
		a.senderService.SendMembershipExpiring)
	if err != nil {
		a.logger.Error("failed to start membership_expiring consumer", sl.Err(err))
		stop()
		waitActivation()
		a.close()
		return err
	}

	<-ctx.Done()
	a.logger.Info("worker shutting down gracefully")
	waitActivation()
	waitExpiring()
	a.close()
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
