// Package services содержит доставку событий outbox: ретранслятор из базы
// в RabbitMQ, обработчик активации абонементов и админские операции.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/gym-management/internal/config"
	"github.com/magabrotheeeer/gym-management/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
	"github.com/magabrotheeeer/gym-management/internal/metrics"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

const listLimit = 100

// activationSource метка источника для метрики активаций.
const activationSource = "order"

// OutboxRepository методы хранилища для событий outbox.
type OutboxRepository interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	ClaimPendingEvents(ctx context.Context, limit int) ([]*models.OutboxEvent, error)
	MarkOutboxPublished(ctx context.Context, id int64) error
	GetOutboxEvent(ctx context.Context, id int64) (*models.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id int64) error
	RecordOutboxFailure(ctx context.Context, id int64, errMsg string, maxAttempts int) (models.OutboxStatus, error)
	ListOutboxEvents(ctx context.Context, status models.OutboxStatus, limit int) ([]*models.OutboxEvent, error)
	ResetOutboxEvent(ctx context.Context, id int64) error
}

// Publisher отправляет сообщение в брокер.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Activator активирует абонемент.
type Activator interface {
	Activate(ctx context.Context, userID, planID int64, source string) (*models.MembershipInfo, error)
}

// OutboxService реализует доставку событий.
type OutboxService struct {
	repo        OutboxRepository
	batchSize   int
	maxAttempts int
	log         *slog.Logger
}

// NewOutboxService создает новый экземпляр OutboxService.
func NewOutboxService(repo OutboxRepository, cfg config.Outbox, log *slog.Logger) *OutboxService {
	return &OutboxService{
		repo:        repo,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		log:         log,
	}
}

// Relay публикует пачку ожидающих событий и помечает их опубликованными.
// Строки берутся с SKIP LOCKED, поэтому несколько ретрансляторов не
// публикуют одно событие одновременно. На первой ошибке публикации пачка
// обрывается, уже опубликованные события фиксируются.
func (s *OutboxService) Relay(ctx context.Context, pub Publisher) (int, error) {
	const op = "services.outbox.Relay"
	var published int
	var pubErr error
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		events, err := s.repo.ClaimPendingEvents(ctx, s.batchSize)
		if err != nil {
			return err
		}
		for _, ev := range events {
			msg := models.OutboxMessage{EventID: ev.ID, EventType: ev.EventType, Payload: ev.Payload}
			if pubErr = pub.Publish(ev.EventType, msg); pubErr != nil {
				return nil
			}
			if err := s.repo.MarkOutboxPublished(ctx, ev.ID); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if published > 0 {
		metrics.OutboxEvents.WithLabelValues("published").Add(float64(published))
	}
	if pubErr != nil {
		return published, fmt.Errorf("%s: publish: %w", op, pubErr)
	}
	return published, nil
}

// RunRelay запускает Relay сразу и затем каждые interval до отмены ctx.
func (s *OutboxService) RunRelay(ctx context.Context, pub Publisher, interval time.Duration) {
	s.relayOnce(ctx, pub)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("outbox relay stopped")
			return
		case <-ticker.C:
			s.relayOnce(ctx, pub)
		}
	}
}

func (s *OutboxService) relayOnce(ctx context.Context, pub Publisher) {
	n, err := s.Relay(ctx, pub)
	if err != nil {
		s.log.Error("failed to relay outbox events", sl.Err(err))
	}
	if n > 0 {
		s.log.Info("outbox events published", slog.Int("count", n))
	}
}

// ActivationHandler возвращает обработчик очереди активаций. Событие
// обрабатывается один раз: уже обработанные подтверждаются без действий.
// Ошибка активации записывается в событие; пока попытки не исчерпаны,
// сообщение возвращается в очередь, после этого событие помечается failed
// и сообщение подтверждается.
func (s *OutboxService) ActivationHandler(activator Activator) rabbitmq.Handler {
	return func(ctx context.Context, body []byte) error {
		const op = "services.outbox.HandleActivation"
		log := s.log.With(slog.String("op", op))

		var msg models.OutboxMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			// повтор не поможет
			log.Error("failed to unmarshal message", sl.Err(err))
			return nil
		}
		log = log.With(slog.Int64("event_id", msg.EventID))

		ev, err := s.repo.GetOutboxEvent(ctx, msg.EventID)
		if errors.Is(err, models.ErrNotFound) {
			log.Warn("unknown outbox event")
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if ev.Status == models.OutboxProcessed || ev.Status == models.OutboxFailed {
			metrics.OutboxEvents.WithLabelValues("skipped").Inc()
			return nil
		}

		err = s.activate(ctx, activator, ev)
		if err == nil {
			metrics.OutboxEvents.WithLabelValues("processed").Inc()
			log.Info("outbox event processed")
			return nil
		}

		status, recErr := s.repo.RecordOutboxFailure(ctx, ev.ID, err.Error(), s.maxAttempts)
		if recErr != nil {
			log.Error("failed to record outbox failure", sl.Err(recErr))
			return fmt.Errorf("%s: %w", op, err)
		}
		if status == models.OutboxFailed {
			metrics.OutboxEvents.WithLabelValues("failed").Inc()
			log.Error("outbox event failed permanently", sl.Err(err))
			return nil
		}
		metrics.OutboxEvents.WithLabelValues("retried").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (s *OutboxService) activate(ctx context.Context, activator Activator, ev *models.OutboxEvent) error {
	if ev.EventType != models.EventMembershipActivate {
		return fmt.Errorf("unexpected event type %q", ev.EventType)
	}
	var payload models.MembershipActivatePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return err
	}
	return s.repo.InTx(ctx, func(ctx context.Context) error {
		if _, err := activator.Activate(ctx, payload.UserID, payload.PlanID, activationSource); err != nil {
			return err
		}
		return s.repo.MarkOutboxProcessed(ctx, ev.ID)
	})
}

// List возвращает события с указанным статусом, пустой статус означает все.
func (s *OutboxService) List(ctx context.Context, status models.OutboxStatus) ([]*models.OutboxEvent, error) {
	const op = "services.outbox.List"
	events, err := s.repo.ListOutboxEvents(ctx, status, listLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return events, nil
}

// Retry возвращает событие в pending со сброшенным счётчиком попыток.
func (s *OutboxService) Retry(ctx context.Context, id int64) (*models.OutboxEvent, error) {
	const op = "services.outbox.Retry"
	if err := s.repo.ResetOutboxEvent(ctx, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("outbox event reset", slog.Int64("event_id", id))
	ev, err := s.repo.GetOutboxEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ev, nil
}
