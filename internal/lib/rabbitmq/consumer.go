package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
)

// requeueDelay пауза перед возвратом сообщения в очередь после ошибки обработчика.
// Без неё недоступная база превращает nack в непрерывный цикл повторных доставок.
const requeueDelay = time.Second

// Handler обрабатывает тело сообщения. Ошибка возвращает сообщение в очередь.
type Handler func(ctx context.Context, body []byte) error

// ConsumerMessage запускает потребителя очереди queueName. Одновременно
// обрабатывается не больше prefetch сообщений. Потребитель останавливается
// при отмене ctx или закрытии канала. Возвращённая wait блокируется, пока
// не завершатся все начатые обработчики; канал и хранилища закрывают после неё.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, log *slog.Logger, handler Handler) (wait func(), err error) {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	wg := serve(ctx, delivery, log, handler, requeueDelay)
	return wg.Wait, nil
}

func serve(ctx context.Context, delivery <-chan amqp.Delivery, log *slog.Logger, handler Handler, retryDelay time.Duration) *sync.WaitGroup {
	var wg sync.WaitGroup
	sem := make(chan struct{}, prefetch)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					log.Info("delivery channel closed")
					return
				}
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					requeue(d, log)
					return
				}
				wg.Add(1)
				go func(d amqp.Delivery) {
					defer wg.Done()
					defer func() { <-sem }()
					handle(ctx, d, log, handler, retryDelay)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return &wg
}

func handle(ctx context.Context, d amqp.Delivery, log *slog.Logger, handler Handler, retryDelay time.Duration) {
	if err := handler(ctx, d.Body); err != nil {
		log.Warn("handler failed, message requeued", sl.Err(err), slog.Duration("delay", retryDelay))
		timer := time.NewTimer(retryDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
		requeue(d, log)
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}

func requeue(d amqp.Delivery, log *slog.Logger) {
	if nackErr := d.Nack(false, true); nackErr != nil {
		log.Error("failed to nack message", sl.Err(nackErr))
	}
}
