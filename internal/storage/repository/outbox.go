package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/gym-management/internal/models"
)

const outboxColumns = `id, event_type, payload, status, attempts, last_error, created_at, updated_at, processed_at`

func scanOutboxEvent(row rowScanner) (*models.OutboxEvent, error) {
	var (
		e           models.OutboxEvent
		payload     []byte
		processedAt sql.NullTime
	)
	err := row.Scan(&e.ID, &e.EventType, &payload, &e.Status, &e.Attempts, &e.LastError,
		&e.CreatedAt, &e.UpdatedAt, &processedAt)
	if err != nil {
		return nil, err
	}
	e.Payload = json.RawMessage(payload)
	e.ProcessedAt = timePtr(processedAt)
	return &e, nil
}

func (s *Storage) queryOutbox(ctx context.Context, query string, args ...any) ([]*models.OutboxEvent, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.OutboxEvent
	for rows.Next() {
		e, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// InsertOutboxEvent записывает событие в статусе pending. Вызывается в
// транзакции изменения, которое порождает событие.
func (s *Storage) InsertOutboxEvent(ctx context.Context, eventType string, payload any) (int64, error) {
	const op = "storage.InsertOutboxEvent"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	var id int64
	err = s.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO outbox_events (event_type, payload) VALUES ($1, $2::jsonb) RETURNING id`,
		eventType, string(body),
	).Scan(&id)
	if err != nil {
		return 0, wrap(op, err)
	}
	return id, nil
}

// ClaimPendingEvents выбирает до limit событий pending и блокирует их.
// Строки, уже заблокированные другим экземпляром relay, пропускаются.
// Должен вызываться внутри InTx.
func (s *Storage) ClaimPendingEvents(ctx context.Context, limit int) ([]*models.OutboxEvent, error) {
	const op = "storage.ClaimPendingEvents"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	events, err := s.queryOutbox(ctx, `SELECT `+outboxColumns+` FROM outbox_events
		WHERE status = 'pending'
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, wrap(op, err)
	}
	return events, nil
}

// MarkOutboxPublished переводит событие в published после отправки в брокер.
func (s *Storage) MarkOutboxPublished(ctx context.Context, id int64) error {
	const op = "storage.MarkOutboxPublished"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE outbox_events SET status = 'published', updated_at = NOW() WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// GetOutboxEvent возвращает событие по идентификатору.
func (s *Storage) GetOutboxEvent(ctx context.Context, id int64) (*models.OutboxEvent, error) {
	const op = "storage.GetOutboxEvent"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	e, err := scanOutboxEvent(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+outboxColumns+` FROM outbox_events WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return e, nil
}

// MarkOutboxProcessed отмечает событие обработанным.
func (s *Storage) MarkOutboxProcessed(ctx context.Context, id int64) error {
	const op = "storage.MarkOutboxProcessed"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE outbox_events SET status = 'processed', last_error = '', processed_at = NOW(), updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// RecordOutboxFailure увеличивает число попыток и сохраняет ошибку. Когда
// попыток становится maxAttempts, событие переводится в failed.
// Возвращает новый статус события.
func (s *Storage) RecordOutboxFailure(ctx context.Context, id int64, errMsg string, maxAttempts int) (models.OutboxStatus, error) {
	const op = "storage.RecordOutboxFailure"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var status models.OutboxStatus
	err := s.conn(ctx).QueryRowContext(ctx, `
		UPDATE outbox_events SET
			attempts = attempts + 1,
			last_error = $2,
			status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE status END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING status`,
		id, errMsg, maxAttempts,
	).Scan(&status)
	if err != nil {
		return "", wrap(op, err)
	}
	return status, nil
}

// ListOutboxEvents возвращает последние события, при непустом status только с этим статусом.
func (s *Storage) ListOutboxEvents(ctx context.Context, status models.OutboxStatus, limit int) ([]*models.OutboxEvent, error) {
	const op = "storage.ListOutboxEvents"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	events, err := s.queryOutbox(ctx, `SELECT `+outboxColumns+` FROM outbox_events
		WHERE $1 = '' OR status = $1
		ORDER BY id DESC
		LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, wrap(op, err)
	}
	return events, nil
}

// ResetOutboxEvent возвращает событие в pending со сброшенным счётчиком попыток.
// Обработанные события не сбрасываются.
func (s *Storage) ResetOutboxEvent(ctx context.Context, id int64) error {
	const op = "storage.ResetOutboxEvent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE outbox_events SET status = 'pending', attempts = 0, last_error = '', updated_at = NOW()
		WHERE id = $1 AND status IN ('failed', 'published')`, id)
	if err != nil {
		return wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		if _, err := s.GetOutboxEvent(ctx, id); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s: %w", op, models.ErrInvalidTransition)
	}
	return nil
}
