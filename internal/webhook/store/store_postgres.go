package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taleweave/internal/sentinel"
	"taleweave/internal/webhook/models"
	id "taleweave/pkg/domain"
)

// PostgresStore persists subscriptions and the delivery log in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed webhook store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const subscriptionColumns = `
	id, app_id, app_name, webhook_url, secret_key, events, is_active,
	consecutive_failures, last_triggered_at, last_success_at, last_failure_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, sub *models.Subscription) error {
	events, err := json.Marshal(sub.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	query := `
		INSERT INTO webhook_subscriptions
			(id, app_id, app_name, webhook_url, secret_key, events, is_active, consecutive_failures, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(sub.ID),
		uuid.UUID(sub.AppID),
		sub.AppName,
		sub.URL,
		sub.SecretKey,
		events,
		sub.Active,
		sub.ConsecutiveFailures,
		sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, subID id.SubscriptionID) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM webhook_subscriptions WHERE id = $1`
	sub, err := scanSubscription(s.db.QueryRowContext(ctx, query, uuid.UUID(subID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM webhook_subscriptions ORDER BY created_at`
	return s.querySubscriptions(ctx, query)
}

func (s *PostgresStore) ListForEvent(ctx context.Context, event models.EventType) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM webhook_subscriptions
		WHERE is_active = TRUE AND events @> $1`
	return s.querySubscriptions(ctx, query, eventFilter(event))
}

func (s *PostgresStore) ListForApp(ctx context.Context, appID id.AppID, event models.EventType) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM webhook_subscriptions
		WHERE app_id = $1 AND is_active = TRUE AND events @> $2`
	return s.querySubscriptions(ctx, query, uuid.UUID(appID), eventFilter(event))
}

// eventFilter builds the jsonb containment argument for a single event type.
func eventFilter(event models.EventType) []byte {
	b, _ := json.Marshal([]models.EventType{event})
	return b
}

func (s *PostgresStore) RecordSuccess(ctx context.Context, subID id.SubscriptionID, at time.Time) error {
	query := `
		UPDATE webhook_subscriptions
		SET consecutive_failures = 0, last_success_at = $2, last_triggered_at = $2
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(subID), at)
	if err != nil {
		return fmt.Errorf("record success: %w", err)
	}
	return requireRow(res)
}

// RecordFailure increments the failure streak atomically in SQL; concurrent
// deliveries to the same subscription never undercount.
func (s *PostgresStore) RecordFailure(ctx context.Context, subID id.SubscriptionID, at time.Time) (int, error) {
	query := `
		UPDATE webhook_subscriptions
		SET consecutive_failures = consecutive_failures + 1, last_failure_at = $2, last_triggered_at = $2
		WHERE id = $1
		RETURNING consecutive_failures
	`
	var count int
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(subID), at).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("record failure: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, subID id.SubscriptionID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE webhook_subscriptions SET is_active = FALSE WHERE id = $1`, uuid.UUID(subID))
	if err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	return requireRow(res)
}

// Append inserts one delivery log row. Rows are never updated afterwards.
func (s *PostgresStore) Append(ctx context.Context, entry *models.DeliveryLogEntry) error {
	entryID := entry.ID
	if entryID == uuid.Nil {
		entryID = uuid.New()
	}
	var nextRetry sql.NullTime
	if entry.NextRetryAt != nil {
		nextRetry = sql.NullTime{Time: *entry.NextRetryAt, Valid: true}
	}
	query := `
		INSERT INTO webhook_delivery_log
			(id, subscription_id, event_type, payload, attempt_number, response_status,
			 response_body, response_time_ms, success, error_message, next_retry_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		entryID,
		uuid.UUID(entry.SubscriptionID),
		string(entry.EventType),
		entry.Payload,
		entry.Attempt,
		entry.ResponseStatus,
		entry.ResponseBody,
		entry.ResponseTime.Milliseconds(),
		entry.Success,
		entry.ErrorMessage,
		nextRetry,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDeliveries(ctx context.Context, subID id.SubscriptionID, limit int) ([]*models.DeliveryLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, subscription_id, event_type, payload, attempt_number, response_status,
		       response_body, response_time_ms, success, error_message, next_retry_at, created_at
		FROM webhook_delivery_log
		WHERE subscription_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(subID), limit)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var out []*models.DeliveryLogEntry
	for rows.Next() {
		var (
			entry      models.DeliveryLogEntry
			subUUID    uuid.UUID
			eventType  string
			responseMs int64
			nextRetry  sql.NullTime
		)
		if err := rows.Scan(
			&entry.ID, &subUUID, &eventType, &entry.Payload, &entry.Attempt,
			&entry.ResponseStatus, &entry.ResponseBody, &responseMs,
			&entry.Success, &entry.ErrorMessage, &nextRetry, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan delivery log: %w", err)
		}
		entry.SubscriptionID = id.SubscriptionID(subUUID)
		entry.EventType = models.EventType(eventType)
		entry.ResponseTime = time.Duration(responseMs) * time.Millisecond
		if nextRetry.Valid {
			t := nextRetry.Time
			entry.NextRetryAt = &t
		}
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery log: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) querySubscriptions(ctx context.Context, query string, args ...any) ([]*models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var out []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		sub       models.Subscription
		subUUID   uuid.UUID
		appUUID   uuid.UUID
		events    []byte
		triggered sql.NullTime
		success   sql.NullTime
		failure   sql.NullTime
	)
	if err := row.Scan(
		&subUUID, &appUUID, &sub.AppName, &sub.URL, &sub.SecretKey, &events, &sub.Active,
		&sub.ConsecutiveFailures, &triggered, &success, &failure, &sub.CreatedAt,
	); err != nil {
		return nil, err
	}
	sub.ID = id.SubscriptionID(subUUID)
	sub.AppID = id.AppID(appUUID)
	if err := json.Unmarshal(events, &sub.Events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	if triggered.Valid {
		t := triggered.Time
		sub.LastTriggeredAt = &t
	}
	if success.Valid {
		t := success.Time
		sub.LastSuccessAt = &t
	}
	if failure.Valid {
		t := failure.Time
		sub.LastFailureAt = &t
	}
	return &sub, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
