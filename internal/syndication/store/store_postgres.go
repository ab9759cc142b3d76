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
	"taleweave/internal/syndication/models"
	id "taleweave/pkg/domain"
)

// PostgresStore persists consent records and the change log in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed consent store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `
	id, story_id, app_id, storyteller_id, organization_id, tenant_id,
	granted, granted_at, revoked_at, settings, created_at, updated_at`

// Upsert inserts or replaces the record for its (story, app) pair. The unique
// key on (story_id, app_id) makes re-grants idempotent at the database level.
func (s *PostgresStore) Upsert(ctx context.Context, rec *models.Record) error {
	settings, err := json.Marshal(rec.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if rec.ID.IsNil() {
		rec.ID = id.ConsentID(uuid.New())
	}
	query := `
		INSERT INTO syndication_consents
			(id, story_id, app_id, storyteller_id, organization_id, tenant_id,
			 granted, granted_at, revoked_at, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (story_id, app_id) DO UPDATE SET
			storyteller_id = EXCLUDED.storyteller_id,
			organization_id = EXCLUDED.organization_id,
			tenant_id = EXCLUDED.tenant_id,
			granted = EXCLUDED.granted,
			granted_at = EXCLUDED.granted_at,
			revoked_at = EXCLUDED.revoked_at,
			settings = EXCLUDED.settings,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	var (
		recUUID   uuid.UUID
		createdAt time.Time
	)
	err = s.db.QueryRowContext(ctx, query,
		uuid.UUID(rec.ID),
		uuid.UUID(rec.StoryID),
		uuid.UUID(rec.AppID),
		uuid.UUID(rec.StorytellerID),
		uuid.UUID(rec.OrganizationID),
		uuid.UUID(rec.TenantID),
		rec.Granted,
		nullTime(rec.GrantedAt),
		nullTime(rec.RevokedAt),
		settings,
		rec.UpdatedAt,
	).Scan(&recUUID, &createdAt)
	if err != nil {
		return fmt.Errorf("upsert consent: %w", err)
	}
	rec.ID = id.ConsentID(recUUID)
	rec.CreatedAt = createdAt
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, storyID id.StoryID, appID id.AppID) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM syndication_consents WHERE story_id = $1 AND app_id = $2`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, uuid.UUID(storyID), uuid.UUID(appID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get consent: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListActiveForStory(ctx context.Context, storyID id.StoryID) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM syndication_consents
		WHERE story_id = $1 AND granted = TRUE
		ORDER BY created_at`
	return s.queryRecords(ctx, query, uuid.UUID(storyID))
}

func (s *PostgresStore) ListActiveForApp(ctx context.Context, appID id.AppID) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM syndication_consents
		WHERE app_id = $1 AND granted = TRUE
		ORDER BY created_at`
	return s.queryRecords(ctx, query, uuid.UUID(appID))
}

func (s *PostgresStore) ListExpiredDue(ctx context.Context, now time.Time) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM syndication_consents
		WHERE granted = TRUE
		  AND settings ->> 'expires_at' IS NOT NULL
		  AND (settings ->> 'expires_at')::timestamptz < $1
		ORDER BY created_at`
	return s.queryRecords(ctx, query, now)
}

// AppendChange inserts one audit row. Rows are never updated afterwards.
func (s *PostgresStore) AppendChange(ctx context.Context, entry *models.ChangeLogEntry) error {
	entryID := entry.ID
	if entryID == uuid.Nil {
		entryID = uuid.New()
	}
	previous, err := marshalSnapshot(entry.PreviousState)
	if err != nil {
		return fmt.Errorf("marshal previous state: %w", err)
	}
	next, err := marshalSnapshot(entry.NewState)
	if err != nil {
		return fmt.Errorf("marshal new state: %w", err)
	}
	query := `
		INSERT INTO syndication_consent_changes
			(id, consent_id, story_id, app_id, change_type, changed_by,
			 previous_state, new_state, reason, webhooks_triggered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		entryID,
		uuid.UUID(entry.ConsentID),
		uuid.UUID(entry.StoryID),
		uuid.UUID(entry.AppID),
		string(entry.ChangeType),
		uuid.UUID(entry.ChangedBy),
		previous,
		next,
		entry.Reason,
		entry.WebhooksTriggered,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consent change: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListChanges(ctx context.Context, consentID id.ConsentID, limit int) ([]*models.ChangeLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, consent_id, story_id, app_id, change_type, changed_by,
		       previous_state, new_state, reason, webhooks_triggered, created_at
		FROM syndication_consent_changes
		WHERE consent_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(consentID), limit)
	if err != nil {
		return nil, fmt.Errorf("list consent changes: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var out []*models.ChangeLogEntry
	for rows.Next() {
		var (
			entry       models.ChangeLogEntry
			consentUUID uuid.UUID
			storyUUID   uuid.UUID
			appUUID     uuid.UUID
			byUUID      uuid.UUID
			changeType  string
			previous    []byte
			next        []byte
		)
		if err := rows.Scan(
			&entry.ID, &consentUUID, &storyUUID, &appUUID, &changeType, &byUUID,
			&previous, &next, &entry.Reason, &entry.WebhooksTriggered, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan consent change: %w", err)
		}
		entry.ConsentID = id.ConsentID(consentUUID)
		entry.StoryID = id.StoryID(storyUUID)
		entry.AppID = id.AppID(appUUID)
		entry.ChangeType = models.ChangeType(changeType)
		entry.ChangedBy = id.StorytellerID(byUUID)
		if entry.PreviousState, err = unmarshalSnapshot(previous); err != nil {
			return nil, fmt.Errorf("unmarshal previous state: %w", err)
		}
		if entry.NewState, err = unmarshalSnapshot(next); err != nil {
			return nil, fmt.Errorf("unmarshal new state: %w", err)
		}
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent changes: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) queryRecords(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query consents: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var out []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		rec         models.Record
		recUUID     uuid.UUID
		storyUUID   uuid.UUID
		appUUID     uuid.UUID
		tellerUUID  uuid.UUID
		orgUUID     uuid.UUID
		tenantUUID  uuid.UUID
		grantedAt   sql.NullTime
		revokedAt   sql.NullTime
		settingsRaw []byte
	)
	if err := row.Scan(
		&recUUID, &storyUUID, &appUUID, &tellerUUID, &orgUUID, &tenantUUID,
		&rec.Granted, &grantedAt, &revokedAt, &settingsRaw, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.ID = id.ConsentID(recUUID)
	rec.StoryID = id.StoryID(storyUUID)
	rec.AppID = id.AppID(appUUID)
	rec.StorytellerID = id.StorytellerID(tellerUUID)
	rec.OrganizationID = id.OrganizationID(orgUUID)
	rec.TenantID = id.TenantID(tenantUUID)
	if err := json.Unmarshal(settingsRaw, &rec.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if grantedAt.Valid {
		t := grantedAt.Time
		rec.GrantedAt = &t
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		rec.RevokedAt = &t
	}
	return &rec, nil
}

func marshalSnapshot(s *models.StateSnapshot) (any, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func unmarshalSnapshot(raw []byte) (*models.StateSnapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var snap models.StateSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
