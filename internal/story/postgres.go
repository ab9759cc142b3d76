package story

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"taleweave/internal/sentinel"
	id "taleweave/pkg/domain"
)

// PostgresDirectory reads story ownership from the stories table.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed directory.
func NewPostgres(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Lookup(ctx context.Context, storyID id.StoryID) (*Story, error) {
	query := `
		SELECT id, title, storyteller_id, organization_id, tenant_id
		FROM stories
		WHERE id = $1
	`
	var (
		story      Story
		storyUUID  uuid.UUID
		tellerUUID uuid.UUID
		orgUUID    uuid.UUID
		tenantUUID uuid.UUID
	)
	err := d.db.QueryRowContext(ctx, query, uuid.UUID(storyID)).Scan(
		&storyUUID, &story.Title, &tellerUUID, &orgUUID, &tenantUUID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lookup story: %w", err)
	}
	story.ID = id.StoryID(storyUUID)
	story.StorytellerID = id.StorytellerID(tellerUUID)
	story.OrganizationID = id.OrganizationID(orgUUID)
	story.TenantID = id.TenantID(tenantUUID)
	return &story, nil
}
