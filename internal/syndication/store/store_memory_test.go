package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taleweave/internal/sentinel"
	"taleweave/internal/syndication/models"
	id "taleweave/pkg/domain"
)

func grantedRecord(storyID id.StoryID, appID id.AppID) *models.Record {
	now := time.Now()
	return &models.Record{
		StoryID:       storyID,
		AppID:         appID,
		StorytellerID: id.StorytellerID(uuid.New()),
		Granted:       true,
		GrantedAt:     &now,
		Settings:      models.Settings{Scope: models.ScopeFull, Attribution: models.AttributionNamed},
		UpdatedAt:     now,
	}
}

func TestUpsertAssignsIDAndKeepsItOnReplace(t *testing.T) {
	ctx := context.Background()
	s := New()
	storyID := id.StoryID(uuid.New())
	appID := id.AppID(uuid.New())

	first := grantedRecord(storyID, appID)
	require.NoError(t, s.Upsert(ctx, first))
	require.False(t, first.ID.IsNil())

	// Re-granting the same pair replaces the settings but keeps identity.
	second := grantedRecord(storyID, appID)
	second.Settings.Scope = models.ScopeSummary
	require.NoError(t, s.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	got, err := s.Get(ctx, storyID, appID)
	require.NoError(t, err)
	assert.Equal(t, models.ScopeSummary, got.Settings.Scope)
}

func TestGetUnknownPair(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), id.StoryID(uuid.New()), id.AppID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestListActiveForStorySkipsRevoked(t *testing.T) {
	ctx := context.Background()
	s := New()
	storyID := id.StoryID(uuid.New())

	active := grantedRecord(storyID, id.AppID(uuid.New()))
	require.NoError(t, s.Upsert(ctx, active))

	revoked := grantedRecord(storyID, id.AppID(uuid.New()))
	revoked.Granted = false
	require.NoError(t, s.Upsert(ctx, revoked))

	otherStory := grantedRecord(id.StoryID(uuid.New()), id.AppID(uuid.New()))
	require.NoError(t, s.Upsert(ctx, otherStory))

	recs, err := s.ListActiveForStory(ctx, storyID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, active.AppID, recs[0].AppID)
}

func TestListActiveForApp(t *testing.T) {
	ctx := context.Background()
	s := New()
	appID := id.AppID(uuid.New())

	require.NoError(t, s.Upsert(ctx, grantedRecord(id.StoryID(uuid.New()), appID)))
	require.NoError(t, s.Upsert(ctx, grantedRecord(id.StoryID(uuid.New()), appID)))
	require.NoError(t, s.Upsert(ctx, grantedRecord(id.StoryID(uuid.New()), id.AppID(uuid.New()))))

	recs, err := s.ListActiveForApp(ctx, appID)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestListExpiredDue(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	due := grantedRecord(id.StoryID(uuid.New()), id.AppID(uuid.New()))
	due.Settings.ExpiresAt = &past
	require.NoError(t, s.Upsert(ctx, due))

	notYet := grantedRecord(id.StoryID(uuid.New()), id.AppID(uuid.New()))
	notYet.Settings.ExpiresAt = &future
	require.NoError(t, s.Upsert(ctx, notYet))

	open := grantedRecord(id.StoryID(uuid.New()), id.AppID(uuid.New()))
	require.NoError(t, s.Upsert(ctx, open))

	recs, err := s.ListExpiredDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, due.StoryID, recs[0].StoryID)
}

func TestChangeLogNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	consentID := id.ConsentID(uuid.New())

	for _, ct := range []models.ChangeType{models.ChangeGranted, models.ChangeUpdated, models.ChangeRevoked} {
		require.NoError(t, s.AppendChange(ctx, &models.ChangeLogEntry{
			ConsentID:  consentID,
			ChangeType: ct,
			CreatedAt:  time.Now(),
		}))
	}

	entries, err := s.ListChanges(ctx, consentID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.ChangeRevoked, entries[0].ChangeType)
	assert.Equal(t, models.ChangeGranted, entries[2].ChangeType)
	assert.NotEqual(t, uuid.Nil, entries[0].ID)
}
