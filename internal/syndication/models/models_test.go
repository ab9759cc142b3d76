package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShareLevelDerivation(t *testing.T) {
	tests := []struct {
		name    string
		granted bool
		scope   ContentScope
		want    ShareLevel
	}{
		{"full scope", true, ScopeFull, ShareLevelFull},
		{"summary scope", true, ScopeSummary, ShareLevelSummary},
		{"title only scope", true, ScopeTitleOnly, ShareLevelTitleOnly},
		{"not granted always none", false, ScopeFull, ShareLevelNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{Granted: tt.granted, Settings: Settings{Scope: tt.scope}}
			assert.Equal(t, tt.want, r.ShareLevel())
		})
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, Record{Granted: true}.Expired(now), "no deadline")
	assert.False(t, Record{Granted: true, Settings: Settings{ExpiresAt: &future}}.Expired(now))
	assert.True(t, Record{Granted: true, Settings: Settings{ExpiresAt: &past}}.Expired(now))
	assert.False(t, Record{Granted: false, Settings: Settings{ExpiresAt: &past}}.Expired(now),
		"revoked records are not expirable")
}

func TestSnapshotIsDetached(t *testing.T) {
	r := Record{Granted: true, Settings: Settings{Scope: ScopeSummary, Attribution: AttributionNamed}}
	snap := r.Snapshot()

	r.Settings.Scope = ScopeFull

	assert.Equal(t, ScopeSummary, snap.Settings.Scope)
	assert.Equal(t, ShareLevelSummary, snap.ShareLevel)
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, ScopeFull.IsValid())
	assert.True(t, ScopeTitleOnly.IsValid())
	assert.False(t, ContentScope("everything").IsValid())

	assert.True(t, AttributionAnonymous.IsValid())
	assert.False(t, Attribution("").IsValid())
}
