// Package story is the minimal story directory the syndication core needs:
// who told a story and which organization and tenant it belongs to. Full
// story content lives elsewhere; consent records only denormalize ownership.
package story

import (
	"context"
	"sync"

	"taleweave/internal/sentinel"
	id "taleweave/pkg/domain"
)

// Story is the directory entry for one story.
type Story struct {
	ID             id.StoryID
	Title          string
	StorytellerID  id.StorytellerID
	OrganizationID id.OrganizationID
	TenantID       id.TenantID
}

// InMemoryDirectory backs tests and single-node deployments.
type InMemoryDirectory struct {
	mu      sync.RWMutex
	stories map[id.StoryID]Story
}

// NewMemory constructs an empty in-memory directory.
func NewMemory() *InMemoryDirectory {
	return &InMemoryDirectory{stories: make(map[id.StoryID]Story)}
}

// Put registers or replaces a directory entry.
func (d *InMemoryDirectory) Put(story Story) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stories[story.ID] = story
}

func (d *InMemoryDirectory) Lookup(_ context.Context, storyID id.StoryID) (*Story, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	story, ok := d.stories[storyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &story, nil
}
