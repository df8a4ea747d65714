package ranking

import (
	"sync"

	"trade_arena/internal/domain"
)

// Cache holds the (current, previous) snapshot pair per competition.
// It is an explicitly owned service passed by handle, created at
// startup and cleared per competition when one ends; never an ambient
// singleton. Entries are lazily created and replaced whole, last writer
// wins; readers may see a snapshot at most one rebuild stale.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*pair
	builder *Builder
}

type pair struct {
	current  *domain.RankingSnapshot
	previous *domain.RankingSnapshot
}

// NewCache creates an empty cache backed by the given builder.
func NewCache(builder *Builder) *Cache {
	return &Cache{
		entries: make(map[string]*pair),
		builder: builder,
	}
}

// Current returns the cached current snapshot, if any.
func (c *Cache) Current(competitionID string) (*domain.RankingSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.entries[competitionID]
	if !ok || p.current == nil {
		return nil, false
	}
	return p.current, true
}

// GetOrBuild returns the cached current snapshot, building and caching
// one on a cold start.
func (c *Cache) GetOrBuild(competitionID string) (*domain.RankingSnapshot, error) {
	if snap, ok := c.Current(competitionID); ok {
		return snap, nil
	}

	snap, err := c.builder.Build(competitionID)
	if err != nil {
		return nil, err
	}
	c.Replace(competitionID, snap)
	return snap, nil
}

// Rebuild builds a fresh snapshot, installs it and returns it together
// with the diff against the snapshot it displaced. On build failure the
// cached pair stays untouched; a partial snapshot is never published.
func (c *Cache) Rebuild(competitionID string) (*domain.RankingSnapshot, *domain.ChangeSet, error) {
	snap, err := c.builder.Build(competitionID)
	if err != nil {
		return nil, nil, err
	}
	previous := c.Replace(competitionID, snap)
	return snap, Diff(previous, snap), nil
}

// Replace installs snap as current, demotes the old current to
// previous, and returns the displaced current.
func (c *Cache) Replace(competitionID string, snap *domain.RankingSnapshot) *domain.RankingSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.entries[competitionID]
	if !ok {
		p = &pair{}
		c.entries[competitionID] = p
	}
	displaced := p.current
	p.previous = displaced
	p.current = snap
	return displaced
}

// Invalidate drops the cached pair for a competition. Called on
// participant departure and competition end; the next read rebuilds.
func (c *Cache) Invalidate(competitionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, competitionID)
}
