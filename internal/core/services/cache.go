package services

import (
	"sort"
	"sync"

	"github.com/openballot/api/internal/core/domain"
)

// snapshot is an immutable view of the confirmed votes plus the stats
// derived from them. Readers hold a snapshot pointer; writers build a new
// snapshot off to the side and publish it in one swap, so a reader never
// observes a partially built cache.
type snapshot struct {
	entries []domain.PublicVote
	stats   domain.Stats
}

// Cache holds the in-memory projection of confirmed, enabled votes,
// ordered by confirmation time descending. All mutations go through a
// single mutex; a rebuild racing an insert can therefore not drop either
// update.
type Cache struct {
	mu   sync.RWMutex
	snap *snapshot
}

func NewCache() *Cache {
	return &Cache{snap: &snapshot{stats: computeStats(nil)}}
}

// Rebuild replaces the cache contents with the filtered, projected,
// sorted view of the given records.
func (c *Cache) Rebuild(votes []*domain.Vote) {
	entries := make([]domain.PublicVote, 0, len(votes))
	for _, v := range votes {
		if !v.Confirmed() || v.Disabled {
			continue
		}
		entries = append(entries, v.PublicPart())
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ConfirmedAt.After(entries[j].ConfirmedAt)
	})

	c.mu.Lock()
	c.snap = &snapshot{entries: entries, stats: computeStats(entries)}
	c.mu.Unlock()
}

// Insert adds one vote, keeping the descending-by-confirmation order.
// Unconfirmed or disabled votes are ignored so the cache invariant holds
// on every path.
func (c *Cache) Insert(vote *domain.Vote) {
	if !vote.Confirmed() || vote.Disabled {
		return
	}
	entry := vote.PublicPart()

	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.snap.entries
	i := sort.Search(len(old), func(i int) bool {
		return !old[i].ConfirmedAt.After(entry.ConfirmedAt)
	})

	entries := make([]domain.PublicVote, 0, len(old)+1)
	entries = append(entries, old[:i]...)
	entries = append(entries, entry)
	entries = append(entries, old[i:]...)

	c.snap = &snapshot{entries: entries, stats: computeStats(entries)}
}

// ByCountry returns the cached entries for a country, cache order
// preserved.
func (c *Cache) ByCountry(countryCode string) []domain.PublicVote {
	snap := c.current()
	matches := []domain.PublicVote{}
	for _, e := range snap.entries {
		if e.CountryCode == countryCode {
			matches = append(matches, e)
		}
	}
	return matches
}

// Entries returns the current snapshot's entries. Callers must not
// mutate the returned slice.
func (c *Cache) Entries() []domain.PublicVote {
	return c.current().entries
}

func (c *Cache) Stats() domain.Stats {
	return c.current().stats
}

func (c *Cache) current() *snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}
