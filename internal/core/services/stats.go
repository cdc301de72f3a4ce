package services

import (
	"sort"

	"github.com/openballot/api/internal/core/domain"
)

// computeStats derives the public statistics from cache entries. Pure:
// the same entries always yield the same stats, and only public fields
// are consumed.
func computeStats(entries []domain.PublicVote) domain.Stats {
	stats := domain.Stats{
		Total:     len(entries),
		Countries: []domain.CountryCount{},
	}

	perCountry := make(map[string]int)
	for _, e := range entries {
		perCountry[e.CountryCode]++
		if stats.LastConfirmedAt == nil || e.ConfirmedAt.After(*stats.LastConfirmedAt) {
			t := e.ConfirmedAt
			stats.LastConfirmedAt = &t
		}
	}

	for code, count := range perCountry {
		stats.Countries = append(stats.Countries, domain.CountryCount{
			CountryCode: code,
			Count:       count,
		})
	}
	// Count descending, country code as tie-breaker, so output is
	// deterministic regardless of map iteration order.
	sort.Slice(stats.Countries, func(i, j int) bool {
		if stats.Countries[i].Count != stats.Countries[j].Count {
			return stats.Countries[i].Count > stats.Countries[j].Count
		}
		return stats.Countries[i].CountryCode < stats.Countries[j].CountryCode
	})

	return stats
}
