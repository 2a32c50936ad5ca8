// Package pipeline holds the pure data-shaping steps applied to IOC records:
// deduplication on ingestion, filtering and sorting on read, and the daily
// aggregation consumed by charts. Nothing here touches shared state.
package pipeline

import "github.com/bcnelson/ioc-dashboard/internal/domain"

// Dedupe removes records sharing the same value, type and source.
// First-writer wins: the earliest record in input order is kept (including
// its timestamp) and the output preserves the order of first occurrence.
// Keys are compared byte for byte; values are not normalized.
func Dedupe(records []domain.IOC) []domain.IOC {
	out := make([]domain.IOC, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		key := r.Key()
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
