package ranking

import (
	"math"
	"slices"

	"TopArtistsTracker/internal/domain"
)

// Diff compares today's ranking with yesterday's.
//
// Every name of today yields one entry (New when yesterday lacks it), every
// name only yesterday had yields one Removed entry. Entries are ordered by
// descending change with New first and Removed last; equal changes keep
// today's rank order followed by yesterday's leftovers.
func Diff(today, yesterday domain.NameRankMap) []domain.RankDelta {
	todayNames := today.Names()
	yesterdayNames := yesterday.Names()
	out := make([]domain.RankDelta, 0, len(todayNames)+len(yesterdayNames))

	for _, name := range todayNames {
		rank, _ := today.Rank(name)
		prev, found := yesterday.Rank(name)
		switch {
		case !found:
			out = append(out, domain.RankDelta{Name: name, Kind: domain.New, Rank: rank})
		case prev == rank:
			out = append(out, domain.RankDelta{Name: name, Kind: domain.Unchanged, Rank: rank, PreviousRank: prev})
		default:
			out = append(out, domain.RankDelta{
				Name:         name,
				Kind:         domain.Moved,
				Delta:        prev - rank,
				Rank:         rank,
				PreviousRank: prev,
			})
		}
	}

	for _, name := range yesterdayNames {
		if _, found := today.Rank(name); found {
			continue
		}
		prev, _ := yesterday.Rank(name)
		out = append(out, domain.RankDelta{Name: name, Kind: domain.Removed, PreviousRank: prev})
	}

	slices.SortStableFunc(out, func(a, b domain.RankDelta) int {
		ka, kb := sortKey(a), sortKey(b)
		switch {
		case ka > kb:
			return -1
		case ka < kb:
			return 1
		default:
			return 0
		}
	})
	return out
}

// sortKey places New above and Removed below any reachable rank change.
// Ranks are at least 1, so real changes stay within (MinInt, MaxInt).
func sortKey(d domain.RankDelta) int {
	switch d.Kind {
	case domain.New:
		return math.MaxInt
	case domain.Removed:
		return math.MinInt
	default:
		return d.Delta
	}
}

// DiffSnapshots indexes both snapshots and diffs them.
func DiffSnapshots(today, yesterday domain.Snapshot) ([]domain.RankDelta, error) {
	todayMap, err := domain.NewNameRankMap(today.Items)
	if err != nil {
		return nil, err
	}
	yesterdayMap, err := domain.NewNameRankMap(yesterday.Items)
	if err != nil {
		return nil, err
	}
	return Diff(todayMap, yesterdayMap), nil
}

// ChangesByName indexes deltas for lookup by artist name.
func ChangesByName(deltas []domain.RankDelta) map[string]domain.RankDelta {
	out := make(map[string]domain.RankDelta, len(deltas))
	for _, d := range deltas {
		out[d.Name] = d
	}
	return out
}
