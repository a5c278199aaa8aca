package domain

import (
	"fmt"
	"strconv"
)

// NameRankMap maps artist name to rank. Iteration order is ascending rank.
type NameRankMap struct {
	names []string
	ranks map[string]int
}

// NewNameRankMap indexes a snapshot's items by name. Items are expected in
// rank order; a repeated name yields ErrDuplicateName.
func NewNameRankMap(items []RankedItem) (NameRankMap, error) {
	m := NameRankMap{
		names: make([]string, 0, len(items)),
		ranks: make(map[string]int, len(items)),
	}
	for _, item := range items {
		if _, exists := m.ranks[item.Name]; exists {
			return NameRankMap{}, fmt.Errorf("%w: %q", ErrDuplicateName, item.Name)
		}
		m.ranks[item.Name] = item.Rank
		m.names = append(m.names, item.Name)
	}
	return m, nil
}

// Len returns the number of names.
func (m NameRankMap) Len() int {
	return len(m.names)
}

// Rank looks up the rank of name.
func (m NameRankMap) Rank(name string) (int, bool) {
	rank, ok := m.ranks[name]
	return rank, ok
}

// Names returns the names in rank order.
func (m NameRankMap) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// ChangeKind classifies how an artist's rank changed between two snapshots.
type ChangeKind int

const (
	Unchanged ChangeKind = iota
	Moved
	New
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Moved:
		return "moved"
	case New:
		return "new"
	case Removed:
		return "removed"
	default:
		return "ChangeKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// MarshalText encodes the kind by name.
func (k ChangeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// RankDelta is the change of one artist between the previous and the current
// snapshot. Delta is PreviousRank - Rank, so a positive value means the
// artist moved toward rank 1; it is only meaningful for Moved. Rank is zero
// for Removed entries and PreviousRank is zero for New entries.
type RankDelta struct {
	Name         string
	Kind         ChangeKind
	Delta        int
	Rank         int
	PreviousRank int
}

// Report is the outcome of one capture run.
type Report struct {
	Today    Snapshot
	Previous *Snapshot
	Changes  []RankDelta
}

// Compared tells whether a previous snapshot was available.
func (r Report) Compared() bool {
	return r.Previous != nil
}
