package domain

import (
	"errors"
	"fmt"
	"time"
)

// DayLayout is the canonical textual form of a snapshot day.
const DayLayout = "2006-01-02"

var (
	// ErrNoSnapshot reports that no snapshot exists for the requested day.
	// It is an expected condition (first run, gap in history), not a failure.
	ErrNoSnapshot = errors.New("no snapshot for day")

	// ErrDuplicateName is returned when a snapshot lists the same artist name twice.
	ErrDuplicateName = errors.New("duplicate artist name")
)

// RankedItem is one artist at a 1-based position of a snapshot.
type RankedItem struct {
	ID   string
	Name string
	Rank int
}

// Snapshot is the complete ranked list of artists captured on one calendar date.
type Snapshot struct {
	Day   time.Time
	Items []RankedItem
}

// NewSnapshot normalizes day to midnight of its calendar date and copies items.
func NewSnapshot(day time.Time, items []RankedItem) Snapshot {
	copied := make([]RankedItem, len(items))
	copy(copied, items)
	return Snapshot{Day: TruncateDay(day), Items: copied}
}

// TruncateDay drops the clock part of t, keeping its location.
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ParseDay parses a YYYY-MM-DD string in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DayLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", value, err)
	}
	return day, nil
}

// LoadError reports a snapshot that exists but cannot be read.
type LoadError struct {
	Day time.Time
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load snapshot %s: %v", e.Day.Format(DayLayout), e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
