package spotify

import (
	"context"
	"fmt"

	"TopArtistsTracker/internal/domain"
	"TopArtistsTracker/internal/ranking"
	"TopArtistsTracker/internal/scanner"
)

// Scanner ranks the user's top artists as returned by the Web API.
type Scanner struct {
	client    *Client
	timeRange string
	pageSize  int
}

var _ scanner.Scanner = (*Scanner)(nil)

// NewScanner uses timeRange (short_term, medium_term, long_term) and pageSize
// unless a request overrides them through its options.
func NewScanner(client *Client, timeRange string, pageSize int) *Scanner {
	return &Scanner{client: client, timeRange: timeRange, pageSize: pageSize}
}

// Name identifies the strategy inside the registry.
func (s *Scanner) Name() string {
	return "spotify"
}

// Scan walks every page of the top-artists listing.
func (s *Scanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RankedItem, error) {
	timeRange := s.timeRange
	if v := req.Options["time_range"]; v != "" {
		timeRange = v
	}

	first, err := s.client.TopArtists(ctx, timeRange, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("top artists: %w", err)
	}
	return ranking.Collect(ctx, first, toRankedItem)
}

func toRankedItem(a Artist, rank int) domain.RankedItem {
	return domain.RankedItem{ID: a.ID, Name: a.Name, Rank: rank}
}
