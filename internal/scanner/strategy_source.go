package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"TopArtistsTracker/internal/domain"
	"TopArtistsTracker/internal/ports"
)

// StrategySource implements ports.ArtistSource via the scanner selected in config.
type StrategySource struct {
	registry *Registry
	kind     string
	options  map[string]string
	logger   *slog.Logger
}

var _ ports.ArtistSource = (*StrategySource)(nil)

// NewStrategySource wires the registry with the configured source kind.
func NewStrategySource(reg *Registry, kind string, options map[string]string, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		kind:     kind,
		options:  options,
		logger:   log,
	}
}

// FetchRanking resolves the configured scanner and runs it for day.
func (s *StrategySource) FetchRanking(ctx context.Context, day time.Time) ([]domain.RankedItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	strategy, err := s.registry.Resolve(s.kind)
	if err != nil {
		return nil, err
	}

	s.debug("fetch ranking", "scanner", s.kind, "day", day.Format(domain.DayLayout))
	items, err := strategy.Scan(ctx, Request{Day: day, Options: s.options})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.kind, err)
	}
	s.debug("scanner produced artists", "scanner", s.kind, "count", len(items))
	return items, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
