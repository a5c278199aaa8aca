package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"TopArtistsTracker/internal/domain"
	"TopArtistsTracker/internal/ports"
	"TopArtistsTracker/internal/ranking"
	"TopArtistsTracker/internal/render"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ArtistSource
	Repository ports.SnapshotRepository
	Renderer   ports.Renderer
	Notifier   ports.Notifier
	Logger     *slog.Logger
}

// Pipeline implements the daily capture-and-compare workflow.
type Pipeline struct {
	source     ports.ArtistSource
	repository ports.SnapshotRepository
	renderer   ports.Renderer
	notifier   ports.Notifier
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		renderer:   deps.Renderer,
		notifier:   deps.Notifier,
		logger:     logger,
	}
}

// ProcessDay captures the ranking for day, stores it and compares it with
// the previous day's snapshot when one exists.
func (p *Pipeline) ProcessDay(ctx context.Context, day time.Time) (domain.Report, error) {
	if p.source == nil || p.repository == nil {
		return domain.Report{}, errors.New("pipeline: source and repository are required")
	}
	day = domain.TruncateDay(day)
	log := p.logger.With("day", day.Format(domain.DayLayout))

	items, err := p.source.FetchRanking(ctx, day)
	if err != nil {
		return domain.Report{}, fmt.Errorf("fetch ranking: %w", err)
	}
	// names must be unique to be diffed
	if _, err := domain.NewNameRankMap(items); err != nil {
		return domain.Report{}, fmt.Errorf("fetch ranking: %w", err)
	}
	today := domain.NewSnapshot(day, items)
	if err := p.repository.Save(ctx, today); err != nil {
		return domain.Report{}, fmt.Errorf("save snapshot: %w", err)
	}
	log.Info("snapshot saved", "artists", len(today.Items))

	report, err := p.withPrevious(ctx, today)
	if err != nil {
		return domain.Report{}, err
	}
	if !report.Compared() {
		log.Info("no snapshot from the previous day to compare with")
	}

	if p.renderer != nil {
		if err := p.renderer.Render(ctx, report); err != nil {
			return report, fmt.Errorf("render report: %w", err)
		}
	}

	if p.notifier != nil {
		if err := p.notifier.PublishDigest(ctx, render.Digest(report)); err != nil {
			log.Warn("publish digest failed", "error", err)
		}
	}
	return report, nil
}

// Report loads the stored snapshot of day and compares it with the day
// before when that one exists.
func (p *Pipeline) Report(ctx context.Context, day time.Time) (domain.Report, error) {
	today, err := p.repository.Load(ctx, day)
	if err != nil {
		return domain.Report{}, fmt.Errorf("load %s: %w", day.Format(domain.DayLayout), err)
	}
	return p.withPrevious(ctx, today)
}

// Compare diffs two stored snapshots. Both must exist.
func (p *Pipeline) Compare(ctx context.Context, day, against time.Time) (domain.Report, error) {
	today, err := p.repository.Load(ctx, day)
	if err != nil {
		return domain.Report{}, fmt.Errorf("load %s: %w", day.Format(domain.DayLayout), err)
	}
	previous, err := p.repository.Load(ctx, against)
	if err != nil {
		return domain.Report{}, fmt.Errorf("load %s: %w", against.Format(domain.DayLayout), err)
	}
	return compare(today, previous)
}

// Days lists the captured days.
func (p *Pipeline) Days(ctx context.Context) ([]time.Time, error) {
	return p.repository.Days(ctx)
}

func (p *Pipeline) withPrevious(ctx context.Context, today domain.Snapshot) (domain.Report, error) {
	prevDay := today.Day.AddDate(0, 0, -1)
	previous, err := p.repository.Load(ctx, prevDay)
	if errors.Is(err, domain.ErrNoSnapshot) {
		return domain.Report{Today: today}, nil
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("load previous day: %w", err)
	}
	return compare(today, previous)
}

func compare(today, previous domain.Snapshot) (domain.Report, error) {
	changes, err := ranking.DiffSnapshots(today, previous)
	if err != nil {
		return domain.Report{}, fmt.Errorf("diff %s against %s: %w",
			today.Day.Format(domain.DayLayout), previous.Day.Format(domain.DayLayout), err)
	}
	return domain.Report{Today: today, Previous: &previous, Changes: changes}, nil
}

// Snapshot loads the stored snapshot of day.
func (p *Pipeline) Snapshot(ctx context.Context, day time.Time) (domain.Snapshot, error) {
	return p.repository.Load(ctx, day)
}
