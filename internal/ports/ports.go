package ports

import (
	"context"
	"time"

	"TopArtistsTracker/internal/domain"
)

// ArtistSource captures today's ranked artists from an upstream provider.
type ArtistSource interface {
	FetchRanking(ctx context.Context, day time.Time) ([]domain.RankedItem, error)
}

// SnapshotRepository persists one snapshot per calendar day.
//
// Load returns domain.ErrNoSnapshot when the day was never captured and a
// *domain.LoadError when the stored snapshot cannot be read.
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot domain.Snapshot) error
	Load(ctx context.Context, day time.Time) (domain.Snapshot, error)
	Days(ctx context.Context) ([]time.Time, error)
}

// Renderer presents a run's report (console table, JSON, etc.).
type Renderer interface {
	Render(ctx context.Context, report domain.Report) error
}

// Notifier streams the day's ranking digest to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
