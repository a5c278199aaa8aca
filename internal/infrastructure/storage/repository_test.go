package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TopArtistsTracker/internal/domain"
	"TopArtistsTracker/internal/ports"
)

func repositories(t *testing.T) map[string]ports.SnapshotRepository {
	t.Helper()

	db, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return map[string]ports.SnapshotRepository{
		"csv":    NewCSVRepository(filepath.Join(t.TempDir(), "history"), time.UTC),
		"sqlite": NewSQLiteRepository(db, time.UTC),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRepositoryRoundTrip(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Load(ctx, day(2024, 3, 9))
			require.ErrorIs(t, err, domain.ErrNoSnapshot)

			items := []domain.RankedItem{
				{ID: "4Z8W4fKeB5YxbusRsdQVPb", Name: "Radiohead", Rank: 1},
				{ID: "0oSGxfWSnnOXhD2fKuz2Gy", Name: "David Bowie, \"Ziggy\"", Rank: 2},
			}
			require.NoError(t, repo.Save(ctx, domain.NewSnapshot(day(2024, 3, 9).Add(15*time.Hour), items)))

			got, err := repo.Load(ctx, day(2024, 3, 9))
			require.NoError(t, err)
			require.Equal(t, items, got.Items)
			require.True(t, got.Day.Equal(day(2024, 3, 9)))

			// a second capture of the same day replaces the first
			require.NoError(t, repo.Save(ctx, domain.NewSnapshot(day(2024, 3, 9), items[:1])))
			got, err = repo.Load(ctx, day(2024, 3, 9))
			require.NoError(t, err)
			require.Len(t, got.Items, 1)

			require.NoError(t, repo.Save(ctx, domain.NewSnapshot(day(2024, 3, 8), nil)))
			empty, err := repo.Load(ctx, day(2024, 3, 8))
			require.NoError(t, err)
			require.Empty(t, empty.Items)

			days, err := repo.Days(ctx)
			require.NoError(t, err)
			require.Len(t, days, 2)
			require.True(t, days[0].Equal(day(2024, 3, 8)))
			require.True(t, days[1].Equal(day(2024, 3, 9)))
		})
	}
}

func TestCSVFileNameMatchesHistoryLayout(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2024-3-9-TOP-SPOTIFY-ARTISTS.csv", FileName(day(2024, 3, 9)))
	require.Equal(t, "2023-12-25-TOP-SPOTIFY-ARTISTS.csv", FileName(day(2023, 12, 25)))
}

func TestCSVLoadReadsExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	body := "Id,Name,Rank\nid1,Artist A,1\nid2,\"Artist, B\",2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-1-2-TOP-SPOTIFY-ARTISTS.csv"), []byte(body), 0o644))

	got, err := NewCSVRepository(dir, time.UTC).Load(context.Background(), day(2024, 1, 2))
	require.NoError(t, err)
	require.Equal(t, []domain.RankedItem{
		{ID: "id1", Name: "Artist A", Rank: 1},
		{ID: "id2", Name: "Artist, B", Rank: 2},
	}, got.Items)
}

func TestCSVLoadFailureIsDistinctFromAbsent(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":      "",
		"bad header": "Name,Id,Rank\n",
		"bad rank":   "Id,Name,Rank\nid1,A,first\n",
		"zero rank":  "Id,Name,Rank\nid1,A,0\n",
		"short row":  "Id,Name,Rank\nid1,A\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, FileName(day(2024, 1, 2))), []byte(body), 0o644))

			_, err := NewCSVRepository(dir, time.UTC).Load(context.Background(), day(2024, 1, 2))
			require.Error(t, err)
			require.NotErrorIs(t, err, domain.ErrNoSnapshot)

			var loadErr *domain.LoadError
			require.ErrorAs(t, err, &loadErr)
		})
	}
}

func TestCSVDaysIgnoresForeignFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"notes.txt", "2024-1-2-TOP-SPOTIFY-ARTISTS.csv", "2024-1-2-other.csv", "2024-2-31-TOP-SPOTIFY-ARTISTS.csv", "2024-13-1-TOP-SPOTIFY-ARTISTS.csv", lockFileName} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("Id,Name,Rank\n"), 0o644))
	}

	days, err := NewCSVRepository(dir, time.UTC).Days(context.Background())
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.True(t, days[0].Equal(day(2024, 1, 2)))

	missing, err := NewCSVRepository(filepath.Join(dir, "missing"), time.UTC).Days(context.Background())
	require.NoError(t, err)
	require.Empty(t, missing)
}
