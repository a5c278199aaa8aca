package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TopArtistsTracker/internal/config"
	"TopArtistsTracker/internal/domain"
)

const chartPage = `<html><body><ol class="chart">
<li data-id="a1"><span class="name">Artist One</span></li>
<li data-id="a2"><span class="name">Artist Two</span></li>
</ol></body></html>`

func loadConfig(t *testing.T, driver, chartURL string) config.Config {
	t.Helper()

	dir := t.TempDir()
	body := fmt.Sprintf(`
source:
  kind: html
  html:
    url: %q
storage:
  driver: %s
  dir: %q
  dsn: %q
render:
  format: json
`, chartURL, driver, filepath.Join(dir, "history"), filepath.Join(dir, "top.db"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestRunCapturesAndShows(t *testing.T) {
	t.Parallel()

	chart := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartPage))
	}))
	t.Cleanup(chart.Close)

	for _, driver := range []string{config.StorageCSV, config.StorageSQLite} {
		t.Run(driver, func(t *testing.T) {
			var out bytes.Buffer
			ctx := context.Background()
			a, err := New(ctx, loadConfig(t, driver, chart.URL), slog.New(slog.NewTextHandler(io.Discard, nil)), &out)
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Close() })

			report, err := a.Run(ctx)
			require.NoError(t, err)
			require.False(t, report.Compared())
			require.Equal(t, []domain.RankedItem{
				{ID: "a1", Name: "Artist One", Rank: 1},
				{ID: "a2", Name: "Artist Two", Rank: 2},
			}, report.Today.Items)

			var printed struct {
				Compared bool `json:"compared"`
				Items    []struct {
					Name string `json:"name"`
				} `json:"items"`
			}
			require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
			require.False(t, printed.Compared)
			require.Len(t, printed.Items, 2)

			days, err := a.Days(ctx)
			require.NoError(t, err)
			require.Len(t, days, 1)

			out.Reset()
			require.NoError(t, a.Diff(ctx, days[0], days[0]))
			require.Contains(t, out.String(), `"unchanged"`)

			_, err = a.Run(ctx)
			require.NoError(t, err, "a second run on the same day replaces the snapshot")
		})
	}
}

func TestShowMissingDay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a, err := New(ctx, loadConfig(t, config.StorageCSV, "http://127.0.0.1:1/chart"), slog.New(slog.NewTextHandler(io.Discard, nil)), io.Discard)
	require.NoError(t, err)

	err = a.Show(ctx, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, domain.ErrNoSnapshot)
}

func TestLoginRequiresCredentials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := loadConfig(t, config.StorageCSV, "http://127.0.0.1:1/chart")
	cfg.Source.Spotify.ClientID = ""
	a, err := New(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), io.Discard)
	require.NoError(t, err)

	_, err = a.Login(ctx, func(string) {})
	require.Error(t, err)
}
