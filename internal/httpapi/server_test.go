package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TopArtistsTracker/internal/domain"
	"TopArtistsTracker/internal/ranking"
)

type stubHistory struct {
	snapshots map[string]domain.Snapshot
	err       error
}

func (h *stubHistory) Days(context.Context) ([]time.Time, error) {
	if h.err != nil {
		return nil, h.err
	}
	return []time.Time{
		time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (h *stubHistory) Snapshot(_ context.Context, day time.Time) (domain.Snapshot, error) {
	s, ok := h.snapshots[day.Format(domain.DayLayout)]
	if !ok {
		return domain.Snapshot{}, domain.ErrNoSnapshot
	}
	return s, nil
}

func (h *stubHistory) Report(ctx context.Context, day time.Time) (domain.Report, error) {
	today, err := h.Snapshot(ctx, day)
	if err != nil {
		return domain.Report{}, err
	}
	previous, err := h.Snapshot(ctx, day.AddDate(0, 0, -1))
	if errors.Is(err, domain.ErrNoSnapshot) {
		return domain.Report{Today: today}, nil
	}
	changes, err := ranking.DiffSnapshots(today, previous)
	if err != nil {
		return domain.Report{}, err
	}
	return domain.Report{Today: today, Previous: &previous, Changes: changes}, nil
}

func newTestServer(t *testing.T, history History) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(history, time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil))).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func sampleHistory() *stubHistory {
	return &stubHistory{snapshots: map[string]domain.Snapshot{
		"2024-03-09": domain.NewSnapshot(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), []domain.RankedItem{
			{ID: "a", Name: "A", Rank: 1},
			{ID: "b", Name: "B", Rank: 2},
		}),
		"2024-03-10": domain.NewSnapshot(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), []domain.RankedItem{
			{ID: "b", Name: "B", Rank: 1},
			{ID: "a", Name: "A", Rank: 2},
		}),
	}}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestListDays(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, sampleHistory())

	var body struct {
		Days []string `json:"days"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/snapshots", &body))
	require.Equal(t, []string{"2024-03-09", "2024-03-10"}, body.Days)
}

func TestGetSnapshot(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, sampleHistory())

	var body struct {
		Day   string `json:"day"`
		Items []struct {
			Name string `json:"name"`
			Rank int    `json:"rank"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/snapshots/2024-03-10", &body))
	require.Equal(t, "2024-03-10", body.Day)
	require.Len(t, body.Items, 2)
	require.Equal(t, "B", body.Items[0].Name)

	var errBody map[string]string
	require.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/snapshots/2024-03-11", &errBody))
	require.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/snapshots/yesterday", &errBody))
}

func TestGetChanges(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, sampleHistory())

	var body struct {
		Compared bool `json:"compared"`
		Changes  []struct {
			Name  string `json:"name"`
			Kind  string `json:"kind"`
			Delta int    `json:"delta"`
		} `json:"changes"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/snapshots/2024-03-10/changes", &body))
	require.True(t, body.Compared)
	require.Len(t, body.Changes, 2)
	require.Equal(t, "B", body.Changes[0].Name)
	require.Equal(t, 1, body.Changes[0].Delta)
	require.Equal(t, "moved", body.Changes[1].Kind)

	var first struct {
		Compared bool `json:"compared"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/snapshots/2024-03-09/changes", &first))
	require.False(t, first.Compared)
}

func TestStoreFailureIsInternalError(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubHistory{err: errors.New("disk on fire")})

	var body map[string]string
	require.Equal(t, http.StatusInternalServerError, getJSON(t, srv.URL+"/snapshots", &body))
	require.Equal(t, "internal error", body["error"])
}
