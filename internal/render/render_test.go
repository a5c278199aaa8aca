package render

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TopArtistsTracker/internal/domain"
	"TopArtistsTracker/internal/ranking"
)

func sampleReport(t *testing.T) domain.Report {
	t.Helper()

	today := domain.NewSnapshot(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), []domain.RankedItem{
		{ID: "x", Name: "Artist X", Rank: 1},
		{ID: "y", Name: "Artist Y", Rank: 2},
		{ID: "z", Name: "Artist Z", Rank: 3},
	})
	yesterday := domain.NewSnapshot(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), []domain.RankedItem{
		{ID: "z", Name: "Artist Z", Rank: 1},
		{ID: "y", Name: "Artist Y", Rank: 2},
		{ID: "w", Name: "Artist W", Rank: 3},
	})
	changes, err := ranking.DiffSnapshots(today, yesterday)
	require.NoError(t, err)
	return domain.Report{Today: today, Previous: &yesterday, Changes: changes}
}

func TestChangeText(t *testing.T) {
	t.Parallel()

	require.Equal(t, "new", ChangeText(domain.RankDelta{Kind: domain.New}))
	require.Equal(t, "removed", ChangeText(domain.RankDelta{Kind: domain.Removed}))
	require.Equal(t, "--", ChangeText(domain.RankDelta{Kind: domain.Unchanged}))
	require.Equal(t, "+3", ChangeText(domain.RankDelta{Kind: domain.Moved, Delta: 3}))
	require.Equal(t, "-2", ChangeText(domain.RankDelta{Kind: domain.Moved, Delta: -2}))
}

func TestRowsByRank(t *testing.T) {
	t.Parallel()

	require.Equal(t, []Row{
		{Rank: "1", Name: "Artist X", Change: "new"},
		{Rank: "2", Name: "Artist Y", Change: "--"},
		{Rank: "3", Name: "Artist Z", Change: "-2"},
		{Rank: "", Name: "Artist W", Change: "removed"},
	}, Rows(sampleReport(t), ByRank))
}

func TestRowsByChange(t *testing.T) {
	t.Parallel()

	require.Equal(t, []Row{
		{Rank: "1", Name: "Artist X", Change: "new"},
		{Rank: "2", Name: "Artist Y", Change: "--"},
		{Rank: "3", Name: "Artist Z", Change: "-2"},
		{Rank: "", Name: "Artist W", Change: "removed"},
	}, Rows(sampleReport(t), ByChange))
}

func TestTableRendererWithoutPrevious(t *testing.T) {
	t.Parallel()

	report := sampleReport(t)
	report.Previous = nil
	report.Changes = nil

	var buf bytes.Buffer
	require.NoError(t, NewTableRenderer(&buf, ByRank).Render(context.Background(), report))
	out := buf.String()
	require.Contains(t, out, "Artist Z")
	require.NotContains(t, out, "Change from previous day")
	require.Contains(t, out, "No artists from the previous day to compare with.")
}

func TestTableRenderer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewTableRenderer(&buf, ByRank).Render(context.Background(), sampleReport(t)))
	out := buf.String()
	require.Contains(t, out, "Top artists 2024-03-10")
	require.Contains(t, out, "removed")
	require.Less(t, strings.Index(out, "Artist X"), strings.Index(out, "Artist W"))
}

func TestJSONRenderer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewJSONRenderer(&buf).Render(context.Background(), sampleReport(t)))

	var decoded struct {
		Day         string `json:"day"`
		PreviousDay string `json:"previousDay"`
		Compared    bool   `json:"compared"`
		Items       []ItemView
		Changes     []struct {
			Name    string `json:"name"`
			Kind    string `json:"kind"`
			Delta   int    `json:"delta"`
			Display string `json:"display"`
		} `json:"changes"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "2024-03-10", decoded.Day)
	require.Equal(t, "2024-03-09", decoded.PreviousDay)
	require.True(t, decoded.Compared)
	require.Len(t, decoded.Items, 3)
	require.Len(t, decoded.Changes, 4)
	require.Equal(t, "new", decoded.Changes[0].Kind)
	require.Equal(t, "removed", decoded.Changes[3].Kind)
	require.Equal(t, -2, decoded.Changes[2].Delta)
}

func TestDigest(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Top artists 2024-03-10\n"+
		"1. Artist X (new)\n"+
		"2. Artist Y (--)\n"+
		"3. Artist Z (-2)\n"+
		"   Artist W (removed)\n", Digest(sampleReport(t)))
}
