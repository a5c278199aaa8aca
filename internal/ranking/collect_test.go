package ranking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"TopArtistsTracker/internal/domain"
)

type fakeArtist struct {
	id   string
	name string
}

// fakePage serves pages from a fixed list; nil items mark an absent list.
type fakePage struct {
	pages   [][]fakeArtist
	index   int
	fetches *int
	failAt  int
}

func newFakeSource(pages ...[]fakeArtist) (*fakePage, *int) {
	fetches := 0
	return &fakePage{pages: pages, fetches: &fetches, failAt: -1}, &fetches
}

func (p *fakePage) Items() ([]fakeArtist, bool) {
	items := p.pages[p.index]
	return items, items != nil
}

func (p *fakePage) HasNext() bool {
	return p.index+1 < len(p.pages)
}

func (p *fakePage) Next(ctx context.Context) (Page[fakeArtist], error) {
	*p.fetches++
	if p.index+1 == p.failAt {
		return nil, errors.New("connection reset")
	}
	return &fakePage{pages: p.pages, index: p.index + 1, fetches: p.fetches, failAt: p.failAt}, nil
}

func toRanked(a fakeArtist, rank int) domain.RankedItem {
	return domain.RankedItem{ID: a.id, Name: a.name, Rank: rank}
}

func TestCollectFollowsPagesInOrder(t *testing.T) {
	t.Parallel()

	source, fetches := newFakeSource(
		[]fakeArtist{{"1", "p1a"}, {"2", "p1b"}},
		[]fakeArtist{{"3", "p2a"}, {"4", "p2b"}},
		[]fakeArtist{{"5", "p3a"}},
	)

	got, err := Collect[fakeArtist](context.Background(), source, toRanked)
	require.NoError(t, err)
	require.Equal(t, 2, *fetches)
	require.Equal(t, []domain.RankedItem{
		{ID: "1", Name: "p1a", Rank: 1},
		{ID: "2", Name: "p1b", Rank: 2},
		{ID: "3", Name: "p2a", Rank: 3},
		{ID: "4", Name: "p2b", Rank: 4},
		{ID: "5", Name: "p3a", Rank: 5},
	}, got)
}

func TestCollectRanksAreContiguous(t *testing.T) {
	t.Parallel()

	var pages [][]fakeArtist
	total := 0
	for size := 0; size < 7; size++ {
		page := make([]fakeArtist, size)
		for i := range page {
			total++
			page[i] = fakeArtist{name: string(rune('a' + total))}
		}
		pages = append(pages, page)
	}
	source, _ := newFakeSource(pages...)

	got, err := Collect[fakeArtist](context.Background(), source, toRanked)
	require.NoError(t, err)
	require.Len(t, got, total)
	for i, item := range got {
		require.Equal(t, i+1, item.Rank)
	}
}

func TestCollectAbsentFirstPage(t *testing.T) {
	t.Parallel()

	source, fetches := newFakeSource(nil, []fakeArtist{{"1", "never"}})

	got, err := Collect[fakeArtist](context.Background(), source, toRanked)
	require.NoError(t, err)
	require.Empty(t, got)
	require.NotNil(t, got)
	require.Zero(t, *fetches)
}

func TestCollectStopsAtAbsentPage(t *testing.T) {
	t.Parallel()

	source, fetches := newFakeSource(
		[]fakeArtist{{"1", "a"}},
		nil,
		[]fakeArtist{{"2", "unreached"}},
	)

	got, err := Collect[fakeArtist](context.Background(), source, toRanked)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 1, *fetches)
}

func TestCollectEmptyPageStillFollowsNext(t *testing.T) {
	t.Parallel()

	source, _ := newFakeSource([]fakeArtist{}, []fakeArtist{{"1", "a"}})

	got, err := Collect[fakeArtist](context.Background(), source, toRanked)
	require.NoError(t, err)
	require.Equal(t, []domain.RankedItem{{ID: "1", Name: "a", Rank: 1}}, got)
}

func TestCollectFetchFailureReturnsNoPartialResult(t *testing.T) {
	t.Parallel()

	source, _ := newFakeSource(
		[]fakeArtist{{"1", "a"}},
		[]fakeArtist{{"2", "b"}},
		[]fakeArtist{{"3", "c"}},
	)
	source.failAt = 2

	got, err := Collect[fakeArtist](context.Background(), source, toRanked)
	require.Error(t, err)
	require.Nil(t, got)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, 2, fetchErr.Page)
	require.EqualError(t, err, "fetch page 3: connection reset")
}

func TestCollectHonoursCancellation(t *testing.T) {
	t.Parallel()

	source, fetches := newFakeSource([]fakeArtist{{"1", "a"}}, []fakeArtist{{"2", "b"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect[fakeArtist](ctx, source, toRanked)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, *fetches)
}
