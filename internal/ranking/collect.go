package ranking

import (
	"context"
	"fmt"

	"TopArtistsTracker/internal/domain"
)

// Page is one page of a paginated source delivering items of type T.
type Page[T any] interface {
	// Items returns the page's items in delivery order. ok is false when the
	// page carries no item list at all.
	Items() (items []T, ok bool)
	HasNext() bool
	Next(ctx context.Context) (Page[T], error)
}

// MapFunc converts a source item into a RankedItem holding the assigned rank.
type MapFunc[T any] func(item T, rank int) domain.RankedItem

// FetchError wraps a failure to retrieve the page following page number Page.
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.Page+1, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Collect drains the source starting at first, ranking items 1..N by arrival
// order. Traversal stops at the first page without an item list. It returns
// either every item or an error, never a truncated list.
func Collect[T any](ctx context.Context, first Page[T], mapFn MapFunc[T]) ([]domain.RankedItem, error) {
	var (
		ranked []domain.RankedItem
		rank   int
	)

	page := first
	for pageNo := 1; page != nil; pageNo++ {
		items, ok := page.Items()
		if !ok {
			break
		}
		for _, item := range items {
			rank++
			ranked = append(ranked, mapFn(item, rank))
		}

		if !page.HasNext() {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{Page: pageNo, Err: err}
		}

		next, err := page.Next(ctx)
		if err != nil {
			return nil, &FetchError{Page: pageNo, Err: err}
		}
		page = next
	}

	if ranked == nil {
		ranked = []domain.RankedItem{}
	}
	return ranked, nil
}
