package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"TopArtistsTracker/internal/domain"
	"TopArtistsTracker/internal/ports"
	"TopArtistsTracker/internal/ranking"
)

const (
	noChangeText = "--"
	newText      = "new"
	removedText  = "removed"
)

// Order selects how rows are listed.
type Order string

const (
	// ByRank lists today's artists by rank, then the removed ones.
	ByRank Order = "rank"
	// ByChange lists rows in diff order, biggest climbers first.
	ByChange Order = "change"
)

// ChangeText formats a delta for display: "new", "removed", "--", "+3" or "-2".
func ChangeText(d domain.RankDelta) string {
	switch d.Kind {
	case domain.New:
		return newText
	case domain.Removed:
		return removedText
	case domain.Unchanged:
		return noChangeText
	}
	if d.Delta > 0 {
		return "+" + strconv.Itoa(d.Delta)
	}
	return strconv.Itoa(d.Delta)
}

// Row is one display line.
type Row struct {
	Rank   string
	Name   string
	Change string
}

// Rows lays a report out in the requested order. Without a previous
// snapshot every row carries an empty change.
func Rows(report domain.Report, order Order) []Row {
	if !report.Compared() {
		rows := make([]Row, 0, len(report.Today.Items))
		for _, item := range report.Today.Items {
			rows = append(rows, Row{Rank: strconv.Itoa(item.Rank), Name: item.Name})
		}
		return rows
	}

	if order == ByChange {
		rows := make([]Row, 0, len(report.Changes))
		for _, d := range report.Changes {
			rows = append(rows, deltaRow(d))
		}
		return rows
	}

	byName := ranking.ChangesByName(report.Changes)
	rows := make([]Row, 0, len(report.Changes))
	for _, item := range report.Today.Items {
		d, ok := byName[item.Name]
		if !ok {
			d = domain.RankDelta{Name: item.Name, Kind: domain.New, Rank: item.Rank}
		}
		row := deltaRow(d)
		row.Rank = strconv.Itoa(item.Rank)
		rows = append(rows, row)
	}
	for _, d := range report.Changes {
		if d.Kind == domain.Removed {
			rows = append(rows, deltaRow(d))
		}
	}
	return rows
}

func deltaRow(d domain.RankDelta) Row {
	row := Row{Name: d.Name, Change: ChangeText(d)}
	if d.Kind != domain.Removed {
		row.Rank = strconv.Itoa(d.Rank)
	}
	return row
}

// TableRenderer prints reports as a console table.
type TableRenderer struct {
	out   io.Writer
	order Order
}

var _ ports.Renderer = (*TableRenderer)(nil)

// NewTableRenderer writes to out in the given order.
func NewTableRenderer(out io.Writer, order Order) *TableRenderer {
	return &TableRenderer{out: out, order: order}
}

// Render writes the report table.
func (r *TableRenderer) Render(_ context.Context, report domain.Report) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Top artists " + report.Today.Day.Format(domain.DayLayout))

	compared := report.Compared()
	if compared {
		tw.AppendHeader(table.Row{"Rank", "Artist", "Change from previous day"})
	} else {
		tw.AppendHeader(table.Row{"Rank", "Artist"})
	}

	for _, row := range Rows(report, r.order) {
		if compared {
			tw.AppendRow(table.Row{row.Rank, row.Name, row.Change})
		} else {
			tw.AppendRow(table.Row{row.Rank, row.Name})
		}
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	if _, err := fmt.Fprintln(r.out, tw.Render()); err != nil {
		return err
	}
	if !compared {
		_, err := fmt.Fprintln(r.out, "No artists from the previous day to compare with.")
		return err
	}
	return nil
}

// JSONRenderer prints reports as one JSON document.
type JSONRenderer struct {
	out io.Writer
}

var _ ports.Renderer = (*JSONRenderer)(nil)

// NewJSONRenderer writes to out.
func NewJSONRenderer(out io.Writer) *JSONRenderer {
	return &JSONRenderer{out: out}
}

// Render encodes the report.
func (r *JSONRenderer) Render(_ context.Context, report domain.Report) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(NewReportView(report))
}

// ItemView is the JSON form of a ranked item.
type ItemView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// ChangeView is the JSON form of a rank delta.
type ChangeView struct {
	Name         string            `json:"name"`
	Kind         domain.ChangeKind `json:"kind"`
	Delta        int               `json:"delta"`
	Rank         int               `json:"rank,omitempty"`
	PreviousRank int               `json:"previousRank,omitempty"`
	Display      string            `json:"display"`
}

// ReportView is the JSON form of a report, shared with the HTTP API.
type ReportView struct {
	Day         string       `json:"day"`
	PreviousDay string       `json:"previousDay,omitempty"`
	Compared    bool         `json:"compared"`
	Items       []ItemView   `json:"items"`
	Changes     []ChangeView `json:"changes,omitempty"`
}

// NewReportView converts a report for encoding.
func NewReportView(report domain.Report) ReportView {
	view := ReportView{
		Day:      report.Today.Day.Format(domain.DayLayout),
		Compared: report.Compared(),
		Items:    make([]ItemView, 0, len(report.Today.Items)),
	}
	if report.Previous != nil {
		view.PreviousDay = report.Previous.Day.Format(domain.DayLayout)
	}
	for _, item := range report.Today.Items {
		view.Items = append(view.Items, ItemView{ID: item.ID, Name: item.Name, Rank: item.Rank})
	}
	for _, d := range report.Changes {
		view.Changes = append(view.Changes, ChangeView{
			Name:         d.Name,
			Kind:         d.Kind,
			Delta:        d.Delta,
			Rank:         d.Rank,
			PreviousRank: d.PreviousRank,
			Display:      ChangeText(d),
		})
	}
	return view
}

// Digest renders a short plain-text summary for chat notifications.
func Digest(report domain.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Top artists %s\n", report.Today.Day.Format(domain.DayLayout))
	for _, row := range Rows(report, ByRank) {
		if row.Rank == "" {
			fmt.Fprintf(&b, "   %s (%s)\n", row.Name, row.Change)
			continue
		}
		if row.Change == "" {
			fmt.Fprintf(&b, "%s. %s\n", row.Rank, row.Name)
			continue
		}
		fmt.Fprintf(&b, "%s. %s (%s)\n", row.Rank, row.Name, row.Change)
	}
	return b.String()
}
