// Package report renders resolved articles for terminal output.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/couchcryptid/ice-news-geomap/internal/domain"
)

// MaxTitleWidth is the display width titles are truncated to.
const MaxTitleWidth = 60

var header = []string{"ID", "Date", "Location", "Strategy", "Status", "Lat", "Lon", "Title"}

// WriteTable writes one row per article as a pipe table aligned by display
// width, so wide runes in titles keep the columns straight.
func WriteTable(w io.Writer, articles []domain.ResolvedArticle) error {
	rows := make([][]string, 0, len(articles)+1)
	rows = append(rows, header)
	for _, a := range articles {
		rows = append(rows, []string{
			a.DisplayID,
			a.Date,
			a.Location,
			string(a.MatchStrategy),
			string(a.GeocodeStatus),
			fmt.Sprintf("%.6f", a.Coordinate.Lat),
			fmt.Sprintf("%.6f", a.Coordinate.Lon),
			runewidth.Truncate(a.Title, MaxTitleWidth, "..."),
		})
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	for i, row := range rows {
		if _, err := io.WriteString(w, formatRow(row, widths)); err != nil {
			return err
		}
		if i == 0 {
			sep := make([]string, len(widths))
			for j, cw := range widths {
				sep[j] = strings.Repeat("-", cw)
			}
			if _, err := io.WriteString(w, formatRow(sep, widths)); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatRow(row []string, widths []int) string {
	var sb strings.Builder
	sb.WriteString("|")
	for i, cell := range row {
		sb.WriteString(" ")
		sb.WriteString(runewidth.FillRight(cell, widths[i]))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
	return sb.String()
}

// WriteJSON writes the timeline as indented JSON.
func WriteJSON(w io.Writer, tl domain.Timeline) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tl)
}
