package executor

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

// WriteJSON writes the result as an array of column-keyed objects.
func WriteJSON(w io.Writer, rs *models.ResultSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rs.Records())
}

// WriteTable writes the result as an aligned text table.
func WriteTable(w io.Writer, rs *models.ResultSet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rs.Columns, "\t"))

	seps := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		seps[i] = strings.Repeat("-", len(c))
	}
	fmt.Fprintln(tw, strings.Join(seps, "\t"))

	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	suffix := ""
	if rs.Truncated {
		suffix = " (truncated)"
	}
	_, err := fmt.Fprintf(w, "\n%d rows%s\n", len(rs.Rows), suffix)
	return err
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
