package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// WriteTable renders rows as an aligned text leaderboard.
func WriteTable(w io.Writer, rows []Row) error {
	columns := ParamColumns(rows)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "rank\tscore\tconfiguration")
	for _, name := range columns {
		fmt.Fprintf(tw, "\t%s", name)
	}
	fmt.Fprintln(tw)

	for i, row := range rows {
		fmt.Fprintf(tw, "%d\t%.6f\t%s", i+1, row.Score, row.ConfigurationID)
		for _, name := range columns {
			value := ""
			if v, ok := row.Params[name]; ok {
				value = v.String()
			}
			fmt.Fprintf(tw, "\t%s", value)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// WriteCSV renders rows as CSV with one column per parameter.
func WriteCSV(w io.Writer, rows []Row) error {
	columns := ParamColumns(rows)

	cw := csv.NewWriter(w)
	header := append([]string{"rank", "score", "configuration_id"}, columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, row := range rows {
		record := []string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(row.Score, 'g', -1, 64),
			row.ConfigurationID,
		}
		for _, name := range columns {
			value := ""
			if v, ok := row.Params[name]; ok {
				value = v.String()
			}
			record = append(record, value)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
