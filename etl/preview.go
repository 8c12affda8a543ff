// Copyright 2026 Debtpipe Authors

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package etl

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
)

// Header of the preview output, in the fixed destination column order.
var previewHeader = []string{"country", "year", "external_debt"}

// csvRow renders a record as an encoding/csv compatible row. A year with no
// reported value renders as an empty cell.
func csvRow(r DebtRecord) []string {
	debt := ""
	if !math.IsNaN(r.ExternalDebt) {
		debt = strconv.FormatFloat(r.ExternalDebt, 'f', -1, 64)
	}
	return []string{r.Country, strconv.Itoa(r.Year), debt}
}

// WriteCSV writes the records to w in CSV format with a header row.
func WriteCSV(w io.Writer, recs []DebtRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(previewHeader); err != nil {
		return errors.Annotate(err, "failed to write header")
	}
	for _, r := range recs {
		if err := cw.Write(csvRow(r)); err != nil {
			return errors.Annotate(err, "failed to write row for year %d", r.Year)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// WriteText writes the records to w as a column-aligned text table for ease
// of reading.
func WriteText(w io.Writer, recs []DebtRecord) error {
	widths := make([]int, len(previewHeader))
	for i, h := range previewHeader {
		widths[i] = len(h)
	}
	rows := make([][]string, len(recs))
	for i, r := range recs {
		rows[i] = csvRow(r)
		for j, cell := range rows[i] {
			if len(cell) > widths[j] {
				widths[j] = len(cell)
			}
		}
	}
	writeRow := func(row []string) error {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
		return err
	}
	if err := writeRow(previewHeader); err != nil {
		return errors.Annotate(err, "failed to write header")
	}
	for i, row := range rows {
		if err := writeRow(row); err != nil {
			return errors.Annotate(err, "failed to write row for year %d", recs[i].Year)
		}
	}
	return nil
}
