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
	"math"
	"strconv"

	"github.com/stockparfait/errors"

	"github.com/debtpipe/debtpipe/wb"
)

// DebtRecord is one normalized row of the destination table. Column order
// is fixed: country, year, external_debt.
type DebtRecord struct {
	Country      string
	Year         int
	ExternalDebt float64 // current US dollars; NaN when the year has no data
}

// Transform converts raw API observations into DebtRecords: the year is
// cast to int, the value to float64, and each row is stamped with the given
// country label. Rows keep their API response order; no filtering,
// deduplication or sorting is performed. A year with no reported value
// becomes NaN. An empty or absent input yields an empty result and no
// error.
func Transform(obs []wb.Observation, country string) ([]DebtRecord, error) {
	if len(obs) == 0 {
		return nil, nil
	}
	recs := make([]DebtRecord, len(obs))
	for i, o := range obs {
		year, err := strconv.Atoi(o.Date)
		if err != nil {
			return nil, &TransformError{Err: errors.Reason(
				"row %d: year '%s' is not an integer", i, o.Date)}
		}
		value := math.NaN()
		if o.Value.Valid {
			value = o.Value.Float64
		}
		recs[i] = DebtRecord{Country: country, Year: year, ExternalDebt: value}
	}
	return recs, nil
}
