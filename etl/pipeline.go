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
	"context"
	"math"

	"github.com/stockparfait/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/debtpipe/debtpipe/wb"
)

// Source fetches the raw observation series.
type Source interface {
	Fetch(ctx context.Context) ([]wb.Observation, error)
}

// Store persists transformed records.
type Store interface {
	// EnsureSchema idempotently creates the destination table and index.
	EnsureSchema(ctx context.Context) error
	// Upsert writes all records in a single atomic batch, keyed by year,
	// and returns the number of records written.
	Upsert(ctx context.Context, recs []DebtRecord) (int, error)
}

// QuerySource adapts a wb.IndicatorQuery to the Source interface.
type QuerySource struct {
	Query *wb.IndicatorQuery
}

var _ Source = QuerySource{}

func (s QuerySource) Fetch(ctx context.Context) ([]wb.Observation, error) {
	return wb.FetchIndicator(ctx, s.Query)
}

// Result reports what a single run did. Err carries the first stage
// failure, if any, as one of FetchError, TransformError or LoadError.
type Result struct {
	Fetched int // observations received from the API
	Loaded  int // records written to the store
	Err     error
}

// Pipeline runs fetch -> transform -> load once, strictly sequentially.
// Each invocation is a full, independent execution; no state is retained
// between runs.
type Pipeline struct {
	Source  Source
	Store   Store
	Country string // label stamped on every record
}

// Run executes the pipeline to completion. A stage failure is logged and
// recorded in the Result, and the remaining stages degrade to no-ops
// instead of crashing the run: a failed fetch or transform leaves nothing
// to load, and a failed load rolls back the entire batch.
func (p *Pipeline) Run(ctx context.Context) Result {
	var res Result

	logging.Infof(ctx, "fetching %s series...", p.Country)
	obs, err := p.Source.Fetch(ctx)
	if err != nil {
		res.Err = &FetchError{Err: err}
		logging.Errorf(ctx, "failed to fetch the series: %s", err.Error())
	}
	res.Fetched = len(obs)

	recs, err := Transform(obs, p.Country)
	if err != nil && res.Err == nil {
		res.Err = err
		logging.Errorf(ctx, "failed to transform the series: %s", err.Error())
	}

	if err := p.Store.EnsureSchema(ctx); err != nil {
		res.Err = &LoadError{Err: err}
		logging.Errorf(ctx, "failed to set up the schema: %s", err.Error())
		return res
	}

	if len(recs) == 0 {
		logging.Infof(ctx, "no data to load")
		return res
	}
	logSummary(ctx, recs)

	n, err := p.Store.Upsert(ctx, recs)
	if err != nil {
		res.Err = &LoadError{Err: err}
		logging.Errorf(ctx, "failed to load records: %s", err.Error())
		return res
	}
	res.Loaded = n
	logging.Infof(ctx, "loaded %d records", n)
	return res
}

// logSummary logs the span and spread of the series about to be loaded,
// skipping years with no reported value.
func logSummary(ctx context.Context, recs []DebtRecord) {
	minYear, maxYear := recs[0].Year, recs[0].Year
	values := make([]float64, 0, len(recs))
	for _, r := range recs {
		if r.Year < minYear {
			minYear = r.Year
		}
		if r.Year > maxYear {
			maxYear = r.Year
		}
		if !math.IsNaN(r.ExternalDebt) {
			values = append(values, r.ExternalDebt)
		}
	}
	if len(values) == 0 {
		logging.Warningf(ctx, "%d records for %d..%d, all without values",
			len(recs), minYear, maxYear)
		return
	}
	logging.Infof(ctx,
		"%d records for %d..%d, debt min=%.4g mean=%.4g max=%.4g US$",
		len(recs), minYear, maxYear,
		floats.Min(values), stat.Mean(values, nil), floats.Max(values))
}
