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
	"errors"
	"testing"

	"github.com/stockparfait/logging"

	"github.com/debtpipe/debtpipe/wb"

	. "github.com/smartystreets/goconvey/convey"
)

type testSource struct {
	obs []wb.Observation
	err error
}

var _ Source = &testSource{}

func (s *testSource) Fetch(ctx context.Context) ([]wb.Observation, error) {
	return s.obs, s.err
}

// testStore is an in-memory Store keyed by year, mimicking the destination
// table's primary key semantics.
type testStore struct {
	rows        map[int]DebtRecord
	schemaCalls int
	schemaErr   error
	upsertErr   error
}

var _ Store = &testStore{}

func (s *testStore) EnsureSchema(ctx context.Context) error {
	s.schemaCalls++
	return s.schemaErr
}

func (s *testStore) Upsert(ctx context.Context, recs []DebtRecord) (int, error) {
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	if s.rows == nil {
		s.rows = make(map[int]DebtRecord)
	}
	for _, r := range recs {
		s.rows[r.Year] = r
	}
	return len(recs), nil
}

func TestPipeline(t *testing.T) {
	t.Parallel()

	ctx := logging.Use(context.Background(), logging.DefaultGoLogger(logging.Info))

	obs := []wb.Observation{
		{Date: "2020", Value: wb.Number{Float64: 100.5, Valid: true}},
		{Date: "2019", Value: wb.Number{Float64: 90.25, Valid: true}},
	}

	Convey("Pipeline.Run works correctly", t, func() {
		source := &testSource{obs: obs}
		store := &testStore{}
		p := Pipeline{Source: source, Store: store, Country: "Kenya"}

		Convey("a successful run loads one row per year", func() {
			res := p.Run(ctx)
			So(res.Err, ShouldBeNil)
			So(res.Fetched, ShouldEqual, 2)
			So(res.Loaded, ShouldEqual, 2)
			So(store.schemaCalls, ShouldEqual, 1)
			So(store.rows, ShouldResemble, map[int]DebtRecord{
				2020: {Country: "Kenya", Year: 2020, ExternalDebt: 100.5},
				2019: {Country: "Kenya", Year: 2019, ExternalDebt: 90.25},
			})
		})

		Convey("re-ingesting a year overwrites its value", func() {
			So(p.Run(ctx).Err, ShouldBeNil)
			source.obs = []wb.Observation{
				{Date: "2020", Value: wb.Number{Float64: 200.0, Valid: true}},
			}
			res := p.Run(ctx)
			So(res.Err, ShouldBeNil)
			So(len(store.rows), ShouldEqual, 2)
			So(store.rows[2020].ExternalDebt, ShouldEqual, 200.0)
			So(store.rows[2019].ExternalDebt, ShouldEqual, 90.25)
		})

		Convey("fetch failure loads nothing and does not crash", func() {
			source.obs = nil
			source.err = errors.New("connection timed out")
			res := p.Run(ctx)
			var ferr *FetchError
			So(errors.As(res.Err, &ferr), ShouldBeTrue)
			So(res.Fetched, ShouldEqual, 0)
			So(res.Loaded, ShouldEqual, 0)
			So(len(store.rows), ShouldEqual, 0)
		})

		Convey("empty fetch result is a no-op load, not an error", func() {
			source.obs = nil
			res := p.Run(ctx)
			So(res.Err, ShouldBeNil)
			So(res.Loaded, ShouldEqual, 0)
			So(store.schemaCalls, ShouldEqual, 1)
			So(len(store.rows), ShouldEqual, 0)
		})

		Convey("transform failure loads nothing", func() {
			source.obs = []wb.Observation{{Date: "not-a-year"}}
			res := p.Run(ctx)
			var terr *TransformError
			So(errors.As(res.Err, &terr), ShouldBeTrue)
			So(res.Fetched, ShouldEqual, 1)
			So(res.Loaded, ShouldEqual, 0)
			So(len(store.rows), ShouldEqual, 0)
		})

		Convey("schema failure skips the load", func() {
			store.schemaErr = errors.New("permission denied")
			res := p.Run(ctx)
			var lerr *LoadError
			So(errors.As(res.Err, &lerr), ShouldBeTrue)
			So(res.Loaded, ShouldEqual, 0)
			So(len(store.rows), ShouldEqual, 0)
		})

		Convey("upsert failure reports a LoadError", func() {
			store.upsertErr = errors.New("deadlock detected")
			res := p.Run(ctx)
			var lerr *LoadError
			So(errors.As(res.Err, &lerr), ShouldBeTrue)
			So(res.Fetched, ShouldEqual, 2)
			So(res.Loaded, ShouldEqual, 0)
		})

		Convey("years without data load as NaN rows", func() {
			source.obs = []wb.Observation{{Date: "2021", Value: wb.Number{}}}
			res := p.Run(ctx)
			So(res.Err, ShouldBeNil)
			So(res.Loaded, ShouldEqual, 1)
			So(len(store.rows), ShouldEqual, 1)
		})
	})
}
