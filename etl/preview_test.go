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
	"bytes"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPreview(t *testing.T) {
	t.Parallel()

	recs := []DebtRecord{
		{Country: "Kenya", Year: 2020, ExternalDebt: 12345.6},
		{Country: "Kenya", Year: 2019, ExternalDebt: math.NaN()},
	}

	Convey("WriteCSV", t, func() {
		var buf bytes.Buffer
		So(WriteCSV(&buf, recs), ShouldBeNil)
		So(buf.String(), ShouldEqual, `country,year,external_debt
Kenya,2020,12345.6
Kenya,2019,
`)
	})

	Convey("WriteText", t, func() {
		var buf bytes.Buffer
		So(WriteText(&buf, recs), ShouldBeNil)
		So(buf.String(), ShouldEqual, `country  year  external_debt
Kenya    2020  12345.6
Kenya    2019
`)
	})
}
