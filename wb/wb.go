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

package wb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// URL is the default base URL of the World Bank API. It may be overwritten
// in tests before creating a new client.
var URL = "https://api.worldbank.org/v2"

// ExternalDebtStocks is the indicator ID for total external debt stocks in
// current US dollars.
const ExternalDebtStocks = "DT.DOD.DECT.CD"

// Client for querying World Bank indicator series. The API is public and
// requires no key.
type Client struct {
	baseURL string // the base URL of the server
}

// newClient creates a new client.
func newClient(baseURL string) *Client {
	return &Client{baseURL: baseURL}
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// UseClient creates a new client and injects it into the context.
func UseClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, clientContextKey, newClient(URL))
}

// Number is a float64 which unmarshals from a JSON number, a quoted numeric
// string, or null. The API reports years with no data as null values.
type Number struct {
	Float64 float64
	Valid   bool // false when the JSON value was null
}

var _ json.Unmarshaler = &Number{}
var _ json.Marshaler = Number{}

func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = Number{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Annotate(err, "value is not a valid JSON string")
		}
	}
	if s == "" {
		*n = Number{}
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Annotate(err, "value '%s' is not numeric", s)
	}
	*n = Number{Float64: f, Valid: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Float64, 'f', -1, 64)), nil
}

// Ref identifies an indicator or a country by its ID and display name.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"value"`
}

// Observation is a single (country, indicator, year) data point.
type Observation struct {
	Indicator   Ref    `json:"indicator"`
	Country     Ref    `json:"country"`
	CountryISO3 string `json:"countryiso3code"`
	Date        string `json:"date"`
	Value       Number `json:"value"`
	Unit        string `json:"unit"`
	ObsStatus   string `json:"obs_status"`
	Decimal     int    `json:"decimal"`
}

// PageMeta is the first element of the response envelope.
type PageMeta struct {
	Page        int    `json:"page"`
	Pages       int    `json:"pages"`
	PerPage     int    `json:"per_page"`
	Total       int    `json:"total"`
	LastUpdated string `json:"lastupdated,omitempty"`
}

// indicatorPage is the format of a single page of series data: a two-element
// JSON array of [metadata, observations]. The second element may be null
// when the query matches nothing.
type indicatorPage struct {
	Meta         PageMeta
	Observations []Observation
}

var _ json.Unmarshaler = &indicatorPage{}
var _ json.Marshaler = &indicatorPage{}

func (p *indicatorPage) UnmarshalJSON(data []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return errors.Annotate(err, "response is not a JSON array")
	}
	if len(elems) < 2 {
		// API errors arrive as a single-element array with a message object.
		return errors.Reason(
			"expected a [metadata, data] pair, received %d elements: %s",
			len(elems), string(data))
	}
	if err := json.Unmarshal(elems[0], &p.Meta); err != nil {
		return errors.Annotate(err, "failed to parse page metadata")
	}
	if err := json.Unmarshal(elems[1], &p.Observations); err != nil {
		return errors.Annotate(err, "failed to parse observations")
	}
	return nil
}

func (p *indicatorPage) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.Meta, p.Observations})
}

// TestIndicatorPage generates the JSON string in the envelope format
// returned by the World Bank API. For use in tests.
func TestIndicatorPage(meta PageMeta, obs []Observation) (string, error) {
	bytes, err := json.Marshal(&indicatorPage{Meta: meta, Observations: obs})
	return string(bytes), err
}

// IndicatorQuery is a builder for a single-indicator series query.
type IndicatorQuery struct {
	country   string // ISO2 or ISO3 country code, e.g. KE
	indicator string // indicator ID, e.g. DT.DOD.DECT.CD
	start     int    // first year of the range; 0 = no range filter
	end       int    // last year of the range
	perPage   int    // results per page; 0 = server default
	page      int    // page number; 0 = first page
}

// NewIndicatorQuery creates a new query for the given country and indicator.
func NewIndicatorQuery(country, indicator string) *IndicatorQuery {
	return &IndicatorQuery{country: country, indicator: indicator}
}

// Copy creates a deep copy of the query. It is primarily used in its builder
// methods.
func (q *IndicatorQuery) Copy() *IndicatorQuery {
	q2 := *q
	return &q2
}

// DateRange restricts the series to the years [start, end]. This and other
// builder methods always create a copy, leaving the original intact.
func (q *IndicatorQuery) DateRange(start, end int) *IndicatorQuery {
	q2 := q.Copy()
	q2.start = start
	q2.end = end
	return q2
}

// PerPage sets the maximum number of results in a single response.
func (q *IndicatorQuery) PerPage(size int) *IndicatorQuery {
	if size < 0 {
		size = 0
	}
	q2 := q.Copy()
	q2.perPage = size
	return q2
}

// Page sets the page number for a paging query.
func (q *IndicatorQuery) Page(page int) *IndicatorQuery {
	q2 := q.Copy()
	q2.page = page
	return q2
}

// Path returns the URL path to add to the base URL.
func (q *IndicatorQuery) Path() string {
	return "/country/" + q.country + "/indicator/" + q.indicator
}

// Values returns the query values for the query. Each call creates a new
// object, so the caller is free to modify it without affecting the query.
func (q *IndicatorQuery) Values() url.Values {
	v := make(url.Values)
	v["format"] = []string{"json"}
	if q.start != 0 {
		v["date"] = []string{fmt.Sprintf("%d:%d", q.start, q.end)}
	}
	if q.perPage != 0 {
		v["per_page"] = []string{fmt.Sprintf("%d", q.perPage)}
	}
	if q.page != 0 {
		v["page"] = []string{fmt.Sprintf("%d", q.page)}
	}
	return v
}

// readPage executes the query using the Client from the context and
// downloads one page of data.
func (q *IndicatorQuery) readPage(ctx context.Context, page *indicatorPage) error {
	client := GetClient(ctx)
	if client == nil {
		return errors.Reason("IndicatorQuery.Read: no client in context")
	}
	uri := client.baseURL + q.Path()
	if err := fetch.FetchJSON(ctx, uri, page, q.Values(), nil); err != nil {
		return errors.Annotate(err, "IndicatorQuery.Read: failed to fetch URL")
	}
	return nil
}

// Read sets up the iterator over the result rows, which will execute the
// query as needed and handle paging transparently.
func (q *IndicatorQuery) Read(ctx context.Context) *RowIterator {
	return newRowIterator(ctx, q)
}

// RowIterator iterates over query results row by row. Paging is handled
// transparently.
type RowIterator struct {
	context context.Context
	query   *IndicatorQuery
	page    indicatorPage
	index   int // the observation for Next() to return
	pageNum int // which page number we're on
	started bool
}

// newRowIterator creates a new iterator.
func newRowIterator(ctx context.Context, query *IndicatorQuery) *RowIterator {
	return &RowIterator{context: ctx, query: query}
}

// nextPage fetches and populates the iterator with the next page of data.
// When there are no more pages to load, or loading a page results in an
// error, the first return value becomes false.
func (it *RowIterator) nextPage() (bool, error) {
	if it.started && it.pageNum >= it.page.Meta.Pages {
		return false, nil
	}
	it.started = true
	it.pageNum++
	// Clear the page, in case read doesn't overwrite some parts.
	it.page = indicatorPage{}
	q := it.query.Page(it.pageNum)
	if err := q.readPage(it.context, &it.page); err != nil {
		return false, errors.Annotate(err, "failed to query page %d", it.pageNum)
	}
	it.index = 0
	logging.Infof(it.context,
		"World Bank: fetched page %d of %d with %d observations",
		it.page.Meta.Page, it.page.Meta.Pages, len(it.page.Observations))
	return true, nil
}

// Next loads the next observation. If there are no more rows, the second
// value is false.
func (it *RowIterator) Next(obs *Observation) (bool, error) {
	if it.query == nil {
		return false, nil
	}
	if !it.started {
		if ok, err := it.nextPage(); !ok {
			return false, err
		}
	}
	if it.index >= len(it.page.Observations) {
		if ok, err := it.nextPage(); !ok {
			return false, err
		}
	}
	if it.index >= len(it.page.Observations) {
		return false, nil
	}
	*obs = it.page.Observations[it.index]
	it.index++
	return true, nil
}

// FetchIndicator downloads the entire series for the query, in API response
// order.
func FetchIndicator(ctx context.Context, q *IndicatorQuery) ([]Observation, error) {
	it := q.Read(ctx)
	var res []Observation
	for {
		var obs Observation
		ok, err := it.Next(&obs)
		if err != nil {
			return nil, errors.Annotate(err, "failed to read observations")
		}
		if !ok {
			break
		}
		res = append(res, obs)
	}
	return res, nil
}
