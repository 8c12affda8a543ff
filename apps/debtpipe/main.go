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

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"

	"github.com/debtpipe/debtpipe/etl"
	"github.com/debtpipe/debtpipe/pgdb"
	"github.com/debtpipe/debtpipe/wb"

	toml "github.com/pelletier/go-toml/v2"
)

type Flags struct {
	Config   string // optional TOML config file
	LogLevel logging.Level
	Preview  bool   // print the records instead of loading them
	Format   string // preview format: text or csv
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("debtpipe", flag.ExitOnError)
	fs.StringVar(&flags.Config, "config", "", "optional TOML config file")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.BoolVar(&flags.Preview, "preview", false,
		"print the transformed records to stdout, skip the database")
	fs.StringVar(&flags.Format, "format", "text", "preview format: text or csv")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	if flags.Format != "text" && flags.Format != "csv" {
		return nil, errors.Reason("-format must be 'text' or 'csv', got '%s'",
			flags.Format)
	}
	return &flags, err
}

// Config are the pipeline settings. Every field is optional and defaults to
// the original deployment's values. Database credentials never live here;
// they are always read from the process environment.
type Config struct {
	Country     string `toml:"country"`      // country code, e.g. KE
	CountryName string `toml:"country_name"` // label stored in each row
	Indicator   string `toml:"indicator"`    // World Bank indicator ID
	StartYear   int    `toml:"start_year"`
	EndYear     int    `toml:"end_year"`
	PerPage     int    `toml:"per_page"`
	TimeoutSec  int    `toml:"timeout_sec"` // HTTP request timeout
	Table       string `toml:"table"`       // destination table name
	Index       string `toml:"index"`       // destination index name
}

func defaultConfig() *Config {
	return &Config{
		Country:     "KE",
		CountryName: "Kenya",
		Indicator:   wb.ExternalDebtStocks,
		StartYear:   2010,
		EndYear:     2024,
		PerPage:     1000,
		TimeoutSec:  30,
		Table:       pgdb.DefaultTable,
		Index:       pgdb.DefaultIndex,
	}
}

func parseConfig(filePath string) (*Config, error) {
	c := defaultConfig()
	if filePath == "" {
		return c, nil
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	if err := d.Decode(c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	return c, nil
}

func run(ctx context.Context, flags *Flags) error {
	config, err := parseConfig(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}

	client := &http.Client{Timeout: time.Duration(config.TimeoutSec) * time.Second}
	ctx = fetch.UseClient(ctx, client)
	ctx = wb.UseClient(ctx)

	query := wb.NewIndicatorQuery(config.Country, config.Indicator).
		DateRange(config.StartYear, config.EndYear).
		PerPage(config.PerPage)

	if flags.Preview {
		obs, err := wb.FetchIndicator(ctx, query)
		if err != nil {
			return errors.Annotate(err, "failed to fetch the series")
		}
		recs, err := etl.Transform(obs, config.CountryName)
		if err != nil {
			return errors.Annotate(err, "failed to transform the series")
		}
		if flags.Format == "csv" {
			return etl.WriteCSV(os.Stdout, recs)
		}
		return etl.WriteText(os.Stdout, recs)
	}

	dbConfig, err := pgdb.FromEnv()
	if err != nil {
		return errors.Annotate(err, "invalid database configuration")
	}
	logging.Infof(ctx, "connecting to %s:%s/%s...",
		dbConfig.Host, dbConfig.Port, dbConfig.DBName)
	store, err := pgdb.Connect(ctx, dbConfig)
	if err != nil {
		return errors.Annotate(err, "failed to connect to the database")
	}
	defer store.Close(ctx)
	store.WithTable(config.Table, config.Index)

	p := etl.Pipeline{
		Source:  etl.QuerySource{Query: query},
		Store:   store,
		Country: config.CountryName,
	}
	res := p.Run(ctx)
	logging.Infof(ctx, "run finished: fetched %d, loaded %d", res.Fetched, res.Loaded)
	if res.Err != nil {
		return errors.Annotate(res.Err, "pipeline run failed")
	}
	return nil
}

// main is not tested, keep it short.
func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := run(ctx, flags); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
