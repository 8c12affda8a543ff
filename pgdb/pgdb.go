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

// Package pgdb persists debt records in PostgreSQL. It opens a single
// connection per run (no pooling) and wraps the schema setup and the batch
// upsert each in its own transaction.
package pgdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stockparfait/errors"

	"github.com/debtpipe/debtpipe/etl"
)

// Default destination object names.
const (
	DefaultTable = "kenya_external_debt"
	DefaultIndex = "idx_kenya_debt_year"
)

// DB is a single-connection loader. It implements etl.Store.
type DB struct {
	conn  *pgx.Conn
	table string
	index string
}

var _ etl.Store = &DB{}

// Connect opens the connection described by the Config. The caller must
// Close the result when done.
func Connect(ctx context.Context, cfg *Config) (*DB, error) {
	conn, err := pgx.Connect(ctx, cfg.ConnString())
	if err != nil {
		return nil, errors.Annotate(err, "failed to connect to %s:%s/%s",
			cfg.Host, cfg.Port, cfg.DBName)
	}
	return &DB{conn: conn, table: DefaultTable, index: DefaultIndex}, nil
}

// WithTable overrides the destination table and index names. Empty values
// keep the defaults.
func (d *DB) WithTable(table, index string) *DB {
	if table != "" {
		d.table = table
	}
	if index != "" {
		d.index = index
	}
	return d
}

// Close releases the connection.
func (d *DB) Close(ctx context.Context) error {
	return d.conn.Close(ctx)
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	country VARCHAR(50),
	year INT PRIMARY KEY,
	external_debt FLOAT,
	last_updated TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, table)
}

func createIndexSQL(table, index string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (year)", index, table)
}

func upsertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (country, year, external_debt)
VALUES ($1, $2, $3)
ON CONFLICT (year) DO UPDATE SET
	external_debt = EXCLUDED.external_debt,
	last_updated = CURRENT_TIMESTAMP`, table)
}

// EnsureSchema idempotently creates the destination table and its year
// index in a single transaction.
func (d *DB) EnsureSchema(ctx context.Context) error {
	tx, err := d.conn.Begin(ctx)
	if err != nil {
		return errors.Annotate(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) // no-op after a successful commit

	if _, err := tx.Exec(ctx, createTableSQL(d.table)); err != nil {
		return errors.Annotate(err, "failed to create table %s", d.table)
	}
	if _, err := tx.Exec(ctx, createIndexSQL(d.table, d.index)); err != nil {
		return errors.Annotate(err, "failed to create index %s", d.index)
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Annotate(err, "failed to commit schema setup")
	}
	return nil
}

// Upsert writes all records in one transaction, as a batch of one
// insert-or-update statement per record keyed by year. Any failure rolls
// back the entire batch, leaving the table in its pre-batch state. Returns
// the number of records written.
func (d *DB) Upsert(ctx context.Context, recs []etl.DebtRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	tx, err := d.conn.Begin(ctx)
	if err != nil {
		return 0, errors.Annotate(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	sql := upsertSQL(d.table)
	batch := &pgx.Batch{}
	for _, r := range recs {
		batch.Queue(sql, r.Country, r.Year, r.ExternalDebt)
	}
	results := tx.SendBatch(ctx, batch)
	for _, r := range recs {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, errors.Annotate(err, "failed to upsert year %d", r.Year)
		}
	}
	if err := results.Close(); err != nil {
		return 0, errors.Annotate(err, "failed to close the batch")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Annotate(err, "failed to commit %d records", len(recs))
	}
	return len(recs), nil
}
