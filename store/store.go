// Package store reads example cases from Postgres and records training runs.
package store

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"github.com/jackc/pgx"
	"github.com/pkg/errors"

	"github.com/mtharp/reimburse/model"
	"github.com/mtharp/reimburse/trip"
)

const stmtRun = "insert_run"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// Schema creates the run history table. Example tables are expected to exist.
const Schema = `CREATE TABLE IF NOT EXISTS runs (
	id uuid PRIMARY KEY,
	kind text NOT NULL,
	mae double precision NOT NULL,
	cases integer NOT NULL,
	artifact jsonb NOT NULL,
	created timestamptz NOT NULL DEFAULT now()
)`

type DB struct {
	*pgx.ConnPool
}

func Open(url string) (*DB, error) {
	cfg, err := pgx.ParseConnectionString(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse db url")
	}
	pool, err := pgx.NewConnPool(pgx.ConnPoolConfig{
		ConnConfig: cfg,
		AfterConnect: func(conn *pgx.Conn) error {
			// the insert cannot be prepared until the table exists
			if _, err := conn.Exec(Schema); err != nil {
				return errors.Wrap(err, "create runs table")
			}
			_, err := conn.Prepare(stmtRun, "INSERT INTO runs (id, kind, mae, cases, artifact, created) VALUES ($1, $2, $3, $4, $5, $6)")
			return err
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect db")
	}
	return &DB{ConnPool: pool}, nil
}

// Migrate creates the tables the store writes to. Open already does this on
// every new connection; Migrate is for callers holding a pool across a
// schema reset.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.ExecEx(ctx, Schema, nil)
	return errors.Wrap(err, "create runs table")
}

// LoadExamples reads (days, miles, receipts, expected) rows from table.
func (db *DB) LoadExamples(ctx context.Context, table string) ([]trip.Example, error) {
	if !tableName.MatchString(table) {
		return nil, errors.Errorf("invalid table name %q", table)
	}
	rows, err := db.QueryEx(ctx, "SELECT days, miles, receipts, expected FROM "+table+" ORDER BY 1, 2, 3", nil)
	if err != nil {
		return nil, errors.Wrap(err, "query examples")
	}
	defer rows.Close()
	var examples []trip.Example
	for rows.Next() {
		var ex trip.Example
		if err := rows.Scan(&ex.Input.Days, &ex.Input.Miles, &ex.Input.Receipts, &ex.Expected); err != nil {
			return nil, errors.Wrap(err, "scan example")
		}
		examples = append(examples, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read examples")
	}
	return examples, nil
}

// SaveRun records a finished training run.
func (db *DB) SaveRun(ctx context.Context, a *model.Artifact) error {
	blob, err := json.Marshal(a)
	if err != nil {
		return errors.Wrap(err, "marshal artifact")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = db.ExecEx(ctx, stmtRun, nil, a.ID, a.Kind, a.MAE, a.Cases, string(blob), a.Created)
	return errors.Wrap(err, "insert run")
}
