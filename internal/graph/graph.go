// Package graph wraps the Neo4j driver behind a small read/write query
// port. Callers run parameterized Cypher inside explicit read or write
// transactions and receive rows of named fields; writes also report
// whether the database registered any change.
package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
)

// ErrConnection and ErrAuthentication classify fatal connection failures.
// Both terminate a run; nothing in this tool retries.
var (
	ErrConnection     = errors.New("could not connect to Neo4j")
	ErrAuthentication = errors.New("Neo4j authentication failed")
)

// Config holds the connection settings for a single invocation.
type Config struct {
	URI      string
	Username string
	Password string
}

// DB is an open, connectivity-verified driver handle.
type DB struct {
	driver neo4j.DriverWithContext
}

// Connect builds a driver for cfg and verifies connectivity before
// returning. Failures are wrapped in ErrConnection or ErrAuthentication.
func Connect(ctx context.Context, cfg Config) (*DB, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrConnection, cfg.URI, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, classify(err, cfg)
	}
	return &DB{driver: driver}, nil
}

// classify maps a driver error to the connection/auth taxonomy.
func classify(err error, cfg Config) error {
	var neoErr *db.Neo4jError
	if errors.As(err, &neoErr) && strings.HasPrefix(neoErr.Code, "Neo.ClientError.Security.") {
		return fmt.Errorf("%w for user '%s': %v", ErrAuthentication, cfg.Username, err)
	}
	return fmt.Errorf("%w at %s: %v", ErrConnection, cfg.URI, err)
}

// Close releases the driver.
func (d *DB) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

// Session opens one session, scoped to a single invocation. The caller
// must Close it on every exit path.
func (d *DB) Session(ctx context.Context) *Session {
	return &Session{sess: d.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// Session executes queries against one underlying driver session. Each
// call runs in its own managed transaction; there is no transaction
// spanning multiple calls.
type Session struct {
	sess neo4j.SessionWithContext
}

// Close releases the session.
func (s *Session) Close(ctx context.Context) error {
	return s.sess.Close(ctx)
}

// ReadRows runs query inside a read transaction and returns every result
// row. The identifier values in params are always bound, never spliced
// into the query text.
func (s *Session) ReadRows(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	out, err := s.sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		var rows []Row
		for res.Next(ctx) {
			rows = append(rows, recordRow(res.Record()))
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return rows, nil
	})
	if err != nil {
		return nil, fmt.Errorf("read query failed: %w", err)
	}
	return out.([]Row), nil
}

type writeResult struct {
	row     Row
	updated bool
}

// WriteRow runs query inside a write transaction. It returns the first
// result row (nil when the query produced none) and whether the summary
// counters recorded any update. The counter check backs up the row
// result for drivers that under-report matched counts on no-op writes.
func (s *Session) WriteRow(ctx context.Context, query string, params map[string]any) (Row, bool, error) {
	out, err := s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		var row Row
		if res.Next(ctx) {
			row = recordRow(res.Record())
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return writeResult{row: row, updated: summary.Counters().ContainsUpdates()}, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("write query failed: %w", err)
	}
	wr := out.(writeResult)
	return wr.row, wr.updated, nil
}

func recordRow(rec *neo4j.Record) Row {
	row := make(Row, len(rec.Keys))
	for i, key := range rec.Keys {
		row[key] = rec.Values[i]
	}
	return row
}
