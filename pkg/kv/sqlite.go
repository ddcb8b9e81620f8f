// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
	kitprom "github.com/go-kit/kit/metrics/prometheus"
	"github.com/mattn/go-sqlite3"
	stdprom "github.com/prometheus/client_golang/prometheus"
)

var (
	// migrations holds all our SQL migrations to be done (in order)
	migrations = []string{
		`create table if not exists records(collection text not null, key text not null, data blob not null, created_at timestamp, updated_at timestamp, primary key (collection, key));`,
		`create index if not exists records_collection on records(collection);`,
	}

	// Metrics
	connections = kitprom.NewGaugeFrom(stdprom.GaugeOpts{
		Name: "sqlite_connections",
		Help: "How many sqlite connections and what status they're in.",
	}, []string{"state"})
)

type promMetricCollector struct {
	interval time.Duration
	done     chan struct{}
}

func (p *promMetricCollector) run(db *sql.DB) {
	if db == nil {
		return
	}
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		stats := db.Stats()
		connections.With("state", "idle").Set(float64(stats.Idle))
		connections.With("state", "inuse").Set(float64(stats.InUse))
		connections.With("state", "open").Set(float64(stats.OpenConnections))

		select {
		case <-t.C:
		case <-p.done:
			return
		}
	}
}

// SQLiteStore keeps every collection in one sqlite table.
type SQLiteStore struct {
	db      *sql.DB
	metrics *promMetricCollector
}

// OpenSQLite opens (or creates) the sqlite database at path and runs
// migrations over it.
func OpenSQLite(logger log.Logger, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		err = fmt.Errorf("problem opening sqlite3 file: %v", err)
		logger.Log("sqlite", err)
		return nil, err
	}
	// sqlite only supports one writer
	db.SetMaxOpenConns(1)

	if err := migrate(logger, db, path); err != nil {
		db.Close()
		return nil, err
	}

	prom := &promMetricCollector{
		interval: 10 * time.Second,
		done:     make(chan struct{}),
	}
	go prom.run(db)

	return &SQLiteStore{db: db, metrics: prom}, nil
}

// migrate runs our database migrations (defined at the top of this file).
func migrate(logger log.Logger, db *sql.DB, path string) error {
	logger.Log("sqlite", fmt.Sprintf("migrating %s", path))
	for i := range migrations {
		row := migrations[i]
		res, err := db.Exec(row)
		if err != nil {
			return fmt.Errorf("migration #%d [%s...] had problem: %v", i, row[:40], err)
		}
		n, err := res.RowsAffected()
		if err == nil {
			logger.Log("sqlite", fmt.Sprintf("migration #%d [%s...] changed %d rows", i, row[:40], n))
		}
	}
	logger.Log("sqlite", "finished migrations")
	return nil
}

func (s *SQLiteStore) Close() error {
	close(s.metrics.done)
	return s.db.Close()
}

func (s *SQLiteStore) Ping() error {
	return s.db.Ping()
}

func (s *SQLiteStore) Read(ctx context.Context, collection, key string) ([]byte, error) {
	var data []byte
	row := s.db.QueryRowContext(ctx, `select data from records where collection = ? and key = ?;`, collection, key)
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("problem reading %s/%s: %v", collection, key, err)
	}
	return data, nil
}

func (s *SQLiteStore) Create(ctx context.Context, collection, key string, data []byte) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `insert into records (collection, key, data, created_at, updated_at) values (?, ?, ?, ?, ?);`, collection, key, data, now, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrExists
		}
		return fmt.Errorf("problem creating %s/%s: %v", collection, key, err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, collection, key string, data []byte) error {
	res, err := s.db.ExecContext(ctx, `update records set data = ?, updated_at = ? where collection = ? and key = ?;`, data, time.Now(), collection, key)
	return s.affected(res, err, "updating", collection, key)
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, key string) error {
	res, err := s.db.ExecContext(ctx, `delete from records where collection = ? and key = ?;`, collection, key)
	return s.affected(res, err, "deleting", collection, key)
}

func (s *SQLiteStore) affected(res sql.Result, err error, action, collection, key string) error {
	if err != nil {
		return fmt.Errorf("problem %s %s/%s: %v", action, collection, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("problem %s %s/%s: %v", action, collection, key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
