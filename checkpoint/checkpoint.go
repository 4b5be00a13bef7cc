// Package checkpoint persists walker batches and estimator series in sqlite.
//
// Walkers are stored slot by slot through the batch's flat buffer encoding,
// so a checkpoint written by one run layout can only be restored into a batch
// with the same shape.
package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"afqmc"
)

const (
	tableWalker = "walker"
	tableSeries = "series"
)

// Store is a sqlite-backed checkpoint store.
type Store struct {
	Path string

	db *sql.DB
}

// Open opens or creates a store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}
	return &Store{Path: dbPath, db: db}, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Save writes every walker of the batch under the given step.
func (s *Store) Save(w *afqmc.WalkerBatch, step int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 48*time.Hour)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (step, iw, k, re, im) VALUES (?, ?, ?, ?, ?)`, tableWalker)
	stmt, err := tx.PrepareContext(ctx, sqlStr)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "")
	}
	defer stmt.Close()

	buf := make([]complex64, w.BufferSize())
	for iw := 0; iw < w.NumWalkersLocal; iw++ {
		if err := w.PackWalker(iw, buf); err != nil {
			tx.Rollback()
			return errors.Wrap(err, fmt.Sprintf("%d", iw))
		}
		for k, v := range buf {
			if _, err := stmt.ExecContext(ctx, step, iw, k, real(v), imag(v)); err != nil {
				tx.Rollback()
				return errors.Wrap(err, fmt.Sprintf("%d %d", iw, k))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Load restores every walker of the batch from the given step.
// The batch must have the shape the checkpoint was written with.
func (s *Store) Load(w *afqmc.WalkerBatch, step int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 48*time.Hour)
	defer cancel()

	buf := make([]complex64, w.BufferSize())
	for iw := 0; iw < w.NumWalkersLocal; iw++ {
		sqlStr := fmt.Sprintf(`SELECT k, re, im FROM %s WHERE step=? AND iw=? ORDER BY k`, tableWalker)
		rows, err := s.db.QueryContext(ctx, sqlStr, step, iw)
		if err != nil {
			return errors.Wrap(err, "")
		}

		n := 0
		for rows.Next() {
			var k int
			var re, im float32
			if err := rows.Scan(&k, &re, &im); err != nil {
				rows.Close()
				return errors.Wrap(err, "")
			}
			if k >= len(buf) {
				rows.Close()
				return errors.Errorf("%d %d", k, len(buf))
			}
			buf[k] = complex(re, im)
			n++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return errors.Wrap(err, "")
		}
		rows.Close()
		if n != len(buf) {
			return errors.Errorf("%d %d, walker %d step %d", n, len(buf), iw, step)
		}

		if err := w.UnpackWalker(iw, buf); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d", iw))
		}
	}
	return nil
}

// Steps returns the checkpointed steps in increasing order.
func (s *Store) Steps() ([]int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT DISTINCT step FROM %s ORDER BY step`, tableWalker)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	steps := make([]int, 0)
	for rows.Next() {
		var step int
		if err := rows.Scan(&step); err != nil {
			return nil, errors.Wrap(err, "")
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return steps, nil
}

// AppendSeries records one scalar estimator value at a step.
func (s *Store) AppendSeries(step int, name string, v float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (step, name, v) VALUES (?, ?, ?)`, tableSeries)
	if _, err := s.db.ExecContext(ctx, sqlStr, step, name, v); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Series returns a recorded estimator series in step order.
func (s *Store) Series(name string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 48*time.Hour)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT v FROM %s WHERE name=? ORDER BY step`, tableSeries)
	rows, err := s.db.QueryContext(ctx, sqlStr, name)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	vs := make([]float64, 0)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "")
		}
		vs = append(vs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return vs, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (step INTEGER, iw INTEGER, k INTEGER, re REAL, im REAL, PRIMARY KEY (step, iw, k)) STRICT`, tableWalker)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (step INTEGER, name TEXT, v REAL, PRIMARY KEY (step, name)) STRICT`, tableSeries)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
