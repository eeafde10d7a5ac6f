// Package shop holds the shop schema (customers, orders, products and the
// order_products bridge), the random data generator and the report queries.
// Everything goes through a Store, which wraps one orm.Database handle.
package shop

import (
	"fmt"
	"time"

	orm "github.com/medatechnology/simpleshop"
)

// Store is the context object every shop operation runs against. It is not
// safe for concurrent use on an in-memory sqlite database.
type Store struct {
	db     orm.Database
	logger orm.Logger
	now    func() time.Time
}

type Option func(*Store)

func WithLogger(logger orm.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now, for reproducible dates in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(db orm.Database, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: orm.NewNoopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) DB() orm.Database { return s.db }

func (s *Store) Logger() orm.Logger { return s.logger }

// Now is the store clock, normalized the way timestamps are stored.
func (s *Store) Now() time.Time {
	return orm.NormalizeTime(s.now())
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) selectRows(op string, query string, args ...interface{}) (orm.DBRecords, error) {
	start := time.Now()
	records, err := s.db.SelectOneSQLParameterized(orm.SQLAndValuesToParameterized(query, args...))
	if err != nil {
		orm.LogErrorWithContext(s.logger, err, orm.String("query", op))
		return nil, err
	}
	s.logger.Debug("query",
		orm.String("query", op),
		orm.Int("rows", len(records)),
		orm.Duration("duration", time.Since(start)))
	return records, nil
}

func (s *Store) count(table string) (int, error) {
	if err := orm.ValidateTableName(table); err != nil {
		return 0, err
	}
	rec, err := s.db.SelectOnlyOneSQLParameterized(orm.ParametereizedSQL{
		Query: "SELECT COUNT(*) AS total FROM " + table,
	})
	if err != nil {
		return 0, orm.WrapSelectError(err, table)
	}
	n, err := rec.Int64("total")
	return int(n), err
}

// insertBatch inserts records in one transaction; any failing chunk rolls back
// the whole batch. Returns the number of rows written.
func (s *Store) insertBatch(records []orm.DBRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	table := records[0].TableName
	start := time.Now()

	tx, err := s.db.BeginTransaction()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	results, err := tx.InsertManyDBRecordsSameTable(records)
	if err != nil {
		return 0, orm.WrapInsertError(err, table)
	}
	for _, res := range results {
		if res.Error != nil {
			return 0, orm.WrapInsertError(res.Error, table)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, orm.WrapInsertError(err, table)
	}

	s.logger.Debug("batch committed",
		orm.String("table", table),
		orm.Int("rows", len(records)),
		orm.Int("statements", len(results)),
		orm.Duration("duration", time.Since(start)))
	return len(records), nil
}

// ids returns a single integer column, in query order.
func (s *Store) ids(op, query string, args ...interface{}) ([]int64, error) {
	records, err := s.selectRows(op, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(records))
	for _, rec := range records {
		id, err := rec.Int64("id")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, id)
	}
	return out, nil
}
