package recordstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/logger"
)

// SQLQuerier executes queries against the SQLite mirror of the record store.
type SQLQuerier struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// NewSQLQuerier creates a querier over db. A nil logger falls back to the
// component logger.
func NewSQLQuerier(db *sql.DB, log *zap.SugaredLogger) *SQLQuerier {
	if log == nil {
		log = logger.ComponentLogger("recordstore")
	}
	return &SQLQuerier{db: db, log: log}
}

// Query runs q and returns the records in result order.
func (s *SQLQuerier) Query(ctx context.Context, q Query) ([]Record, error) {
	stmt, args, err := BuildSQL(q)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		err = errors.Wrapf(err, "query %s", q.Entity)
		return nil, errors.WithDetail(err, stmt)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrapf(err, "read columns of %s", q.Entity)
	}

	var records []Record
	for rows.Next() {
		values := make([]interface{}, len(columns))
		targets := make([]interface{}, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, errors.Wrapf(err, "scan %s", q.Entity)
		}
		rec := make(Record, len(columns))
		for i, col := range columns {
			rec[col] = values[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate %s", q.Entity)
	}

	s.log.Debugw("Query executed",
		logger.FieldQuery, q.String(),
		logger.FieldCount, len(records),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return records, nil
}

// BuildSQL renders q as a parameterised SELECT. Identifiers are validated, never quoted
// from user input; values are always bound.
func BuildSQL(q Query) (string, []interface{}, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	var args []interface{}

	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, c := range q.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "t.%s", c)
	}
	fmt.Fprintf(&b, " FROM %s AS t", q.Entity)

	for i, l := range q.Links {
		fmt.Fprintf(&b, " INNER JOIN %s AS l%d ON l%d.%s = t.%s", l.Entity, i, i, l.To, l.From)
	}

	for i, c := range q.Conditions {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		switch c.Operator {
		case Equal:
			fmt.Fprintf(&b, "t.%s = ?", c.Field)
		case NotEqual:
			fmt.Fprintf(&b, "t.%s <> ?", c.Field)
		case In, NotIn:
			op := "IN"
			if c.Operator == NotIn {
				op = "NOT IN"
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(c.Values)), ", ")
			fmt.Fprintf(&b, "t.%s %s (%s)", c.Field, op, placeholders)
		}
		args = append(args, c.Values...)
	}

	for i, o := range q.Orders {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		dir := "ASC"
		if o.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&b, "t.%s %s", o.Field, dir)
	}

	return b.String(), args, nil
}
