// Package executor runs validated SQL against PostgreSQL inside a
// read-only transaction with a hard timeout and a display row cap.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ErrorKind classifies an execution failure.
type ErrorKind string

const (
	// KindTimeout means the statement exceeded its wall-clock limit
	// and was canceled. Not retried at any layer.
	KindTimeout ErrorKind = "timeout"
	// KindExecutionError covers every other database-level failure.
	KindExecutionError ErrorKind = "execution_error"
)

// pq reports a statement canceled by statement_timeout or ctx
// cancellation with SQLSTATE 57014.
const pqQueryCanceled = "57014"

// Failure is a structured execution failure.
type Failure struct {
	Kind    ErrorKind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Result is a materialized result set, capped at the display limit.
// Truncated reports that the underlying result had more rows than
// RowCount; no partial rows are ever dropped silently.
type Result struct {
	Columns   []string
	Rows      [][]any
	RowCount  int
	Truncated bool
	Elapsed   time.Duration
}

// NumericColumns returns the indexes of columns whose values scanned
// as numeric types.
func (r *Result) NumericColumns() []int {
	var numeric []int
	for col := range r.Columns {
		for _, row := range r.Rows {
			if row[col] == nil {
				continue
			}
			switch row[col].(type) {
			case int64, float64:
				numeric = append(numeric, col)
			}
			break
		}
	}
	return numeric
}

// Executor runs accepted statements under the configured limits.
type Executor struct {
	DB      *sql.DB
	Timeout time.Duration
	RowCap  int
}

// New creates an Executor with the given limits.
func New(db *sql.DB, timeout time.Duration, rowCap int) *Executor {
	return &Executor{DB: db, Timeout: timeout, RowCap: rowCap}
}

// Run executes one statement and materializes at most RowCap rows.
// The statement runs in a read-only transaction with both a database
// statement_timeout and a context deadline; cancellation propagates to
// the server so abandoned statements stop consuming resources.
// Run never retries.
func (e *Executor) Run(ctx context.Context, stmt string) (*Result, *Failure) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	start := time.Now()

	tx, err := e.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, e.classify(ctx, err)
	}
	defer tx.Rollback()

	timeoutMs := e.Timeout.Milliseconds()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", timeoutMs)); err != nil {
		return nil, e.classify(ctx, err)
	}

	rows, err := tx.QueryContext(ctx, stmt)
	if err != nil {
		return nil, e.classify(ctx, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, e.classify(ctx, err)
	}

	result := &Result{Columns: columns}
	for rows.Next() {
		if result.RowCount >= e.RowCap {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, e.classify(ctx, err)
		}

		for i, val := range values {
			if b, ok := val.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, e.classify(ctx, err)
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// classify maps a database error to the failure taxonomy.
func (e *Executor) classify(ctx context.Context, err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return &Failure{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("query exceeded the %s time limit; add filters or narrow the question", e.Timeout),
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) == pqQueryCanceled {
			return &Failure{
				Kind:    KindTimeout,
				Message: fmt.Sprintf("query exceeded the %s time limit; add filters or narrow the question", e.Timeout),
			}
		}
		return &Failure{Kind: KindExecutionError, Message: pqErr.Message}
	}

	return &Failure{Kind: KindExecutionError, Message: err.Error()}
}
