package executor

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"strconv"
	"testing"
	"time"
)

// rowsourceDriver serves a fixed number of synthetic rows; the DSN is
// the row count. It exists to drive Run without a live database.
type rowsourceDriver struct{}

func init() { sql.Register("rowsource", rowsourceDriver{}) }

func (rowsourceDriver) Open(dsn string) (driver.Conn, error) {
	n, err := strconv.Atoi(dsn)
	if err != nil {
		return nil, err
	}
	return &rowsourceConn{total: n}, nil
}

type rowsourceConn struct{ total int }

func (c *rowsourceConn) Prepare(query string) (driver.Stmt, error) {
	return &rowsourceStmt{conn: c}, nil
}

func (c *rowsourceConn) Close() error { return nil }

func (c *rowsourceConn) Begin() (driver.Tx, error) { return rowsourceTx{}, nil }

func (c *rowsourceConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return rowsourceTx{}, nil
}

type rowsourceTx struct{}

func (rowsourceTx) Commit() error   { return nil }
func (rowsourceTx) Rollback() error { return nil }

type rowsourceStmt struct{ conn *rowsourceConn }

func (s *rowsourceStmt) Close() error  { return nil }
func (s *rowsourceStmt) NumInput() int { return 0 }

func (s *rowsourceStmt) Exec(args []driver.Value) (driver.Result, error) {
	return driver.ResultNoRows, nil
}

func (s *rowsourceStmt) Query(args []driver.Value) (driver.Rows, error) {
	return &rowsourceRows{remaining: s.conn.total}, nil
}

type rowsourceRows struct {
	remaining int
	served    int
}

func (r *rowsourceRows) Columns() []string { return []string{"id", "amount"} }

func (r *rowsourceRows) Close() error { return nil }

func (r *rowsourceRows) Next(dest []driver.Value) error {
	if r.served >= r.remaining {
		return io.EOF
	}
	r.served++
	dest[0] = int64(r.served)
	dest[1] = int64(r.served * 100)
	return nil
}

func openRowSource(t *testing.T, rows int) *sql.DB {
	t.Helper()
	db, err := sql.Open("rowsource", strconv.Itoa(rows))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunTruncatesOverCap(t *testing.T) {
	e := New(openRowSource(t, 6), time.Second, 5)

	result, failure := e.Run(context.Background(), "SELECT id, amount FROM orders")
	if failure != nil {
		t.Fatalf("Run() failed: %v", failure)
	}
	if result.RowCount != 5 {
		t.Errorf("RowCount = %d, want 5", result.RowCount)
	}
	if len(result.Rows) != 5 {
		t.Errorf("len(Rows) = %d, want 5", len(result.Rows))
	}
	if !result.Truncated {
		t.Error("Truncated = false with more rows than the cap")
	}
}

func TestRunExactCapNotTruncated(t *testing.T) {
	e := New(openRowSource(t, 5), time.Second, 5)

	result, failure := e.Run(context.Background(), "SELECT id, amount FROM orders")
	if failure != nil {
		t.Fatalf("Run() failed: %v", failure)
	}
	if result.RowCount != 5 {
		t.Errorf("RowCount = %d, want 5", result.RowCount)
	}
	if result.Truncated {
		t.Error("Truncated = true with exactly cap rows")
	}
}

func TestRunUnderCap(t *testing.T) {
	e := New(openRowSource(t, 3), time.Second, 5)

	result, failure := e.Run(context.Background(), "SELECT id, amount FROM orders")
	if failure != nil {
		t.Fatalf("Run() failed: %v", failure)
	}
	if result.RowCount != 3 || result.Truncated {
		t.Errorf("RowCount = %d, Truncated = %v, want 3 and false", result.RowCount, result.Truncated)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "id" {
		t.Errorf("Columns = %v, want [id amount]", result.Columns)
	}
	if result.Rows[0][0] != int64(1) || result.Rows[0][1] != int64(100) {
		t.Errorf("Rows[0] = %v, want [1 100]", result.Rows[0])
	}
}
