// Package schema introspects the target database and describes its
// tables and columns for prompt grounding and SQL validation.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaUnavailable indicates the catalog could not be read.
var ErrSchemaUnavailable = errors.New("schema unavailable")

// Column describes a single table column.
type Column struct {
	Name     string
	DataType string
	Nullable bool
}

// ForeignKey describes a column referencing another table.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Table describes a user table with its columns in ordinal order.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
}

// Descriptor is an immutable snapshot of all user tables visible to
// the connection's role. It is passed by value through the pipeline
// and never mutated after Load returns it.
type Descriptor struct {
	Tables []Table
}

// Table returns the table with the given name, case-insensitive.
func (d *Descriptor) Table(name string) (*Table, bool) {
	for i := range d.Tables {
		if strings.EqualFold(d.Tables[i].Name, name) {
			return &d.Tables[i], true
		}
	}
	return nil, false
}

// Column returns the column with the given name, case-insensitive.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Load reads the catalog for all tables in the public schema.
// It issues only read-only metadata queries against information_schema.
func Load(ctx context.Context, db *sql.DB) (*Descriptor, error) {
	names, err := tableNames(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w: listing tables: %v", ErrSchemaUnavailable, err)
	}

	desc := &Descriptor{}
	for _, name := range names {
		table := Table{Name: name}

		if table.Columns, err = tableColumns(ctx, db, name); err != nil {
			return nil, fmt.Errorf("%w: columns of %s: %v", ErrSchemaUnavailable, name, err)
		}
		if table.PrimaryKey, err = primaryKey(ctx, db, name); err != nil {
			return nil, fmt.Errorf("%w: primary key of %s: %v", ErrSchemaUnavailable, name, err)
		}
		if table.ForeignKeys, err = foreignKeys(ctx, db, name); err != nil {
			return nil, fmt.Errorf("%w: foreign keys of %s: %v", ErrSchemaUnavailable, name, err)
		}

		desc.Tables = append(desc.Tables, table)
	}

	return desc, nil
}

func tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func primaryKey(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	query := `
		SELECT kc.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kc ON tc.constraint_name = kc.constraint_name
		WHERE tc.table_schema = 'public' AND tc.table_name = $1
		AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kc.ordinal_position`

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func foreignKeys(ctx context.Context, db *sql.DB, table string) ([]ForeignKey, error) {
	query := `
		SELECT kc.column_name, cc.table_name, cc.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kc ON tc.constraint_name = kc.constraint_name
		JOIN information_schema.constraint_column_usage cc ON tc.constraint_name = cc.constraint_name
		WHERE tc.table_schema = 'public' AND tc.table_name = $1
		AND tc.constraint_type = 'FOREIGN KEY'
		ORDER BY kc.ordinal_position`

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}
