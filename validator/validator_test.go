package validator

import (
	"strings"
	"testing"

	"github.com/invdb/agent/schema"
)

func sampleDescriptor() *schema.Descriptor {
	return &schema.Descriptor{
		Tables: []schema.Table{
			{
				Name: "clients",
				Columns: []schema.Column{
					{Name: "client_id", DataType: "integer"},
					{Name: "client_name", DataType: "text"},
					{Name: "industry", DataType: "text"},
					{Name: "contact_email", DataType: "text"},
				},
				PrimaryKey: []string{"client_id"},
			},
			{
				Name: "projects",
				Columns: []schema.Column{
					{Name: "project_id", DataType: "integer"},
					{Name: "project_name", DataType: "text"},
					{Name: "start_date", DataType: "date"},
					{Name: "end_date", DataType: "date"},
					{Name: "client_id", DataType: "integer"},
					{Name: "status", DataType: "text"},
					{Name: "budget", DataType: "numeric"},
				},
				PrimaryKey: []string{"project_id"},
				ForeignKeys: []schema.ForeignKey{
					{Column: "client_id", RefTable: "clients", RefColumn: "client_id"},
				},
			},
			{
				Name: "orders",
				Columns: []schema.Column{
					{Name: "order_id", DataType: "integer"},
					{Name: "project_id", DataType: "integer"},
					{Name: "order_date", DataType: "date"},
					{Name: "amount", DataType: "numeric"},
					{Name: "status", DataType: "text"},
				},
				PrimaryKey: []string{"order_id"},
			},
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	desc := sampleDescriptor()

	statements := []struct {
		name string
		sql  string
	}{
		{
			"simple select star",
			"SELECT * FROM projects",
		},
		{
			"join with aliases",
			`SELECT p.project_name, p.budget, c.client_name
			 FROM projects p
			 JOIN clients c ON p.client_id = c.client_id
			 WHERE EXTRACT(YEAR FROM p.start_date) = 2023`,
		},
		{
			"aggregate with group by and having",
			`SELECT p.project_id, SUM(o.amount) AS total_amount
			 FROM projects p
			 JOIN orders o ON p.project_id = o.project_id
			 GROUP BY p.project_id
			 HAVING SUM(o.amount) > 1000`,
		},
		{
			"cte terminating in select",
			`WITH recent AS (
			   SELECT project_id, amount FROM orders WHERE order_date > CURRENT_DATE - INTERVAL '30 days'
			 )
			 SELECT project_id, SUM(amount) AS total FROM recent GROUP BY project_id`,
		},
		{
			"explicit as alias and order by alias",
			"SELECT client_name AS name FROM clients ORDER BY name DESC",
		},
		{
			"bare columns from single table",
			"SELECT project_name, budget FROM projects WHERE status = 'active'",
		},
		{
			"trailing semicolon",
			"SELECT client_id FROM clients;",
		},
		{
			"string literal containing keyword",
			"SELECT client_name FROM clients WHERE industry = 'DROP hardware'",
		},
		{
			"subquery in from",
			`SELECT t.total FROM (SELECT SUM(amount) AS total FROM orders) AS t`,
		},
		{
			"quoted identifiers",
			`SELECT "client_name" FROM "clients"`,
		},
		{
			"bare alias after aggregate",
			"SELECT SUM(amount) total FROM orders ORDER BY total DESC",
		},
		{
			"bare alias after column",
			"SELECT client_name name FROM clients ORDER BY name",
		},
		{
			"bare alias after case expression",
			`SELECT project_id, CASE WHEN budget > 100000 THEN 'large' ELSE 'small' END size_class
			 FROM projects ORDER BY size_class`,
		},
	}

	for _, tc := range statements {
		t.Run(tc.name, func(t *testing.T) {
			verdict := Validate(tc.sql, desc)
			if !verdict.Accepted {
				t.Errorf("Validate() rejected valid statement: %v", verdict.Violations)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	desc := sampleDescriptor()

	statements := []struct {
		name   string
		sql    string
		kind   Kind
		detail string // substring expected in a violation detail
	}{
		{
			"empty statement",
			"   ",
			KindEmptyStatement,
			"",
		},
		{
			"insert statement",
			"INSERT INTO clients (client_name) VALUES ('x')",
			KindNotSelect,
			"INSERT",
		},
		{
			"delete statement",
			"DELETE FROM orders",
			KindNotSelect,
			"DELETE",
		},
		{
			"lowercase drop",
			"drop table clients",
			KindNotSelect,
			"DROP",
		},
		{
			"select hiding an update",
			"SELECT 1; UPDATE clients SET industry = 'x'",
			KindForbiddenKeyword,
			"UPDATE",
		},
		{
			"stacked queries",
			"SELECT client_id FROM clients; SELECT 1",
			KindMultipleStatements,
			"",
		},
		{
			"unknown table",
			"SELECT * FROM employees",
			KindUnknownTable,
			"employees",
		},
		{
			"unknown qualified column",
			"SELECT c.phone FROM clients c",
			KindUnknownColumn,
			"phone",
		},
		{
			"unknown bare column",
			"SELECT phone FROM clients",
			KindUnknownColumn,
			"phone",
		},
		{
			"unknown column after comma is not an alias",
			"SELECT client_name, phone FROM clients",
			KindUnknownColumn,
			"phone",
		},
		{
			"cte with dml inside",
			"WITH x AS (DELETE FROM orders RETURNING *) SELECT * FROM x",
			KindForbiddenKeyword,
			"DELETE",
		},
		{
			"statement too long",
			"SELECT client_id FROM clients WHERE industry IN (" + strings.Repeat("'x',", 2000) + "'x')",
			KindTooComplex,
			"length",
		},
	}

	for _, tc := range statements {
		t.Run(tc.name, func(t *testing.T) {
			verdict := Validate(tc.sql, desc)
			if verdict.Accepted {
				t.Fatal("Validate() accepted an unsafe statement")
			}

			found := false
			for _, v := range verdict.Violations {
				if v.Kind == tc.kind && strings.Contains(v.Detail, tc.detail) {
					found = true
				}
			}
			if !found {
				t.Errorf("violations = %v, want kind %s with detail containing %q",
					verdict.Violations, tc.kind, tc.detail)
			}
		})
	}
}

func TestValidateNamesEveryUnresolvedIdentifier(t *testing.T) {
	desc := sampleDescriptor()

	verdict := Validate("SELECT c.phone, c.fax FROM clients c", desc)
	if verdict.Accepted {
		t.Fatal("Validate() accepted statement with unknown columns")
	}
	if len(verdict.Violations) != 2 {
		t.Fatalf("got %d violations, want 2: %v", len(verdict.Violations), verdict.Violations)
	}
	for _, want := range []string{"phone", "fax"} {
		found := false
		for _, v := range verdict.Violations {
			if strings.Contains(v.Detail, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("violations %v do not name %q", verdict.Violations, want)
		}
	}
}

func TestValidateIdempotent(t *testing.T) {
	desc := sampleDescriptor()
	sql := "SELECT p.budget FROM projects p WHERE p.status = 'active'"

	first := Validate(sql, desc)
	second := Validate(sql, desc)

	if first.Accepted != second.Accepted {
		t.Fatalf("verdicts differ: %v vs %v", first.Accepted, second.Accepted)
	}
	if len(first.Violations) != len(second.Violations) {
		t.Fatalf("violation counts differ: %d vs %d", len(first.Violations), len(second.Violations))
	}
	for i := range first.Violations {
		if first.Violations[i] != second.Violations[i] {
			t.Errorf("violation %d differs: %v vs %v", i, first.Violations[i], second.Violations[i])
		}
	}
}

func TestValidateRejectsBeforeIdentifierPass(t *testing.T) {
	// A forbidden statement referencing unknown tables must be
	// rejected for its type, short-circuiting identifier resolution.
	verdict := Validate("TRUNCATE nonexistent", sampleDescriptor())
	if verdict.Accepted {
		t.Fatal("Validate() accepted TRUNCATE")
	}
	for _, v := range verdict.Violations {
		if v.Kind == KindUnknownTable {
			t.Errorf("identifier pass ran after statement-type rejection: %v", v)
		}
	}
}

func TestNormalizeStripsCommentsAndLiterals(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1 -- DROP TABLE x", "SELECT 1  "},
		{"SELECT /* DELETE */ 1", "SELECT   1"},
		{"SELECT 'it''s a DROP'", "SELECT ''"},
	}

	for _, tc := range tests {
		got := normalize(tc.in)
		if strings.Contains(strings.ToUpper(got), "DROP") || strings.Contains(strings.ToUpper(got), "DELETE") {
			t.Errorf("normalize(%q) = %q, keyword survived", tc.in, got)
		}
	}
}
