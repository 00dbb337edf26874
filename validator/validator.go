// Package validator is the deterministic safety gate for generated SQL.
// It checks statement shape, forbidden keywords, stacked statements,
// identifier resolution against the schema catalog, and a complexity
// guard. It never calls the language model and never touches the
// database, so the same input always yields the same verdict.
package validator

import (
	"fmt"
	"strings"

	"github.com/invdb/agent/schema"
)

// Kind classifies a validation violation.
type Kind string

const (
	KindEmptyStatement     Kind = "empty_statement"
	KindNotSelect          Kind = "not_select"
	KindForbiddenKeyword   Kind = "forbidden_keyword"
	KindMultipleStatements Kind = "multiple_statements"
	KindUnknownTable       Kind = "unknown_table"
	KindUnknownColumn      Kind = "unknown_column"
	KindTooComplex         Kind = "too_complex"
)

// Violation is a single policy failure with the offending detail.
type Violation struct {
	Kind   Kind
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Detail)
}

// Verdict is the result of validating one candidate statement.
type Verdict struct {
	Accepted   bool
	Violations []Violation
}

// Complexity guard limits. These protect the executor, not correctness.
const (
	maxStatementLength = 4000
	maxJoinCount       = 8
)

var forbiddenKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "DROP": true,
	"CREATE": true, "ALTER": true, "TRUNCATE": true, "GRANT": true,
	"REVOKE": true, "EXECUTE": true, "EXEC": true, "COPY": true,
	"CALL": true, "DO": true, "MERGE": true, "VACUUM": true,
	"REINDEX": true, "CLUSTER": true,
}

// Validate checks one candidate statement against the policy and the
// schema catalog. Checks run in passes; a failing pass short-circuits
// the later ones but collects every violation of its own category.
func Validate(stmt string, desc *schema.Descriptor) Verdict {
	tokens := tokenize(normalize(stmt))

	if len(tokens) == 0 {
		return reject(Violation{KindEmptyStatement, "statement is empty"})
	}

	if vs := checkStatementType(tokens); len(vs) > 0 {
		return reject(vs...)
	}
	if vs := checkStacked(tokens); len(vs) > 0 {
		return reject(vs...)
	}
	if vs := resolveIdentifiers(tokens, desc); len(vs) > 0 {
		return reject(vs...)
	}
	if vs := checkComplexity(stmt, tokens); len(vs) > 0 {
		return reject(vs...)
	}

	return Verdict{Accepted: true}
}

func reject(vs ...Violation) Verdict {
	return Verdict{Accepted: false, Violations: vs}
}

// checkStatementType verifies the root operation is SELECT (or a CTE
// terminating in SELECT) and that no write keyword appears anywhere.
func checkStatementType(tokens []token) []Violation {
	var vs []Violation

	first := strings.ToUpper(tokens[0].text)
	switch first {
	case "SELECT":
	case "WITH":
		if !hasTopLevelSelect(tokens) {
			vs = append(vs, Violation{KindNotSelect, "CTE does not terminate in a SELECT"})
		}
	default:
		vs = append(vs, Violation{KindNotSelect,
			fmt.Sprintf("statement starts with %s, only SELECT is allowed", first)})
	}

	seen := map[string]bool{}
	for _, tok := range tokens {
		if tok.kind != tokenWord {
			continue
		}
		upper := strings.ToUpper(tok.text)
		if forbiddenKeywords[upper] && !seen[upper] {
			seen[upper] = true
			vs = append(vs, Violation{KindForbiddenKeyword,
				fmt.Sprintf("forbidden keyword %s", upper)})
		}
	}

	return vs
}

func hasTopLevelSelect(tokens []token) bool {
	depth := 0
	for _, tok := range tokens {
		switch tok.text {
		case "(":
			depth++
		case ")":
			depth--
		default:
			if depth == 0 && tok.kind == tokenWord && strings.EqualFold(tok.text, "SELECT") {
				return true
			}
		}
	}
	return false
}

// checkStacked rejects a statement terminator followed by anything else.
func checkStacked(tokens []token) []Violation {
	for i, tok := range tokens {
		if tok.text == ";" && i < len(tokens)-1 {
			return []Violation{{KindMultipleStatements,
				"statement terminator followed by a second statement"}}
		}
	}
	return nil
}

func checkComplexity(stmt string, tokens []token) []Violation {
	var vs []Violation
	if len(stmt) > maxStatementLength {
		vs = append(vs, Violation{KindTooComplex,
			fmt.Sprintf("statement length %d exceeds %d characters", len(stmt), maxStatementLength)})
	}
	joins := 0
	for _, tok := range tokens {
		if tok.kind == tokenWord && strings.EqualFold(tok.text, "JOIN") {
			joins++
		}
	}
	if joins > maxJoinCount {
		vs = append(vs, Violation{KindTooComplex,
			fmt.Sprintf("%d joins exceed the limit of %d", joins, maxJoinCount)})
	}
	return vs
}
