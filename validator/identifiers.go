package validator

import (
	"fmt"
	"strings"

	"github.com/invdb/agent/schema"
)

// sqlKeywords are words that can never be table or column references.
// Type names are included because they appear in CAST expressions, and
// date-part names because they appear inside EXTRACT.
var sqlKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "JOIN": true,
	"INNER": true, "LEFT": true, "RIGHT": true, "FULL": true,
	"OUTER": true, "CROSS": true, "ON": true, "AND": true, "OR": true,
	"NOT": true, "IN": true, "IS": true, "NULL": true, "AS": true,
	"GROUP": true, "BY": true, "ORDER": true, "HAVING": true,
	"LIMIT": true, "OFFSET": true, "DISTINCT": true, "UNION": true,
	"ALL": true, "ANY": true, "SOME": true, "EXISTS": true,
	"BETWEEN": true, "LIKE": true, "ILIKE": true, "SIMILAR": true,
	"TO": true, "CASE": true, "WHEN": true, "THEN": true, "ELSE": true,
	"END": true, "ASC": true, "DESC": true, "WITH": true, "USING": true,
	"NATURAL": true, "LATERAL": true, "INTERVAL": true, "CAST": true,
	"TRUE": true, "FALSE": true, "NULLS": true, "FIRST": true,
	"LAST": true, "FETCH": true, "NEXT": true, "ROW": true,
	"ROWS": true, "ONLY": true, "OVER": true, "PARTITION": true,
	"FILTER": true, "WITHIN": true, "ESCAPE": true, "COLLATE": true,
	"VALUES": true, "RECURSIVE": true, "INTERSECT": true,
	"EXCEPT": true, "LEADING": true, "TRAILING": true, "BOTH": true,
	"SYMMETRIC": true, "UNBOUNDED": true, "PRECEDING": true,
	"FOLLOWING": true, "CURRENT": true, "RANGE": true, "GROUPS": true,
	"TIES": true, "AT": true, "ZONE": true,
	"CURRENT_DATE": true, "CURRENT_TIMESTAMP": true,
	"CURRENT_TIME": true, "LOCALTIME": true, "LOCALTIMESTAMP": true,
	"YEAR": true, "MONTH": true, "DAY": true, "HOUR": true,
	"MINUTE": true, "SECOND": true, "EPOCH": true, "QUARTER": true,
	"WEEK": true, "DOW": true, "DOY": true, "CENTURY": true,
	"DECADE": true, "MILLENNIUM": true,
	"BOOLEAN": true, "INTEGER": true, "BIGINT": true, "SMALLINT": true,
	"NUMERIC": true, "DECIMAL": true, "REAL": true, "DOUBLE": true,
	"PRECISION": true, "TEXT": true, "VARCHAR": true, "CHAR": true,
	"DATE": true, "TIME": true, "TIMESTAMP": true, "TIMESTAMPTZ": true,
}

// resolver tracks table references while walking one statement.
type resolver struct {
	tokens []token
	desc   *schema.Descriptor

	used     []bool          // tokens consumed by earlier passes
	inFunc   []bool          // token sits inside a function call's parens
	ctes     map[string]bool // CTE names, columns unknowable
	refs     map[string]string
	wildcard map[string]bool // aliases whose columns cannot be checked
	aliases  map[string]bool // SELECT-list aliases (legal in ORDER BY)

	violations []Violation
	seen       map[string]bool
}

// resolveIdentifiers checks that every table and column reference in
// the statement resolves against the catalog. CTE names and subquery
// aliases act as wildcard tables: their bodies are still checked, but
// references through them resolve to any column.
func resolveIdentifiers(tokens []token, desc *schema.Descriptor) []Violation {
	r := &resolver{
		tokens:   tokens,
		desc:     desc,
		used:     make([]bool, len(tokens)),
		inFunc:   markFunctionSpans(tokens),
		ctes:     map[string]bool{},
		refs:     map[string]string{},
		wildcard: map[string]bool{},
		aliases:  map[string]bool{},
		seen:     map[string]bool{},
	}

	r.collectCTEs()
	r.collectTableRefs()
	r.checkQualifiedRefs()
	r.collectSelectAliases()
	r.checkBareIdents()

	return r.violations
}

func (r *resolver) violate(kind Kind, format string, args ...any) {
	v := Violation{kind, fmt.Sprintf(format, args...)}
	key := string(v.Kind) + "|" + v.Detail
	if r.seen[key] {
		return
	}
	r.seen[key] = true
	r.violations = append(r.violations, v)
}

// markFunctionSpans flags tokens enclosed by parens that open a
// function call, so that FROM inside EXTRACT/SUBSTRING/TRIM is not
// mistaken for a table reference clause.
func markFunctionSpans(tokens []token) []bool {
	inFunc := make([]bool, len(tokens))
	var stack []bool

	for i, tok := range tokens {
		switch tok.text {
		case "(":
			isCall := i > 0 && isIdentToken(tokens[i-1]) && !isKeyword(tokens[i-1])
			stack = append(stack, isCall)
		case ")":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			if len(stack) > 0 && stack[len(stack)-1] {
				inFunc[i] = true
			}
		}
	}

	return inFunc
}

func isIdentToken(t token) bool {
	return t.kind == tokenWord || t.kind == tokenQuoted
}

func isKeyword(t token) bool {
	return t.kind == tokenWord && sqlKeywords[strings.ToUpper(t.text)]
}

func (r *resolver) word(i int) (string, bool) {
	if i < 0 || i >= len(r.tokens) || !isIdentToken(r.tokens[i]) {
		return "", false
	}
	return r.tokens[i].text, true
}

func (r *resolver) symbolAt(i int, s string) bool {
	return i >= 0 && i < len(r.tokens) && r.tokens[i].kind == tokenSymbol && r.tokens[i].text == s
}

func (r *resolver) keywordAt(i int, kw string) bool {
	return i >= 0 && i < len(r.tokens) && r.tokens[i].kind == tokenWord &&
		strings.EqualFold(r.tokens[i].text, kw)
}

// collectCTEs registers WITH-clause names as wildcard tables.
// Handles both "name AS (" and "name (col, ...) AS (".
func (r *resolver) collectCTEs() {
	for i := range r.tokens {
		name, ok := r.word(i)
		if !ok || isKeyword(r.tokens[i]) {
			continue
		}
		if r.keywordAt(i+1, "AS") && r.symbolAt(i+2, "(") {
			r.ctes[strings.ToLower(name)] = true
			r.used[i] = true
			continue
		}
		if r.symbolAt(i+1, "(") {
			if end := r.matchParen(i + 1); end > 0 &&
				r.keywordAt(end+1, "AS") && r.symbolAt(end+2, "(") {
				r.ctes[strings.ToLower(name)] = true
				for j := i; j <= end; j++ {
					r.used[j] = true
				}
			}
		}
	}
}

// matchParen returns the index of the ")" matching the "(" at open.
func (r *resolver) matchParen(open int) int {
	depth := 0
	for i := open; i < len(r.tokens); i++ {
		switch r.tokens[i].text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// collectTableRefs parses the relation lists after FROM and JOIN,
// registering aliases and reporting unknown tables.
func (r *resolver) collectTableRefs() {
	for i := range r.tokens {
		if r.inFunc[i] {
			continue
		}
		isFrom := r.keywordAt(i, "FROM")
		if !isFrom && !r.keywordAt(i, "JOIN") {
			continue
		}

		j := i + 1
		for {
			j = r.parseTableRef(j)
			if !isFrom || !r.symbolAt(j, ",") {
				break
			}
			j++
		}
	}
}

// parseTableRef consumes one relation starting at j and returns the
// index of the first token after it (and its alias, if any).
func (r *resolver) parseTableRef(j int) int {
	if r.symbolAt(j, "(") {
		// Derived table: its body is checked by the outer scan, the
		// alias resolves any column.
		end := r.matchParen(j)
		if end < 0 {
			return len(r.tokens)
		}
		return r.parseAlias(end+1, "", true)
	}

	name, ok := r.word(j)
	if !ok || isKeyword(r.tokens[j]) {
		return j
	}
	r.used[j] = true

	// Optional schema qualification: keep the last part.
	for r.symbolAt(j+1, ".") {
		part, ok := r.word(j + 2)
		if !ok {
			break
		}
		name = part
		r.used[j+2] = true
		j += 2
	}

	lower := strings.ToLower(name)
	switch {
	case r.ctes[lower]:
		r.wildcard[lower] = true
	default:
		if table, ok := r.desc.Table(name); ok {
			r.refs[lower] = table.Name
		} else {
			r.violate(KindUnknownTable, "unknown table %q", name)
			// Still register so column checks do not cascade.
			r.wildcard[lower] = true
		}
	}

	return r.parseAlias(j+1, lower, false)
}

// parseAlias consumes an optional "AS alias" or bare alias after a
// relation and maps it to the same target.
func (r *resolver) parseAlias(j int, target string, wildcardTarget bool) int {
	if r.keywordAt(j, "AS") {
		j++
	} else if alias, ok := r.word(j); !ok || isKeyword(r.tokens[j]) || alias == "" {
		return j
	}

	alias, ok := r.word(j)
	if !ok || isKeyword(r.tokens[j]) {
		return j
	}
	r.used[j] = true

	lower := strings.ToLower(alias)
	if wildcardTarget || target == "" {
		r.wildcard[lower] = true
	} else if table, ok := r.refs[target]; ok {
		r.refs[lower] = table
	} else {
		r.wildcard[lower] = true
	}
	return j + 1
}

// checkQualifiedRefs validates qualifier.column references.
func (r *resolver) checkQualifiedRefs() {
	for i := range r.tokens {
		if r.used[i] || !isIdentToken(r.tokens[i]) || isKeyword(r.tokens[i]) {
			continue
		}
		if !r.symbolAt(i+1, ".") {
			continue
		}
		col, isStar := "", r.symbolAt(i+2, "*")
		if !isStar {
			var ok bool
			if col, ok = r.word(i + 2); !ok {
				continue
			}
		}

		qualifier := r.tokens[i].text
		lower := strings.ToLower(qualifier)

		// A leading schema qualifier is dropped so the rest of the chain
		// resolves as table.column on a later iteration.
		if lower == "public" && !isStar && r.symbolAt(i+3, ".") {
			r.used[i] = true
			continue
		}

		r.used[i] = true
		if !isStar {
			r.used[i+2] = true
		}

		switch {
		case r.wildcard[lower] || r.ctes[lower]:
			// Columns unknowable, accept.
		case r.refs[lower] != "":
			if !isStar {
				r.checkColumn(r.refs[lower], col)
			}
		default:
			if table, ok := r.desc.Table(qualifier); ok {
				if !isStar {
					r.checkColumn(table.Name, col)
				}
			} else {
				r.violate(KindUnknownTable, "unknown table %q", qualifier)
			}
		}
	}
}

func (r *resolver) checkColumn(tableName, col string) {
	table, ok := r.desc.Table(tableName)
	if !ok {
		return
	}
	if _, ok := table.Column(col); !ok {
		r.violate(KindUnknownColumn, "unknown column %q in table %q", col, table.Name)
	}
}

// collectSelectAliases registers identifiers introduced as aliases in
// the SELECT list, with AS or bare, which may legally reappear in
// ORDER BY and HAVING.
func (r *resolver) collectSelectAliases() {
	for i := range r.tokens {
		if !r.keywordAt(i, "AS") {
			continue
		}
		alias, ok := r.word(i + 1)
		if !ok || r.used[i+1] || isKeyword(r.tokens[i+1]) {
			continue
		}
		r.aliases[strings.ToLower(alias)] = true
		r.used[i+1] = true
	}

	for i := range r.tokens {
		if r.keywordAt(i, "SELECT") {
			r.collectBareAliases(i + 1)
		}
	}
}

// collectBareAliases scans one SELECT list for trailing bare aliases:
// an identifier that directly follows an expression and is itself
// followed by a comma or the end of the list.
func (r *resolver) collectBareAliases(start int) {
	depth := 0
	for j := start; j < len(r.tokens); j++ {
		tok := r.tokens[j]
		if tok.kind == tokenSymbol {
			switch tok.text {
			case "(":
				depth++
			case ")":
				if depth == 0 {
					return // closes an enclosing subquery
				}
				depth--
			}
			continue
		}
		if depth > 0 {
			continue
		}
		if isKeyword(tok) && strings.EqualFold(tok.text, "FROM") {
			return
		}
		if r.used[j] || !isIdentToken(tok) || isKeyword(tok) {
			continue
		}
		if !r.endsSelectItem(j+1) || !r.followsExpression(j-1) {
			continue
		}
		r.aliases[strings.ToLower(tok.text)] = true
		r.used[j] = true
	}
}

// endsSelectItem reports whether the token at i terminates a SELECT
// list item, so the identifier before it sits in alias position.
func (r *resolver) endsSelectItem(i int) bool {
	if i >= len(r.tokens) {
		return true
	}
	return r.symbolAt(i, ",") || r.symbolAt(i, ")") || r.symbolAt(i, ";") ||
		r.keywordAt(i, "FROM")
}

// followsExpression reports whether the token at i can end an
// expression an alias attaches to. Leading positions (SELECT,
// DISTINCT, commas, operators) do not qualify.
func (r *resolver) followsExpression(i int) bool {
	if i < 0 || i >= len(r.tokens) {
		return false
	}
	tok := r.tokens[i]
	switch tok.kind {
	case tokenSymbol:
		return tok.text == ")"
	case tokenNumber, tokenQuoted:
		return true
	case tokenWord:
		return !isKeyword(tok) || strings.EqualFold(tok.text, "END")
	}
	return false
}

// checkBareIdents validates unqualified identifiers against the
// columns of the referenced tables.
func (r *resolver) checkBareIdents() {
	for i := range r.tokens {
		if r.used[i] || !isIdentToken(r.tokens[i]) || isKeyword(r.tokens[i]) {
			continue
		}
		if r.symbolAt(i+1, "(") {
			continue // function call
		}

		name := r.tokens[i].text
		lower := strings.ToLower(name)
		if r.refs[lower] != "" || r.wildcard[lower] || r.ctes[lower] || r.aliases[lower] {
			continue
		}
		if len(r.wildcard) > 0 {
			// A derived table or CTE is in scope; bare columns may
			// belong to it, so they cannot be checked.
			continue
		}
		if r.resolvesAsColumn(name) {
			continue
		}
		r.violate(KindUnknownColumn, "unknown column %q", name)
	}
}

// resolvesAsColumn reports whether name is a column of a referenced
// table, or of any catalog table when nothing is referenced.
func (r *resolver) resolvesAsColumn(name string) bool {
	if len(r.refs) > 0 {
		for _, tableName := range r.refs {
			if table, ok := r.desc.Table(tableName); ok {
				if _, ok := table.Column(name); ok {
					return true
				}
			}
		}
		return false
	}
	for i := range r.desc.Tables {
		if _, ok := r.desc.Tables[i].Column(name); ok {
			return true
		}
	}
	return false
}
