// Package prompts handles the construction of prompts for the LLM.
package prompts

import (
	"fmt"
	"strings"
)

// PromptBuilder assembles the prompts for each pipeline stage around a
// fixed schema snapshot.
type PromptBuilder struct {
	schemaText string
}

// NewPromptBuilder creates a PromptBuilder grounded on the given
// schema text (see Render).
func NewPromptBuilder(schemaText string) *PromptBuilder {
	return &PromptBuilder{schemaText: schemaText}
}

// BuildRefinerPrompt creates the prompt that restates a raw question
// as an unambiguous request grounded in the schema.
func (pb *PromptBuilder) BuildRefinerPrompt(question string) string {
	return fmt.Sprintf(`You are a prompt clarifier for a PostgreSQL query assistant. Restate the user's request as one clear, unambiguous sentence that a SQL generator can act on.

Rules:
1. Resolve relative time references into concrete date ranges (e.g., "last year" -> the actual year)
2. Replace vague quantities with concrete ones where the intent is clear
3. Name the concrete tables and columns from the schema below when you can infer them confidently
4. Do NOT write SQL and do NOT answer the question
5. If the request is already clear, restate it as-is
6. Respond with the restated request only, no preamble

Database schema:
%s

User's request: %s`, pb.schemaText, question)
}

// BuildGeneratorPrompt creates the SQL generation prompt. Violations
// from a rejected earlier attempt are fed back as corrective context.
func (pb *PromptBuilder) BuildGeneratorPrompt(request string, violations []string) string {
	var correction string
	if len(violations) > 0 {
		correction = fmt.Sprintf(`
Your previous attempt was rejected for these reasons:
%s

Generate a corrected query that avoids every one of them.
`, "- "+strings.Join(violations, "\n- "))
	}

	return fmt.Sprintf(`You are a SQL query generator for a PostgreSQL database. Follow these rules strictly:

1. Produce a single SELECT statement only (no DML, no DDL, no multiple statements)
2. Use ONLY tables and columns present in the schema below; never invent names
3. Do NOT invent joins or relationships not present in the schema
4. Use PostgreSQL syntax: EXTRACT for date parts, INTERVAL arithmetic, 'YYYY-MM-DD' date literals
5. Never use column aliases in WHERE, GROUP BY, or HAVING; repeat the full expression
6. If more than one table is referenced, list columns explicitly instead of SELECT *
   and disambiguate duplicate names with table aliases
7. Do NOT add LIMIT unless the user asked for it
8. Respond with the SQL only, in a single code block

Database schema:
%s
%s
Generate a SQL query for this request: %s`, pb.schemaText, correction, request)
}

// BuildInsightPrompt creates the prompt for summarizing a non-empty
// result set.
func (pb *PromptBuilder) BuildInsightPrompt(question, resultSummary string) string {
	return fmt.Sprintf(`You are a data analyst. Given a user's question and a summary of the query results, produce at most 3 short factual insights.

Rules:
1. Each insight is 1-2 sentences and includes numbers where relevant
2. No speculation, no charts, no follow-up questions or offers of help
3. Respond with the insights only

Original request: %s

Query results summary:
%s`, question, resultSummary)
}

// BuildEmptyResultPrompt creates the prompt explaining a result with
// zero rows.
func (pb *PromptBuilder) BuildEmptyResultPrompt(question string, columns []string) string {
	cols := "N/A"
	if len(columns) > 0 {
		cols = strings.Join(columns, ", ")
	}
	return fmt.Sprintf(`A PostgreSQL query ran successfully but returned 0 rows.

Original request: %s
Columns that would have been returned: %s

Explain in 1-2 sentences what the empty result means in the context of the user's question. No follow-up questions.`, question, cols)
}
