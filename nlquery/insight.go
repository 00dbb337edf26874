package nlquery

import (
	"context"
	"fmt"
	"strings"

	"github.com/invdb/agent/executor"
	"github.com/invdb/agent/nlquery/prompts"
)

// insightKeywords mark a request as analytical; their presence makes
// the result eligible for an insight regardless of shape.
var insightKeywords = []string{
	"trend", "compare", "analysis", "insight", "summary",
	"top", "breakdown", "average", "mean", "median", "percent",
	"total", "count", "over", "under", "exceed", "below",
}

const emptyResultFallback = "No data matched your query criteria. This could mean the conditions specified don't apply to any records in the database."

// summarize fills in resp.Insight according to the eligibility policy:
// an empty result always gets an explanation; otherwise an insight is
// produced only for results with at least 3 rows and a numeric column,
// or for analytical requests. Model failures degrade to a warning.
func (e *Engine) summarize(ctx context.Context, pb *prompts.PromptBuilder, resp *Response) {
	result := resp.Result

	if result.RowCount == 0 {
		insight, err := e.model.Generate(ctx, pb.BuildEmptyResultPrompt(resp.Question, result.Columns))
		if err != nil || len(insight) <= 10 {
			resp.Insight = emptyResultFallback
			if err != nil {
				resp.Warnings = append(resp.Warnings, fmt.Sprintf("insight generation failed: %v", err))
			}
			return
		}
		resp.Insight = insight
		return
	}

	if !insightEligible(resp.RefinedQuestion, result) {
		return
	}

	insight, err := e.model.Generate(ctx, pb.BuildInsightPrompt(resp.Question, summarizeResult(result)))
	if err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("insight generation failed: %v", err))
		return
	}
	if len(insight) > 10 && !strings.Contains(strings.ToLower(insight), "no insight") {
		resp.Insight = insight
	}
}

// insightEligible applies the non-empty-result part of the policy.
func insightEligible(request string, result *executor.Result) bool {
	if result.RowCount >= 3 && len(result.NumericColumns()) > 0 {
		return true
	}

	lower := strings.ToLower(request)
	for _, kw := range insightKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// summarizeResult renders a compact text view of the result for the
// insight prompt: shape, a sample of rows, and basic numeric stats.
func summarizeResult(result *executor.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Result has %d rows", result.RowCount)
	if result.Truncated {
		b.WriteString(" (display cap applied, more rows exist)")
	}
	fmt.Fprintf(&b, " and columns: %s\n", strings.Join(result.Columns, ", "))

	sample := result.Rows
	if len(sample) > 10 {
		sample = sample[:10]
	}
	b.WriteString("\nFirst rows:\n")
	for _, row := range sample {
		cells := make([]string, len(row))
		for i, val := range row {
			if val == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprintf("%v", val)
			}
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}

	numeric := result.NumericColumns()
	if len(numeric) > 0 {
		b.WriteString("\nNumeric column stats:\n")
		for _, col := range numeric {
			min, max, avg, n := columnStats(result.Rows, col)
			if n > 0 {
				fmt.Fprintf(&b, "%s: min=%g max=%g avg=%g\n", result.Columns[col], min, max, avg)
			}
		}
	}

	return b.String()
}

func columnStats(rows [][]any, col int) (min, max, avg float64, n int) {
	var sum float64
	for _, row := range rows {
		var v float64
		switch val := row[col].(type) {
		case int64:
			v = float64(val)
		case float64:
			v = val
		default:
			continue
		}
		if n == 0 || v < min {
			min = v
		}
		if n == 0 || v > max {
			max = v
		}
		sum += v
		n++
	}
	if n > 0 {
		avg = sum / float64(n)
	}
	return min, max, avg, n
}
