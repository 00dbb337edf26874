// Package nlquery turns an English question into a validated,
// read-only PostgreSQL query and a natural-language summary of its
// results. The pipeline is a bounded-retry state machine: generation
// is retried only when the deterministic validator rejects a
// candidate, never after an execution failure.
package nlquery

import (
	"context"
	"fmt"

	"github.com/invdb/agent/executor"
	"github.com/invdb/agent/nlquery/prompts"
	"github.com/invdb/agent/schema"
	"github.com/invdb/agent/validator"
)

// Runner executes an accepted statement. Satisfied by executor.Executor.
type Runner interface {
	Run(ctx context.Context, stmt string) (*executor.Result, *executor.Failure)
}

// pipeline states. Failed is reachable from any state by returning a
// Failure; Done is the only other terminal state.
type state int

const (
	stateInit state = iota
	stateRefining
	stateGenerating
	stateValidating
	stateExecuting
	stateRegenerating
	stateSummarizing
	stateDone
)

// Engine sequences the pipeline stages for one question at a time.
// It holds no per-request state, so one Engine serves concurrent
// sessions.
type Engine struct {
	model       Model
	runner      Runner
	maxAttempts int
}

// NewEngine creates an Engine with the given generation attempt bound.
func NewEngine(model Model, runner Runner, maxAttempts int) *Engine {
	return &Engine{model: model, runner: runner, maxAttempts: maxAttempts}
}

// Run processes one question against a fixed schema snapshot.
// On success the Response carries the result set and any insight; on
// failure the returned Failure carries the specific reason and no
// partial results are surfaced.
func (e *Engine) Run(ctx context.Context, question string, desc *schema.Descriptor) (*Response, *Failure) {
	if desc == nil || len(desc.Tables) == 0 {
		return nil, &Failure{
			Kind:    KindSchemaUnavailable,
			Message: "no schema available; check the database connection and try again later",
		}
	}

	pb := prompts.NewPromptBuilder(prompts.Render(desc))
	resp := &Response{Question: question}

	var (
		candidate Candidate
		verdict   validator.Verdict
	)

	st := stateInit
	for {
		switch st {
		case stateInit:
			st = stateRefining

		case stateRefining:
			// Refinement is advisory: any model failure passes the
			// raw question through unchanged.
			resp.RefinedQuestion = e.refine(ctx, pb, question, resp)
			st = stateGenerating

		case stateGenerating, stateRegenerating:
			var failure *Failure
			candidate, failure = e.generate(ctx, pb, resp.RefinedQuestion, verdict.Violations, candidate.Attempt)
			if failure != nil {
				return nil, failure
			}
			resp.Attempts = candidate.Attempt
			st = stateValidating

		case stateValidating:
			verdict = validator.Validate(candidate.Statement, desc)
			switch {
			case verdict.Accepted:
				resp.SQL = candidate.Statement
				st = stateExecuting
			case candidate.Attempt < e.maxAttempts:
				st = stateRegenerating
			default:
				return nil, &Failure{
					Kind:       KindValidationRejected,
					Message:    fmt.Sprintf("could not generate a safe query after %d attempts", candidate.Attempt),
					Violations: verdict.Violations,
				}
			}

		case stateExecuting:
			result, execFailure := e.runner.Run(ctx, candidate.Statement)
			if execFailure != nil {
				// Timeouts and execution errors are not evidence the
				// SQL is semantically wrong; never regenerate here.
				kind := KindExecutionError
				if execFailure.Kind == executor.KindTimeout {
					kind = KindTimeout
				}
				return nil, &Failure{Kind: kind, Message: execFailure.Message}
			}
			resp.Result = result
			st = stateSummarizing

		case stateSummarizing:
			// Insight failures degrade to a warning; the pipeline
			// still completes.
			e.summarize(ctx, pb, resp)
			st = stateDone

		case stateDone:
			return resp, nil
		}
	}
}

func (e *Engine) refine(ctx context.Context, pb *prompts.PromptBuilder, question string, resp *Response) string {
	refined, err := e.model.Generate(ctx, pb.BuildRefinerPrompt(question))
	if err != nil {
		resp.Warnings = append(resp.Warnings,
			fmt.Sprintf("prompt refinement unavailable, using the question as asked: %v", err))
		return question
	}
	if refined == "" {
		return question
	}
	return refined
}

func (e *Engine) generate(ctx context.Context, pb *prompts.PromptBuilder, request string,
	priorViolations []validator.Violation, attempt int) (Candidate, *Failure) {

	var violations []string
	for _, v := range priorViolations {
		violations = append(violations, v.String())
	}

	response, err := e.model.Generate(ctx, pb.BuildGeneratorPrompt(request, violations))
	if err != nil {
		return Candidate{}, &Failure{
			Kind:    KindModelUnavailable,
			Message: fmt.Sprintf("language model unavailable, try again later: %v", err),
		}
	}

	return Candidate{Statement: ExtractSQL(response), Attempt: attempt + 1}, nil
}
