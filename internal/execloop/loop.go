// Package execloop implements the bounded-retry loop that turns a natural
// language question into compiled SQL: generate intent, validate, compile,
// and on failure re-prompt the LLM with a recovery prompt built from the
// taxonomy-classified error — aborting early if the same error class
// repeats (spec.md §4.5, grounded on the original engine's
// execution_loop/loop.rs and error_recovery.rs, and on the teacher's
// internal/brain/explore_agent.go doom-loop guard).
package execloop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/veridata-labs/semquery/common/llm"
	"github.com/veridata-labs/semquery/internal/compiler"
	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/intent"
	"github.com/veridata-labs/semquery/internal/observability"
	"github.com/veridata-labs/semquery/internal/semantic"
)

// Loop is a bounded-retry executor over LLM intent generation.
type Loop struct {
	MaxAttempts      int
	AbortOnRepeat    bool
	Client           llm.Client
	Registry         *semantic.Registry
	Compiler         *compiler.Compiler
	Guards           intent.Guards
	Log              *observability.ExecutionLogStore
}

// Result is a successful execution's output.
type Result struct {
	Intent   intent.SemanticSQLIntent
	Compiled compiler.Compiled
	Attempts int
}

// New constructs a Loop with its required collaborators.
func New(client llm.Client, reg *semantic.Registry, guards intent.Guards) *Loop {
	return &Loop{
		MaxAttempts:   3,
		AbortOnRepeat: true,
		Client:        client,
		Registry:      reg,
		Compiler:      compiler.New(reg),
		Guards:        guards,
		Log:           observability.NewExecutionLogStore(),
	}
}

// Execute runs the loop for a single natural-language query.
func (l *Loop) Execute(ctx context.Context, queryID, userQuery, role string) (Result, error) {
	var previousClass errtax.Class
	var previousIntent intent.SemanticSQLIntent

	for attempt := 1; attempt <= l.MaxAttempts; attempt++ {
		entry := observability.NewExecutionLogEntry(queryID, userQuery).WithAttempt(attempt)
		start := time.Now()

		prompt := l.buildPrompt(userQuery, attempt, previousClass, previousIntent)

		in, err := l.generateIntent(ctx, prompt, role)
		if err != nil {
			class := errtax.ClassOf(err)
			l.Log.Add(entry.WithError(class, err.Error()))
			if l.shouldAbort(class, previousClass) {
				return Result{}, err
			}
			previousClass = class
			continue
		}
		entry = entry.WithIntent(in)

		if err := intent.Validate(in, l.Registry); err != nil {
			class := errtax.ClassOf(err)
			l.Log.Add(entry.WithError(class, err.Error()))
			if l.shouldAbort(class, previousClass) {
				return Result{}, err
			}
			previousClass = class
			previousIntent = in
			continue
		}

		if err := l.Guards.Validate(in, l.Registry); err != nil {
			class := errtax.ClassOf(err)
			l.Log.Add(entry.WithError(class, err.Error()))
			if l.shouldAbort(class, previousClass) {
				return Result{}, err
			}
			previousClass = class
			previousIntent = in
			continue
		}

		compiled, err := l.Compiler.Compile(in)
		if err != nil {
			class := errtax.ClassOf(err)
			l.Log.Add(entry.WithError(class, err.Error()))
			if l.shouldAbort(class, previousClass) {
				return Result{}, err
			}
			previousClass = class
			previousIntent = in
			continue
		}

		l.Log.Add(entry.WithSuccess(compiled.SQL, time.Since(start)))
		return Result{Intent: in, Compiled: compiled, Attempts: attempt}, nil
	}

	return Result{}, errtax.New(errtax.ExecutionError, "max retries (%d) exceeded for query %q", l.MaxAttempts, queryID)
}

// shouldAbort stops the loop early when the same error class repeats —
// re-prompting again would almost certainly reproduce it.
func (l *Loop) shouldAbort(current, previous errtax.Class) bool {
	if !l.AbortOnRepeat || previous == "" {
		return false
	}
	return current == previous
}

func (l *Loop) generateIntent(ctx context.Context, prompt, role string) (intent.SemanticSQLIntent, error) {
	var result intent.SemanticSQLIntent
	_, err := l.Client.Chat(ctx, llm.Request{
		SystemPrompt: "You are a SQL intent generator. Produce a structured semantic SQL intent from the user's question. Do not specify join types; the compiler determines them. For each dimension, set usage to 'select', 'filter', or 'both'.",
		UserPrompt:   prompt,
		SchemaName:   "semantic_sql_intent",
		Schema:       llm.GenerateSchema[intent.SemanticSQLIntent](),
		Temperature:  llm.Temp(0),
	}, &result)
	if err != nil {
		return intent.SemanticSQLIntent{}, errtax.Wrap(errtax.CompilerError, err)
	}
	result.Role = role
	return result, nil
}

// buildPrompt assembles the user prompt, prepending a recovery section on
// retries (spec.md §4.5.1).
func (l *Loop) buildPrompt(userQuery string, attempt int, prevClass errtax.Class, prevIntent intent.SemanticSQLIntent) string {
	if attempt == 1 || prevClass == "" {
		return fmt.Sprintf("USER QUESTION: %s\n\nAvailable metrics: %s\nAvailable dimensions: %s",
			userQuery, strings.Join(l.Registry.ListMetrics(), ", "), strings.Join(l.Registry.ListDimensions(), ", "))
	}
	return buildRecoveryPrompt(l.Registry, prevClass, prevIntent, attempt) + "\n\n" + userQuery
}
