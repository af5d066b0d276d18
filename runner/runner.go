package runner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/sweetpotato0/mcpx-agents/agent"
	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
	"github.com/sweetpotato0/mcpx-agents/message"
	"github.com/sweetpotato0/mcpx-agents/middleware"
	"github.com/sweetpotato0/mcpx-agents/pkg/telemetry"
	"github.com/sweetpotato0/mcpx-agents/tool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrMaxTurns is returned when the agent keeps calling tools past its turn limit.
var ErrMaxTurns = mcpxerrors.ErrMaxTurns

var errStopped = errors.New("runner: stream consumer stopped")

// Result is the outcome of one run.
type Result struct {
	// FinalOutput is the text of the last assistant message.
	FinalOutput string
	// NewItems holds every assistant and tool message produced by the run, in
	// order. The input history is not included.
	NewItems []*message.Message
	// Turns counts the LLM calls made.
	Turns int
}

// Runner executes agents with bounded concurrency
type Runner struct {
	semaphore chan struct{}
	tracer    trace.Tracer
}

// New creates a new runner
func New(maxConcurrency int) *Runner {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Runner{
		semaphore: make(chan struct{}, maxConcurrency),
		tracer:    telemetry.Tracer("github.com/sweetpotato0/mcpx-agents/runner"),
	}
}

// Run drives the agent over history until it answers without tool calls.
func (r *Runner) Run(ctx context.Context, ag *agent.Agent, history []*message.Message) (*Result, error) {
	return r.execute(ctx, ag, history, func(*message.Message) bool { return true })
}

// RunStream is Run yielding each new item as soon as it is produced. A
// failure is yielded last with a nil message.
func (r *Runner) RunStream(ctx context.Context, ag *agent.Agent, history []*message.Message) iter.Seq2[*message.Message, error] {
	return func(yield func(*message.Message, error) bool) {
		_, err := r.execute(ctx, ag, history, func(msg *message.Message) bool {
			return yield(msg, nil)
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(nil, err)
		}
	}
}

func (r *Runner) execute(ctx context.Context, ag *agent.Agent, history []*message.Message, emit func(*message.Message) bool) (*Result, error) {
	if ag == nil {
		return nil, fmt.Errorf("runner: agent is nil: %w", mcpxerrors.ErrInvalidInput)
	}

	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	mwCtx := middleware.NewContext(ctx)
	mwCtx.Agent = ag.Name()
	mwCtx.Messages = history
	mwCtx.Input = lastUserInput(history)

	var result *Result
	err := ag.Middlewares().Execute(mwCtx, func(mwCtx *middleware.Context) error {
		var err error
		result, err = r.loop(mwCtx.Context(), ag, mwCtx.Messages, emit)
		if result != nil && len(result.NewItems) > 0 {
			mwCtx.Response = result.NewItems[len(result.NewItems)-1]
		}
		return err
	})
	if err != nil {
		return result, err
	}
	if result == nil {
		return &Result{}, nil
	}
	return result, nil
}

func (r *Runner) loop(ctx context.Context, ag *agent.Agent, history []*message.Message, emit func(*message.Message) bool) (*Result, error) {
	msgs := make([]*message.Message, 0, len(history)+1)
	if ag.Instructions() != "" {
		msgs = append(msgs, message.NewMessage(message.RoleSystem, ag.Instructions()))
	}
	msgs = append(msgs, message.CloneMessages(history)...)

	schemas := ag.ToolSchemas()
	result := &Result{}

	for turn := 1; turn <= ag.MaxTurns(); turn++ {
		done, err := r.turn(ctx, ag, turn, &msgs, schemas, result, emit)
		if err != nil || done {
			return result, err
		}
	}

	return result, fmt.Errorf("runner: agent %s: %w (%d)", ag.Name(), ErrMaxTurns, ag.MaxTurns())
}

func (r *Runner) turn(ctx context.Context, ag *agent.Agent, turn int, msgs *[]*message.Message, schemas []map[string]any, result *Result, emit func(*message.Message) bool) (done bool, err error) {
	ctx, span := r.tracer.Start(ctx, "runner.turn", trace.WithAttributes(
		attribute.String("agent.name", ag.Name()),
		attribute.Int("agent.turn", turn),
	))
	defer func() { telemetry.End(span, err) }()

	resp, err := ag.LLM().Generate(ctx, &agent.GenerateRequest{Messages: *msgs, Tools: schemas})
	if err != nil {
		return false, fmt.Errorf("runner: generate: %w", err)
	}
	if resp == nil {
		return false, errors.New("runner: generate returned no message")
	}
	if resp.Role == "" {
		resp.Role = message.RoleAssistant
	}
	result.Turns = turn

	if !r.record(msgs, result, resp, emit) {
		return true, errStopped
	}
	if !resp.HasToolCalls() {
		result.FinalOutput = resp.Text()
		return true, nil
	}

	span.SetAttributes(attribute.Int("agent.tool_calls", len(resp.ToolCalls)))
	for _, call := range resp.ToolCalls {
		output := invoke(ctx, ag, call)
		if !r.record(msgs, result, message.NewToolResponseMessage(call.ID, call.Name, output), emit) {
			return true, errStopped
		}
	}
	return false, nil
}

func (r *Runner) record(msgs *[]*message.Message, result *Result, msg *message.Message, emit func(*message.Message) bool) bool {
	*msgs = append(*msgs, msg)
	result.NewItems = append(result.NewItems, msg)
	return emit(msg)
}

// invoke runs one tool call. Unknown tools and panics are reported to the
// model as text so the loop can continue.
func invoke(ctx context.Context, ag *agent.Agent, call message.ToolCall) (output string) {
	t, ok := ag.Tool(call.Name)
	if !ok {
		return fmt.Sprintf("tool %s not found", call.Name)
	}
	defer func() {
		if p := recover(); p != nil {
			output = tool.Result{Tool: call.Name, Err: fmt.Errorf("panic: %v", p)}.Text()
		}
	}()
	return t.Invoke(ctx, call.Arguments)
}

func lastUserInput(history []*message.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i] != nil && history[i].Role == message.RoleUser {
			return history[i].Text()
		}
	}
	return ""
}

// Task is one agent run of a parallel batch.
type Task struct {
	ID      string
	Agent   *agent.Agent
	History []*message.Message
}

// TaskResult is the outcome of a Task.
type TaskResult struct {
	TaskID string
	Result *Result
	Error  error
}

// RunParallel executes tasks concurrently, bounded by the runner's limit.
// Results are returned in task order.
func (r *Runner) RunParallel(ctx context.Context, tasks []*Task) []*TaskResult {
	results := make([]*TaskResult, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(index int, t *Task) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					results[index] = &TaskResult{TaskID: t.ID, Error: fmt.Errorf("panic in task %s: %v", t.ID, p)}
				}
			}()

			res, err := r.Run(ctx, t.Agent, t.History)
			results[index] = &TaskResult{TaskID: t.ID, Result: res, Error: err}
		}(i, task)
	}

	wg.Wait()
	return results
}
