// Package executor runs a plan's steps against the tool registry.
package executor

import (
	"context"
	"time"

	apperrors "shopping-agent/internal/common/errors"
	"shopping-agent/internal/common/metrics"
	"shopping-agent/internal/common/observability"
	"shopping-agent/internal/runtime/planner"
	"shopping-agent/internal/runtime/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Invoker dispatches a named tool; *tools.Registry implements it.
type Invoker interface {
	Invoke(ctx context.Context, name string, input map[string]interface{}) (map[string]interface{}, error)
}

type StepFailure struct {
	Tool  string `json:"tool"`
	Error string `json:"error"`
}

// Result is the output of the last executed step. Degraded is set when any
// step failed and an empty item list stands in for its output.
type Result struct {
	Tool     string                 `json:"tool"`
	Output   map[string]interface{} `json:"output"`
	Degraded bool                   `json:"degraded"`
	Failures []StepFailure          `json:"failures,omitempty"`
}

// Items returns the result's item list, or nil when absent or malformed.
func (r *Result) Items() []interface{} {
	if r == nil || r.Output == nil {
		return nil
	}
	items, _ := r.Output["items"].([]interface{})
	return items
}

type Executor struct {
	tools  Invoker
	obs    *observability.Observability
	logger Logger
}

func New(tools Invoker, obs *observability.Observability, log Logger) *Executor {
	return &Executor{
		tools: tools,
		obs:   obs,
		logger: log.With(map[string]interface{}{
			"component": "executor",
		}),
	}
}

func emptyOutput() map[string]interface{} {
	return map[string]interface{}{"items": []interface{}{}}
}

// RunPlan executes steps in order and appends one trace step per tool call.
//
// A step naming an unregistered tool is recorded and skipped; the
// TOOL_NOT_FOUND error is returned once the remaining steps have run. A
// schema violation aborts the plan. Any other tool failure degrades that step
// to an empty item list and execution continues.
func (e *Executor) RunPlan(ctx context.Context, plan planner.Plan, tr *trace.Trace) (*Result, error) {
	result := &Result{Output: emptyOutput()}
	var notFound error

	for _, step := range plan.Steps {
		out, err := e.runStep(ctx, step, tr)
		result.Tool = step.ToolName
		switch {
		case err == nil:
			result.Output = out
		case apperrors.IsCode(err, apperrors.ErrCodeToolNotFound):
			result.Failures = append(result.Failures, StepFailure{Tool: step.ToolName, Error: err.Error()})
			result.Output = emptyOutput()
			result.Degraded = true
			if notFound == nil {
				notFound = err
			}
		case apperrors.IsCode(err, apperrors.ErrCodeSchemaMismatch):
			result.Failures = append(result.Failures, StepFailure{Tool: step.ToolName, Error: err.Error()})
			result.Output = emptyOutput()
			result.Degraded = true
			return result, err
		default:
			result.Failures = append(result.Failures, StepFailure{Tool: step.ToolName, Error: err.Error()})
			result.Output = emptyOutput()
			result.Degraded = true
		}
	}
	return result, notFound
}

func (e *Executor) runStep(ctx context.Context, step planner.Step, tr *trace.Trace) (map[string]interface{}, error) {
	ctx, span := e.obs.StartSpan(ctx, "executor.step", attribute.String("tool", step.ToolName))
	defer span.End()

	start := time.Now()
	out, err := e.tools.Invoke(ctx, step.ToolName, step.Inputs)
	elapsed := time.Since(start)

	metrics.ToolDuration.WithLabelValues(step.ToolName).Observe(elapsed.Seconds())
	record := trace.Step{Name: step.ToolName}.WithLatency(elapsed)

	if err != nil {
		status := "failed"
		if se, ok := apperrors.AsStandard(err); ok {
			status = string(se.Code)
		}
		metrics.ToolInvocations.WithLabelValues(step.ToolName, status).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		record.Failed = true
		record.Note = err.Error()
		tr.Append(record)

		e.logger.Warn("tool step failed", map[string]interface{}{
			"tool":      step.ToolName,
			"status":    status,
			"error":     err.Error(),
			"latencyMs": elapsed.Milliseconds(),
		})
		return nil, err
	}

	metrics.ToolInvocations.WithLabelValues(step.ToolName, "ok").Inc()
	items, _ := out["items"].([]interface{})
	record.Result = map[string]interface{}{"items": len(items)}
	tr.Append(record)

	e.logger.Info("tool step completed", map[string]interface{}{
		"tool":      step.ToolName,
		"items":     len(items),
		"latencyMs": elapsed.Milliseconds(),
	})
	return out, nil
}
