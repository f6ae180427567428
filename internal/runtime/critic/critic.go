// Package critic applies a structural gate to executor results before they
// are turned into an answer.
package critic

import (
	"fmt"

	"shopping-agent/internal/runtime/executor"
	"shopping-agent/internal/runtime/trace"
)

// Review is the critic's verdict. FixHint is set only when OK is false.
type Review struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	FixHint string `json:"fix_hint,omitempty"`
}

func pass() Review {
	return Review{OK: true, Message: "result passed structural checks"}
}

func fail(message, hint string) Review {
	return Review{Message: message, FixHint: hint}
}

// Check reviews result and the trace that produced it. An empty item list
// passes; a missing or malformed one does not.
func Check(result *executor.Result, tr *trace.Trace) Review {
	if result == nil || result.Output == nil {
		return fail("result is missing", "the executor returned no output; check tool registration")
	}
	raw, present := result.Output["items"]
	if !present || raw == nil {
		return fail("result has no item list", "tool output must contain an items array")
	}
	items, ok := raw.([]interface{})
	if !ok {
		return fail("result items are not a list", fmt.Sprintf("tool output items has type %T", raw))
	}
	for i, it := range items {
		item, ok := it.(map[string]interface{})
		if !ok {
			return fail(fmt.Sprintf("item %d is not an object", i), "tool output items must be objects")
		}
		for _, field := range []string{"title", "url"} {
			if s, _ := item[field].(string); s == "" {
				return fail(fmt.Sprintf("item %d has no %s", i, field), "drop items without title or url before returning them")
			}
		}
	}
	if tr == nil || tr.Len() == 0 {
		return fail("trace is empty", "every executed step must append a trace record")
	}
	return pass()
}
