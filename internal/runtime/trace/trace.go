// Package trace records the ordered audit log returned alongside every answer.
package trace

import (
	"sync"
	"time"
)

// Step is one audit record. Optional fields are omitted when unset.
type Step struct {
	Name       string      `json:"name"`
	Result     interface{} `json:"result,omitempty"`
	Confidence *float64    `json:"confidence,omitempty"`
	Note       string      `json:"note,omitempty"`
	LatencyMS  *int64      `json:"latency_ms,omitempty"`
	Failed     bool        `json:"failed,omitempty"`
}

// WithConfidence sets the step confidence.
func (s Step) WithConfidence(c float64) Step {
	s.Confidence = &c
	return s
}

// WithLatency sets the step latency, truncated to milliseconds.
func (s Step) WithLatency(d time.Duration) Step {
	ms := d.Milliseconds()
	s.LatencyMS = &ms
	return s
}

// Trace is an append-only step log. It is safe for concurrent appends.
type Trace struct {
	mu    sync.Mutex
	steps []Step
}

func New() *Trace {
	return &Trace{}
}

func (t *Trace) Append(s Step) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, s)
}

// Steps returns a copy of the recorded steps in append order.
func (t *Trace) Steps() []Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Step, len(t.steps))
	copy(out, t.steps)
	return out
}

func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.steps)
}

// Document is the serialized trace contract returned to callers.
type Document struct {
	Plan      string                 `json:"plan"`
	Steps     []Step                 `json:"steps"`
	Providers []string               `json:"providers"`
	Metrics   map[string]interface{} `json:"metrics"`
}

// Document assembles the caller-facing trace. Nil slices and maps are
// replaced with empty ones so the shape is stable.
func (t *Trace) Document(plan string, providers []string, metrics map[string]interface{}) Document {
	if providers == nil {
		providers = []string{}
	}
	if metrics == nil {
		metrics = map[string]interface{}{}
	}
	return Document{Plan: plan, Steps: t.Steps(), Providers: providers, Metrics: metrics}
}
