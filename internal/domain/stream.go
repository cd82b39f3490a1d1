package domain

import "strings"

// StreamEventKind is the closed set of decoded stream variants. Anything the
// decoder cannot place in this set is Malformed and dropped.
type StreamEventKind string

const (
	EventTextDelta      StreamEventKind = "text-delta"
	EventReasoningDelta StreamEventKind = "reasoning-delta"
	EventToolInvocation StreamEventKind = "tool-invocation"
	EventFinalResult    StreamEventKind = "final-result"
	EventMalformed      StreamEventKind = "malformed"
)

// StreamEvent is one decoded unit from the agent's output stream.
type StreamEvent struct {
	Kind  StreamEventKind `json:"kind"`
	Text  string          `json:"text,omitempty"` // text or reasoning delta
	Tool  *ToolInvocation `json:"tool,omitempty"`
	Final *FinalResult    `json:"final,omitempty"`
}

// ToolInvocation records one tool call with its input serialized as a
// compact string.
type ToolInvocation struct {
	Name  string `json:"name"`
	Input string `json:"input"`
}

// FinalResult is the terminal event of a run.
type FinalResult struct {
	Model      string  `json:"model"`
	CostUSD    float64 `json:"cost_usd"`
	DurationMS int64   `json:"duration_ms"`
}

// Phase is a coarse progress indicator derived from accumulated content.
type Phase string

const (
	PhaseThinking   Phase = "thinking"
	PhaseToolUse    Phase = "tool_use"
	PhaseResponding Phase = "responding"
)

// StreamAccumulator folds decoded events into the aggregate a task result is
// built from. It is not safe for concurrent use; each run owns one.
type StreamAccumulator struct {
	text      strings.Builder
	reasoning strings.Builder
	tools     []ToolInvocation
	final     *FinalResult
	malformed int
}

func (a *StreamAccumulator) Add(ev StreamEvent) {
	switch ev.Kind {
	case EventTextDelta:
		a.text.WriteString(ev.Text)
	case EventReasoningDelta:
		a.reasoning.WriteString(ev.Text)
	case EventToolInvocation:
		if ev.Tool != nil {
			a.tools = append(a.tools, *ev.Tool)
		}
	case EventFinalResult:
		if ev.Final != nil {
			a.final = ev.Final
		}
	case EventMalformed:
		a.malformed++
	}
}

// Text returns the concatenated text deltas trimmed of surrounding whitespace.
func (a *StreamAccumulator) Text() string {
	return strings.TrimSpace(a.text.String())
}

// Reasoning returns the concatenated thinking deltas, kept separate from text.
func (a *StreamAccumulator) Reasoning() string {
	return strings.TrimSpace(a.reasoning.String())
}

// Tools returns tool invocations in arrival order.
func (a *StreamAccumulator) Tools() []ToolInvocation {
	return a.tools
}

// Final returns the terminal result event, or nil if none was seen.
func (a *StreamAccumulator) Final() *FinalResult {
	return a.final
}

// Malformed returns the count of dropped undecodable lines.
func (a *StreamAccumulator) Malformed() int {
	return a.malformed
}

// Phase derives the progress tag with strict priority: any tool invocation
// wins, then reasoning without text, then the responding default.
func (a *StreamAccumulator) Phase() Phase {
	if len(a.tools) > 0 {
		return PhaseToolUse
	}
	if a.reasoning.Len() > 0 && a.text.Len() == 0 {
		return PhaseThinking
	}
	return PhaseResponding
}
