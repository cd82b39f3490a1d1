package agent

import (
	"bytes"
	"encoding/json"

	"github.com/agentdeck/backend/internal/domain"
)

// Decoder turns one line of the agent's stream-json output into zero or more
// structured events. A line that cannot be decoded yields a single Malformed
// event and never aborts the run.
//
// The wire format is the CLI's stream-json protocol: one JSON object per
// line, `type` discriminated. Assistant messages carry content blocks
// (text / thinking / tool_use); the terminal `result` object carries model,
// cost and wall-clock duration.
type Decoder struct {
	model string // last model seen on an assistant message
}

type streamLine struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`

	Message *struct {
		Model   string         `json:"model"`
		Content []contentBlock `json:"content"`
	} `json:"message"`

	// result fields
	Model        string  `json:"model"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	DurationMS   int64   `json:"duration_ms"`
}

type contentBlock struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Thinking string          `json:"thinking"`
	Name     string          `json:"name"`
	Input    json.RawMessage `json:"input"`
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses one line. Unknown-but-valid event types (system, user echo)
// yield no events; undecodable input yields exactly one Malformed event.
func (d *Decoder) Decode(line []byte) []domain.StreamEvent {
	if len(line) == 0 {
		return nil
	}

	var msg streamLine
	if err := json.Unmarshal(line, &msg); err != nil {
		return []domain.StreamEvent{{Kind: domain.EventMalformed}}
	}

	switch msg.Type {
	case "assistant":
		if msg.Message == nil {
			return []domain.StreamEvent{{Kind: domain.EventMalformed}}
		}
		if msg.Message.Model != "" {
			d.model = msg.Message.Model
		}
		return d.decodeContent(msg.Message.Content)

	case "result":
		model := msg.Model
		if model == "" {
			model = d.model
		}
		return []domain.StreamEvent{{
			Kind: domain.EventFinalResult,
			Final: &domain.FinalResult{
				Model:      model,
				CostUSD:    msg.TotalCostUSD,
				DurationMS: msg.DurationMS,
			},
		}}

	case "":
		return []domain.StreamEvent{{Kind: domain.EventMalformed}}

	default:
		// Recognized envelope, uninteresting type.
		return nil
	}
}

func (d *Decoder) decodeContent(blocks []contentBlock) []domain.StreamEvent {
	var events []domain.StreamEvent
	for _, b := range blocks {
		switch b.Type {
		case "text":
			events = append(events, domain.StreamEvent{
				Kind: domain.EventTextDelta,
				Text: b.Text,
			})
		case "thinking":
			events = append(events, domain.StreamEvent{
				Kind: domain.EventReasoningDelta,
				Text: b.Thinking,
			})
		case "tool_use":
			events = append(events, domain.StreamEvent{
				Kind: domain.EventToolInvocation,
				Tool: &domain.ToolInvocation{
					Name:  b.Name,
					Input: compactInput(b.Input),
				},
			})
		}
	}
	return events
}

// compactInput serializes a tool input as a compact string. Inputs that are
// already JSON strings are unwrapped rather than double-quoted.
func compactInput(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
