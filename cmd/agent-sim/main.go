// agent-sim emulates the agent CLI's stream-json output for local
// development and testing. It accepts the same invocation shape as the real
// binary (-p prompt --output-format stream-json --verbose) and plays back a
// short run: a thinking block, a tool call, a text reply and a final result.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"
)

func main() {
	prompt := flag.String("p", "", "prompt")
	outputFormat := flag.String("output-format", "stream-json", "output format")
	_ = flag.Bool("verbose", false, "verbose output")
	delay := flag.Duration("delay", 50*time.Millisecond, "delay between lines")
	fail := flag.Bool("fail", false, "exit non-zero after emitting stderr diagnostics")
	flag.Parse()

	if *outputFormat != "stream-json" {
		fmt.Fprintln(os.Stderr, "agent-sim: only stream-json output is supported")
		os.Exit(2)
	}

	if *fail {
		fmt.Fprintln(os.Stderr, "agent-sim: simulated failure")
		os.Exit(1)
	}

	start := time.Now()
	emit := func(v any) {
		b, err := json.Marshal(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "agent-sim: marshal: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(append(b, '\n'))
		time.Sleep(*delay)
	}

	assistant := func(blocks ...map[string]any) map[string]any {
		return map[string]any{
			"type": "assistant",
			"message": map[string]any{
				"model":   "sim-1",
				"content": blocks,
			},
		}
	}

	emit(map[string]any{"type": "system", "subtype": "init"})
	emit(assistant(map[string]any{
		"type":     "thinking",
		"thinking": "Considering the request.",
	}))
	emit(assistant(map[string]any{
		"type":  "tool_use",
		"name":  "Read",
		"input": map[string]any{"file_path": "README.md"},
	}))
	emit(assistant(map[string]any{
		"type": "text",
		"text": fmt.Sprintf("Done: %s", *prompt),
	}))
	emit(map[string]any{
		"type":           "result",
		"subtype":        "success",
		"model":          "sim-1",
		"total_cost_usd": 0.0042,
		"duration_ms":    time.Since(start).Milliseconds(),
	})
}
