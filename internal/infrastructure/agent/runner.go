package agent

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/agentdeck/backend/internal/config"
	"github.com/agentdeck/backend/internal/domain"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
)

const (
	// Agent output lines can carry large tool payloads.
	maxLineBytes = 1024 * 1024

	// How much stderr to retain for failure diagnostics.
	stderrTailBytes = 4096

	envPrefix = "AGENTDECK_"
)

// Runner executes one agent process per task and decodes its streamed
// output. It implements ports.AgentRunner.
type Runner struct {
	cfg config.AgentConfig
	log *logger.Logger
}

func NewRunner(cfg config.AgentConfig, log *logger.Logger) *Runner {
	return &Runner{cfg: cfg, log: log}
}

// Run spawns the agent binary for the task's provider and blocks until the
// process exits or ctx is cancelled. Decoded events are delivered to onEvent
// in stdout order. On cancellation the process is asked to stop with SIGTERM
// and killed after the configured grace period.
func (r *Runner) Run(ctx context.Context, task *domain.Task, onEvent func(domain.StreamEvent)) (*domain.TaskResult, error) {
	binary := r.cfg.BinaryFor(task.Provider)

	cmd := exec.Command(binary, "-p", task.Prompt, "--output-format", "stream-json", "--verbose")
	cmd.Dir = task.WorkDir
	if cmd.Dir == "" {
		cmd.Dir = r.cfg.DefaultWorkDir
	}
	cmd.Env = sanitizedEnv(os.Environ())
	// Own process group so termination reaches the agent's children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("agent stdout pipe: %w", err)
	}
	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", binary, err)
	}
	r.log.Infow("agent_spawned", "task_id", task.ID, "binary", binary, "pid", cmd.Process.Pid)

	// Supervise: on cancellation, graceful stop then kill.
	stopSupervise := make(chan struct{})
	defer close(stopSupervise)
	go func() {
		select {
		case <-ctx.Done():
			r.terminate(cmd, task.ID)
		case <-stopSupervise:
		}
	}()

	decoder := NewDecoder()
	var final *domain.FinalResult
	malformed := 0

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		for _, ev := range decoder.Decode(line) {
			if ev.Kind == domain.EventMalformed {
				malformed++
				continue
			}
			if ev.Kind == domain.EventFinalResult {
				final = ev.Final
			}
			onEvent(ev)
		}
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()

	if malformed > 0 {
		r.log.Warnw("agent_malformed_lines", "task_id", task.ID, "count", malformed)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if waitErr != nil {
		return nil, fmt.Errorf("agent exited: %w%s", waitErr, stderrSuffix(stderr))
	}
	if scanErr != nil {
		return nil, fmt.Errorf("agent stream: %w", scanErr)
	}

	result := &domain.TaskResult{
		DurationMS: time.Since(start).Milliseconds(),
	}
	if final != nil {
		result.Model = final.Model
		result.CostUSD = final.CostUSD
		if final.DurationMS > 0 {
			result.DurationMS = final.DurationMS
		}
	}
	return result, nil
}

// terminate asks the process to stop and escalates to SIGKILL if it does not
// exit within the grace period.
func (r *Runner) terminate(cmd *exec.Cmd, taskID uint64) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	r.log.Infow("agent_terminating", "task_id", taskID, "pid", pid)
	_ = syscall.Kill(-pid, syscall.SIGTERM)

	grace := r.cfg.KillGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	time.AfterFunc(grace, func() {
		_ = syscall.Kill(-pid, syscall.SIGKILL)
	})
}

// sanitizedEnv strips our own variables so a spawned agent that happens to
// call back into this server cannot inherit its configuration.
func sanitizedEnv(env []string) []string {
	out := env[:0:0]
	for _, kv := range env {
		if strings.HasPrefix(kv, envPrefix) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func stderrSuffix(tail *tailBuffer) string {
	s := strings.TrimSpace(tail.String())
	if s == "" {
		return ""
	}
	return ": " + s
}

// tailBuffer keeps the last n bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
