package transcode

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/srosecker/resonance-go/internal/metrics"
)

const (
	sigtermTimeout = 2 * time.Second
	sigkillTimeout = 1 * time.Second
)

// Stage is one command in a pipeline (e.g. a decoder piped into an
// encoder). Stages are joined by explicit reader/writer copy goroutines
// rather than os.Pipe chaining, so the same code works whether or not
// the platform lets an intermediate stage's stdout be read by anything
// but the next process directly.
type Stage struct {
	cmd *exec.Cmd
}

// Pipeline is a running chain of Stages plus the goroutines copying
// each stage's stdout pipe into the next stage's stdin pipe.
type Pipeline struct {
	stages []*Stage
	copiers sync.WaitGroup
	Stdout io.ReadCloser // the final stage's stdout
}

// BuildCommand substitutes $FILE$, $START$, $END$ in a rule's command
// template and splits it on "|" into one or more stage command lines.
// sourcePath is an absolute path; startS/endS are only substituted when
// hasStart/hasEnd are true (a seek was requested).
func BuildCommand(template, sourcePath string, hasStart bool, startS float64, hasEnd bool, endS float64) []string {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		abs = sourcePath
	}
	template = strings.ReplaceAll(template, "$FILE$", abs)

	if hasStart {
		template = strings.ReplaceAll(template, "$START$", fmt.Sprintf("-j %.3f", startS))
	} else {
		template = strings.ReplaceAll(template, "$START$", "")
	}
	if hasEnd {
		template = strings.ReplaceAll(template, "$END$", fmt.Sprintf("-e %.3f", endS))
	} else {
		template = strings.ReplaceAll(template, "$END$", "")
	}

	parts := strings.Split(template, "|")
	for i, p := range parts {
		parts[i] = strings.Join(strings.Fields(p), " ")
	}
	return parts
}

// ResolveBinary finds the executable named by a "[name]" placeholder: it
// checks toolsDir first, then falls back to the OS PATH, matching
// spec.md §4.4's resolution order.
func ResolveBinary(name, toolsDir string) (string, error) {
	if toolsDir != "" {
		candidate := filepath.Join(toolsDir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("transcode: binary %q not found in %s or PATH", name, toolsDir)
	}
	return path, nil
}

var bracketBinary = func(token string) (string, bool) {
	if strings.HasPrefix(token, "[") && strings.HasSuffix(token, "]") {
		return strings.TrimSuffix(strings.TrimPrefix(token, "["), "]"), true
	}
	return "", false
}

// BuildStageArgs resolves one pipeline stage's command line, substituting
// its [binary] placeholder with a real path.
func BuildStageArgs(stageLine, toolsDir string) ([]string, error) {
	fields := strings.Fields(stageLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("transcode: empty pipeline stage")
	}
	if name, ok := bracketBinary(fields[0]); ok {
		bin, err := ResolveBinary(name, toolsDir)
		if err != nil {
			return nil, err
		}
		fields[0] = bin
	}
	return fields, nil
}

// Launch starts every stage of a multi-process pipeline, wiring stage i's
// stdout pipe to stage i+1's stdin pipe through an explicit copy
// goroutine. It returns a Pipeline whose Stdout is the last stage's
// stdout and which must eventually be torn down with Terminate.
func Launch(stageLines []string, toolsDir string) (*Pipeline, error) {
	p := &Pipeline{}
	var prevStdout io.ReadCloser

	for i, line := range stageLines {
		args, err := BuildStageArgs(line, toolsDir)
		if err != nil {
			p.Terminate()
			return nil, err
		}
		cmd := exec.Command(args[0], args[1:]...)
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		cmd.Stderr = nil

		if prevStdout != nil {
			stdin, err := cmd.StdinPipe()
			if err != nil {
				p.Terminate()
				return nil, err
			}
			p.copiers.Add(1)
			go func(dst io.WriteCloser, src io.ReadCloser) {
				defer p.copiers.Done()
				defer dst.Close()
				if _, err := io.Copy(dst, src); err != nil {
					slog.Debug("transcode: pipe copy ended", "err", err)
				}
			}(stdin, prevStdout)
		}

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			p.Terminate()
			return nil, err
		}
		if err := cmd.Start(); err != nil {
			p.Terminate()
			return nil, fmt.Errorf("transcode: start stage %d (%s): %w", i, args[0], err)
		}
		p.stages = append(p.stages, &Stage{cmd: cmd})
		prevStdout = stdout
		metrics.TranscodeProcessesActive.Inc()
	}

	p.Stdout = prevStdout
	return p, nil
}

// Terminate runs a graceful-then-forceful shutdown against every stage,
// in reverse order: send SIGTERM to the process group with a 2s
// deadline, escalate to SIGKILL with a 1s deadline, then wait for the
// copy goroutines. It does not close a stage's stdin before signaling;
// a stage's stdin is closed only by the copy goroutine feeding it, once
// that copy ends.
func (p *Pipeline) Terminate() {
	for i := len(p.stages) - 1; i >= 0; i-- {
		stage := p.stages[i]
		if stage.cmd.Process == nil {
			continue
		}
		defer metrics.TranscodeProcessesActive.Dec()
		pid := stage.cmd.Process.Pid
		_ = syscall.Kill(-pid, syscall.SIGTERM)

		done := make(chan struct{})
		go func() { _, _ = stage.cmd.Process.Wait(); close(done) }()

		select {
		case <-done:
		case <-time.After(sigtermTimeout):
			_ = syscall.Kill(-pid, syscall.SIGKILL)
			select {
			case <-done:
			case <-time.After(sigkillTimeout):
				slog.Warn("transcode: stage did not exit after SIGKILL", "pid", pid)
			}
		}
	}
	p.copiers.Wait()
}
