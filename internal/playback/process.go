/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// ProcessBackend launches an external player binary per item: one
// exec.Cmd, one goroutine blocked on Wait, signals for pause/resume/stop
// instead of an IPC protocol.
type ProcessBackend struct {
	bin     string
	args    []string
	logger  zerolog.Logger
	timeout time.Duration // grace period between interrupt and kill on Stop
}

// NewProcessBackend builds a backend invoking bin with args, substituting
// the literal token "{file}" in args with the file path at launch time. If
// args contains no "{file}" token, the path is appended.
func NewProcessBackend(bin string, args []string, logger zerolog.Logger) *ProcessBackend {
	return &ProcessBackend{bin: bin, args: args, logger: logger, timeout: 5 * time.Second}
}

// DefaultProcessBackend returns the conventional ffplay invocation used
// when no player binary is configured.
func DefaultProcessBackend(logger zerolog.Logger) *ProcessBackend {
	return NewProcessBackend("ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "{file}"}, logger)
}

func (b *ProcessBackend) commandArgs(filePath string) []string {
	out := make([]string, 0, len(b.args))
	substituted := false
	for _, a := range b.args {
		if strings.Contains(a, "{file}") {
			out = append(out, strings.ReplaceAll(a, "{file}", filePath))
			substituted = true
			continue
		}
		out = append(out, a)
	}
	if !substituted {
		out = append(out, filePath)
	}
	return out
}

// Launch starts the player process for filePath. It stats the file first
// so a missing or unreadable file is reported before any process spawns.
func (b *ProcessBackend) Launch(ctx context.Context, filePath string) (Handle, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, b.bin, b.commandArgs(filePath)...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("playback: start %s: %w", b.bin, err)
	}

	h := &processHandle{
		cmd:     cmd,
		done:    make(chan error, 1),
		exited:  make(chan struct{}),
		logger:  b.logger,
		timeout: b.timeout,
	}
	go h.wait()
	return h, nil
}

// processHandle has two independent ways to observe process exit: done
// (a single-value channel consumed by the Player's watcher) and exited (a
// closed channel, safe for Stop's own wait to observe concurrently
// without racing the watcher for the one value on done).
type processHandle struct {
	cmd     *exec.Cmd
	done    chan error
	exited  chan struct{}
	exitErr error
	logger  zerolog.Logger
	timeout time.Duration
}

func (h *processHandle) wait() {
	err := h.cmd.Wait()
	if err != nil {
		h.logger.Debug().Err(err).Str("bin", h.cmd.Path).Msg("player process exited with error")
	}
	h.exitErr = err
	close(h.exited)
	h.done <- err
}

func (h *processHandle) Done() <-chan error {
	return h.done
}

// Pause sends SIGSTOP. There is no portable pause for an arbitrary
// exec'd player, so this only behaves as expected on unix-like systems.
func (h *processHandle) Pause() error {
	if h.cmd.Process == nil {
		return fmt.Errorf("playback: pause: process not running")
	}
	return h.cmd.Process.Signal(syscall.SIGSTOP)
}

// Resume sends SIGCONT to undo Pause.
func (h *processHandle) Resume() error {
	if h.cmd.Process == nil {
		return fmt.Errorf("playback: resume: process not running")
	}
	return h.cmd.Process.Signal(syscall.SIGCONT)
}

// Stop interrupts the process, escalating to Kill if it doesn't exit
// within the backend's grace period.
func (h *processHandle) Stop() error {
	if h.cmd.Process == nil {
		return nil
	}
	_ = h.cmd.Process.Signal(os.Interrupt)

	select {
	case <-h.exited:
		return nil
	case <-time.After(h.timeout):
		_ = h.cmd.Process.Kill()
		<-h.exited
		return nil
	}
}
