package recorder

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Process is a running encoder invocation.
type Process interface {
	// Quit asks the encoder to finish its output and exit.
	Quit() error
	// Kill terminates the encoder without waiting for it to finalize.
	Kill() error
	// Wait blocks until the process exits. A non-zero exit is reported as *ExitError.
	Wait() error
	// Diagnostics returns the captured tail of the encoder's stderr.
	Diagnostics() string
}

// Executor starts encoder processes.
type Executor interface {
	Start(binary string, args []string) (Process, error)
}

const diagnosticLimit = 64 * 1024

type commandExecutor struct{}

func (commandExecutor) Start(binary string, args []string) (Process, error) {
	cmd := exec.Command(binary, args...)
	setProcessGroup(cmd)
	cmd.WaitDelay = 2 * time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	tail := &tailBuffer{limit: diagnosticLimit}
	cmd.Stdout = io.Discard
	cmd.Stderr = tail

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &commandProcess{cmd: cmd, stdin: stdin, stderr: tail}, nil
}

type commandProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer
}

func (p *commandProcess) Quit() error {
	_, err := io.WriteString(p.stdin, "q\n")
	return err
}

func (p *commandProcess) Kill() error {
	err := killProcessGroup(p.cmd)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *commandProcess) Wait() error {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return err
}

func (p *commandProcess) Diagnostics() string {
	return p.stderr.String()
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
