package recorder_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"recagent/internal/capture"
	"recagent/internal/recorder"
)

var testBackend = capture.Backend{
	ScreenFormat:     "gdigrab",
	ScreenInput:      "desktop",
	AudioFormat:      "dshow",
	AudioInputPrefix: "audio=",
	Framerate:        30,
	Preset:           "veryfast",
}

var fixedNow = time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC)

// fakeProcess simulates an encoder. It exits when finish is called, either by
// the test, by Kill, or by Quit when exitOnQuit is set.
type fakeProcess struct {
	exit       chan error
	once       sync.Once
	exitOnQuit bool
	quitErr    error
	diag       string

	mu    sync.Mutex
	quits int
	kills int
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{exit: make(chan error, 1)}
}

func exitedProcess(err error, diag string) *fakeProcess {
	p := newFakeProcess()
	p.diag = diag
	p.finish(err)
	return p
}

func (p *fakeProcess) finish(err error) {
	p.once.Do(func() { p.exit <- err })
}

func (p *fakeProcess) Quit() error {
	p.mu.Lock()
	p.quits++
	p.mu.Unlock()
	if p.quitErr != nil {
		return p.quitErr
	}
	if p.exitOnQuit {
		p.finish(nil)
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.kills++
	p.mu.Unlock()
	p.finish(&recorder.ExitError{Code: -1})
	return nil
}

func (p *fakeProcess) Wait() error { return <-p.exit }

func (p *fakeProcess) Diagnostics() string { return p.diag }

func (p *fakeProcess) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quits, p.kills
}

type fakeExecutor struct {
	mu       sync.Mutex
	calls    [][]string
	startErr error
	next     func(args []string) *fakeProcess
}

func (e *fakeExecutor) Start(_ string, args []string) (recorder.Process, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, slices.Clone(args))
	if e.startErr != nil {
		return nil, e.startErr
	}
	return e.next(args), nil
}

func (e *fakeExecutor) invocations() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls)
}

type journalEntry struct {
	begin  recorder.SessionRecord
	result *recorder.SessionResult
}

type fakeJournal struct {
	mu      sync.Mutex
	entries map[string]*journalEntry
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{entries: map[string]*journalEntry{}}
}

func (j *fakeJournal) Begin(_ context.Context, rec recorder.SessionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[rec.ID] = &journalEntry{begin: rec}
	return nil
}

func (j *fakeJournal) Finish(_ context.Context, id string, result recorder.SessionResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if entry, ok := j.entries[id]; ok {
		res := result
		entry.result = &res
	}
	return nil
}

func (j *fakeJournal) outcomes() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, entry := range j.entries {
		if entry.result != nil {
			out = append(out, entry.result.Outcome)
		}
	}
	return out
}

func newTestSupervisor(t *testing.T, exec recorder.Executor, opts ...recorder.Option) (*recorder.Supervisor, string) {
	t.Helper()
	dir := t.TempDir()
	base := []recorder.Option{
		recorder.WithExecutor(exec),
		recorder.WithClock(func() time.Time { return fixedNow }),
		recorder.WithStopGrace(200 * time.Millisecond),
		recorder.WithKillWait(time.Second),
	}
	return recorder.New("ffmpeg", testBackend, dir, append(base, opts...)...), dir
}

func waitForState(t *testing.T, sup *recorder.Supervisor, want recorder.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sup.Status().State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state did not reach %s, still %s", want, sup.Status().State)
}
