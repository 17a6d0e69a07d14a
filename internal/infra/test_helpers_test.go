package infra

import (
	"context"
	"strings"
	"sync"
)

// invocation is one recorded command.
type invocation struct {
	Name string
	Args []string
}

// fakeCommandRunner records invocations and answers from canned output.
type fakeCommandRunner struct {
	mu    sync.Mutex
	calls []invocation

	// outputs maps the first argument to stdout.
	outputs map[string]string
	// errs maps the first argument to an error.
	errs map[string]error
}

func newFakeCommandRunner() *fakeCommandRunner {
	return &fakeCommandRunner{
		outputs: make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (f *fakeCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := f.Output(ctx, name, args...)
	return err
}

func (f *fakeCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invocation{Name: name, Args: append([]string(nil), args...)})

	first := ""
	if len(args) > 0 {
		first = args[0]
	}
	return []byte(f.outputs[first]), f.errs[first]
}

func (f *fakeCommandRunner) invocations() []invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]invocation(nil), f.calls...)
}

// argValue returns the value following flag in args.
func argValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

func hasArg(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}

var _ CommandRunner = (*fakeCommandRunner)(nil)
