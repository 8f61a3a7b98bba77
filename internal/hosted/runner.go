package hosted

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"
	"time"
)

// Operation is a long-running unit of work hosted by a Runner.
// Run must return promptly once ctx is cancelled.
type Operation interface {
	Run(ctx context.Context) error
}

// OperationFunc adapts an ordinary function to the Operation interface.
type OperationFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f OperationFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// FaultHandler receives faults raised by the hosted operation.
// It is called from the runner goroutine and must not call Stop.
type FaultHandler func(err error)

// Option configures a Runner.
type Option func(*Runner)

// WithName sets the name used in logs and errors.
func WithName(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.name = name
		}
	}
}

// WithFaultHandler sets the handler invoked when the operation fails.
// If nil, faults are only logged.
func WithFaultHandler(handler FaultHandler) Option {
	return func(r *Runner) {
		r.onFault = handler
	}
}

// Runner hosts a single Operation for the lifetime of the process
type Runner struct {
	name    string
	op      Operation
	logger  *slog.Logger
	onFault FaultHandler

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewRunner creates a Runner for op. It fails with ErrNilOperation when op is nil.
func NewRunner(op Operation, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if isNil(op) {
		return nil, ErrNilOperation
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		name:  "operation",
		op:    op,
		state: StateCreated,
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logger.With("component", "hosted_runner", "runner", r.name)

	if r.onFault == nil {
		r.onFault = func(err error) {
			r.logger.Error("hosted operation failed", "error", err)
		}
	}

	return r, nil
}

// Name returns the runner name.
func (r *Runner) Name() string {
	return r.name
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Done returns a channel that is closed once the operation has returned,
// or once a runner that was never started has been stopped.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Err returns the fault recorded when the operation returned, if any.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Start launches the operation in its own goroutine and returns immediately.
// Faults raised by the operation are reported to the fault handler, never here.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateCreated {
		return fmt.Errorf("%w: runner is %s", ErrAlreadyStarted, r.state)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.state = StateRunning

	go r.run(ctx)

	r.logger.Info("hosted operation started")
	return nil
}

// Stop signals the operation to stop and waits until it returns or ctx expires.
//
// It returns nil on a clean exit, an *OperationError when the operation failed,
// and an error matching ErrShutdownTimeout when ctx expired first. Calling Stop
// again after it has been called is a no-op.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	switch r.state {
	case StateCreated:
		r.state = StateStopped
		close(r.done)
		r.mu.Unlock()
		r.logger.Debug("runner stopped before start")
		return nil
	case StateStopping, StateStopped:
		r.mu.Unlock()
		return nil
	}
	r.state = StateStopping
	r.mu.Unlock()

	started := time.Now()
	r.logger.Info("stopping hosted operation")
	r.cancel()

	select {
	case <-r.done:
		return r.finishStop(started)
	case <-ctx.Done():
		// Prefer a completed operation over a deadline that fired at the same time
		select {
		case <-r.done:
			return r.finishStop(started)
		default:
		}
		r.logger.Warn("hosted operation did not stop before shutdown deadline, abandoning it",
			"waited_ms", time.Since(started).Milliseconds())
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

func (r *Runner) finishStop(started time.Time) error {
	r.mu.Lock()
	r.state = StateStopped
	err := r.err
	r.mu.Unlock()

	r.logger.Info("hosted operation stopped",
		"duration_ms", time.Since(started).Milliseconds(),
		"failed", err != nil)
	return err
}

// run executes the operation and records its outcome
func (r *Runner) run(ctx context.Context) {
	err := r.invoke(ctx)

	// Returning the cancellation cause after a stop request is a clean exit
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		err = nil
	}

	var fault error
	if err != nil {
		fault = &OperationError{Name: r.name, Err: err}
	}

	r.mu.Lock()
	r.err = fault
	if r.state == StateStopping {
		r.state = StateStopped
	}
	r.mu.Unlock()

	if fault != nil {
		r.onFault(fault)
	} else {
		r.logger.Debug("hosted operation returned")
	}

	close(r.done)
}

func (r *Runner) invoke(ctx context.Context) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return r.op.Run(ctx)
}

// isNil reports whether op is nil or an interface holding a nil pointer
func isNil(op Operation) bool {
	if op == nil {
		return true
	}
	v := reflect.ValueOf(op)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
