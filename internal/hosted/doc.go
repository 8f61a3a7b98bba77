// Package hosted bridges a process supervisor's start/stop lifecycle to a single
// long-running, cancellable operation such as the event bus dispatch loop.
//
// A Runner owns exactly one Operation. Start launches it in its own goroutine
// and returns immediately; Stop cancels the operation's context and waits for it
// to return or for the supervisor's shutdown deadline to pass, whichever comes
// first. Cancellation is cooperative: the runner never interrupts the operation,
// it only signals it.
package hosted
