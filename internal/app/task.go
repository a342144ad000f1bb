package app

import (
	"context"
	"fmt"
	"runtime/debug"

	"chapterize/internal/runstate"
	"chapterize/internal/services"
)

// Operation names a class of long-running work.
type Operation string

const (
	OpBatch    Operation = "batch"
	OpApply    Operation = "apply"
	OpDownload Operation = "download"
	OpProbe    Operation = "probe"
)

// Task is a handle to work running in the background.
type Task[T any] struct {
	op     Operation
	done   chan struct{}
	cancel context.CancelFunc
	result T
	err    error
}

// Operation returns the task's operation class.
func (t *Task[T]) Operation() Operation { return t.op }

// Done is closed when the task finishes.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Cancel asks the task to stop. Wait still has to be called for the result.
func (t *Task[T]) Cancel() { t.cancel() }

// Wait blocks until the task finishes and returns its result.
func (t *Task[T]) Wait() (T, error) {
	<-t.done
	return t.result, t.err
}

// start runs fn on a new goroutine under the guard for op. A panic inside fn
// is returned as an ErrUnexpected error.
func start[T any](ctx context.Context, guard *runstate.Guard, op Operation, fn func(context.Context) (T, error)) (*Task[T], error) {
	release, err := guard.TryStart()
	if err != nil {
		return nil, err
	}
	taskCtx, cancel := context.WithCancel(ctx)
	task := &Task[T]{op: op, done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(task.done)
		defer cancel()
		defer release()
		defer func() {
			if recovered := recover(); recovered != nil {
				task.err = services.Wrap(services.ErrUnexpected, string(op), "run",
					fmt.Sprintf("panic: %v\n%s", recovered, debug.Stack()), nil)
			}
		}()
		task.result, task.err = fn(taskCtx)
	}()
	return task, nil
}
