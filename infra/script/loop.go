package script

import (
	"context"
	"time"

	"github.com/dop251/goja"
)

// loop serializes everything that touches the VM onto one goroutine.
// Host calls that block run elsewhere and post their continuation back as a
// job. pending counts continuations still owed to the loop; when it drops to
// zero nothing can wake the script again.
type loop struct {
	vm        *goja.Runtime
	jobs      chan func()
	stop      chan struct{}
	pending   int
	timers    map[int64]*time.Timer
	nextTimer int64
	onError   func(error)
}

func newLoop(vm *goja.Runtime, onError func(error)) *loop {
	return &loop{
		vm:      vm,
		jobs:    make(chan func()),
		stop:    make(chan struct{}),
		timers:  make(map[int64]*time.Timer),
		onError: onError,
	}
}

func (l *loop) enqueue(job func()) {
	select {
	case l.jobs <- job:
	case <-l.stop:
	}
}

// async runs work off the loop. The function work returns runs on the loop.
func (l *loop) async(work func() func()) {
	l.pending++
	go func() {
		next := work()
		l.enqueue(func() {
			l.pending--
			next()
		})
	}()
}

func (l *loop) setTimeout(fn goja.Callable, delay time.Duration, args []goja.Value) int64 {
	l.nextTimer++
	id := l.nextTimer
	l.pending++
	l.timers[id] = time.AfterFunc(delay, func() {
		l.enqueue(func() {
			if _, ok := l.timers[id]; !ok {
				return
			}
			delete(l.timers, id)
			l.pending--
			if _, err := fn(goja.Undefined(), args...); err != nil {
				l.onError(err)
			}
		})
	})
	return id
}

func (l *loop) clearTimeout(id int64) {
	t, ok := l.timers[id]
	if !ok {
		return
	}
	t.Stop()
	delete(l.timers, id)
	l.pending--
}

type exitReason int

const (
	exitReported exitReason = iota
	exitIdle
	exitCanceled
)

// run executes jobs until the session ends, ctx ends or the script has
// nothing left to wait for.
func (l *loop) run(ctx context.Context, done <-chan struct{}) exitReason {
	defer l.close()
	for {
		select {
		case <-done:
			return exitReported
		default:
		}
		if l.pending == 0 {
			return exitIdle
		}
		select {
		case <-done:
			return exitReported
		case <-ctx.Done():
			return exitCanceled
		case job := <-l.jobs:
			job()
		}
	}
}

func (l *loop) close() {
	close(l.stop)
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
}
