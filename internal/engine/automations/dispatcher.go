package automations

import (
	"context"
	"sync"
	"time"

	"taskgate/internal/engine/tasks"
	"taskgate/internal/pkg/safego"
)

// Dispatcher runs the engine off the request path. It satisfies
// tasks.Dispatcher.
type Dispatcher struct {
	engine  *Engine
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(engine *Engine, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{engine: engine, timeout: timeout}
}

// Dispatch runs the triggers of one task mutation in order on a single
// goroutine, so a rule's write is committed before the next trigger's rules
// read the task.
func (d *Dispatcher) Dispatch(taskID string, events []tasks.Event, old, new *tasks.Task) {
	if len(events) == 0 {
		return
	}
	d.wg.Add(1)
	safego.Go("automation:"+taskID, func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		for _, event := range events {
			d.engine.ProcessTrigger(ctx, event, taskID, old, new)
		}
	})
}

// Wait blocks until every dispatched trigger has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
