package simulator

import "sync"

// pool is a fixed-size worker pool. Workers live as long as the Simulator;
// per-request fan-out submits tasks and blocks until all complete.
type pool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newPool(workers int) *pool {
	p := &pool{
		tasks: make(chan func()),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// wait submits the tasks and blocks until every one has run.
func (p *pool) wait(tasks []func()) {
	var done sync.WaitGroup
	done.Add(len(tasks))
	for _, task := range tasks {
		task := task
		p.tasks <- func() {
			defer done.Done()
			task()
		}
	}
	done.Wait()
}

func (p *pool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.tasks)
	p.wg.Wait()
}
