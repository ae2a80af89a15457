package orchestrator

import (
	"context"

	"github.com/speakerhub/orchestrator/internal/model"
	"github.com/speakerhub/orchestrator/internal/orcherr"
)

// queue serializes calls into the facade's single worker loop, the
// in-process generalization of the teacher's one-socket accept loop:
// a second concurrent ApplyConfiguration/DisconnectConfiguration call
// waits behind the first rather than interleaving with it (spec §5).
type queue struct {
	jobs chan job
}

type job struct {
	run    func() (*model.Result, error)
	result chan jobResult
}

type jobResult struct {
	res *model.Result
	err error
}

func newQueue() *queue {
	q := &queue{jobs: make(chan job)}
	go q.loop()
	return q
}

func (q *queue) loop() {
	for j := range q.jobs {
		res, err := j.run()
		j.result <- jobResult{res: res, err: err}
	}
}

// submit enqueues fn and blocks until it has run, unless ctx is done
// first, in which case the caller gets ErrBusy. If ctx is done before
// the worker has taken the job, fn never runs (a queued-but-not-yet-
// started call has no in-flight Bluetooth state to roll back); if it
// is done after, fn keeps running to completion and its result is
// discarded.
func (q *queue) submit(ctx context.Context, fn func() (*model.Result, error)) (*model.Result, error) {
	j := job{run: fn, result: make(chan jobResult, 1)}

	select {
	case q.jobs <- j:
	case <-ctx.Done():
		return nil, orcherr.ErrBusy
	}

	select {
	case r := <-j.result:
		return r.res, r.err
	case <-ctx.Done():
		return nil, orcherr.ErrBusy
	}
}
