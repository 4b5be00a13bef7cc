package backend

import (
	"runtime"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Offload executes batched decompositions asynchronously on a bounded worker
// pool. DecomposeBatch returns before any work completes; callers must not
// read the returned factors, nor the overwritten inputs, until Synchronize
// returns. Single Decompose calls stay synchronous.
type Offload struct {
	workers int
	pending *errgroup.Group
}

// NewOffload returns an Offload backend with the given pool size.
// workers <= 0 selects GOMAXPROCS.
func NewOffload(workers int) *Offload {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Offload{workers: workers}
}

// Decompose factorizes a in place, returning R.
func (o *Offload) Decompose(a *tensor.Dense) (*tensor.Dense, error) {
	q := tensor.Zeros(1)
	bufs := [2]*tensor.Dense{tensor.Zeros(1), tensor.Zeros(1)}
	r, err := decompose(a, q, bufs)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return r, nil
}

// DecomposeBatch submits one factorization per tensor and returns immediately.
// The returned slice is filled in by the pool; read it only after Synchronize.
// Several batches may be submitted before one Synchronize fences them all.
func (o *Offload) DecomposeBatch(as []*tensor.Dense) ([]*tensor.Dense, error) {
	if o.pending == nil {
		o.pending = &errgroup.Group{}
		o.pending.SetLimit(o.workers)
	}

	rs := make([]*tensor.Dense, len(as))
	for i, a := range as {
		o.pending.Go(func() error {
			q := tensor.Zeros(1)
			bufs := [2]*tensor.Dense{tensor.Zeros(1), tensor.Zeros(1)}
			r, err := decompose(a, q, bufs)
			if err != nil {
				return errors.Wrap(err, "")
			}
			rs[i] = r
			return nil
		})
	}
	return rs, nil
}

// Synchronize waits for all submitted work and surfaces its first error.
func (o *Offload) Synchronize() error {
	if o.pending == nil {
		return nil
	}
	g := o.pending
	o.pending = nil
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// MoveToDevice is a no-op; the pool shares host memory.
func (o *Offload) MoveToDevice(ts []*tensor.Dense) error { return nil }
