package backend

import (
	"github.com/fumin/tensor"
	"github.com/pkg/errors"
)

// CPU is the synchronous host backend.
// Synchronize and MoveToDevice are no-ops.
type CPU struct {
	q    *tensor.Dense
	bufs [2]*tensor.Dense
}

// NewCPU returns a CPU backend.
func NewCPU() *CPU {
	return &CPU{
		q:    tensor.Zeros(1),
		bufs: [2]*tensor.Dense{tensor.Zeros(1), tensor.Zeros(1)},
	}
}

// Decompose factorizes a in place, returning R.
func (c *CPU) Decompose(a *tensor.Dense) (*tensor.Dense, error) {
	r, err := decompose(a, c.q, c.bufs)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return r, nil
}

// DecomposeBatch factorizes every tensor in as, sequentially.
// Results are valid on return.
func (c *CPU) DecomposeBatch(as []*tensor.Dense) ([]*tensor.Dense, error) {
	rs := make([]*tensor.Dense, len(as))
	for i, a := range as {
		r, err := c.Decompose(a)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		rs[i] = r
	}
	return rs, nil
}

// Synchronize is a no-op on the host.
func (c *CPU) Synchronize() error { return nil }

// MoveToDevice is a no-op on the host.
func (c *CPU) MoveToDevice(ts []*tensor.Dense) error { return nil }
