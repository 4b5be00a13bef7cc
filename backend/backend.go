// Package backend provides the execution backends for walker linear algebra.
//
// A Backend factorizes orbital matrices; the walker layer injects one at
// construction and never assumes whether execution is synchronous. After a
// DecomposeBatch call, no result may be read before Synchronize returns.
package backend

import (
	"github.com/fumin/tensor"
	"github.com/pkg/errors"
)

// Backend factorizes orbital matrices.
//
// Decompose computes a thin QR factorization of the two-dimensional tensor a,
// overwrites a with Q, and returns a caller-owned copy of the upper triangular
// R. DecomposeBatch does the same for every tensor in as; its results are
// undefined until Synchronize returns. MoveToDevice transfers tensors to the
// backend's memory space.
//
// A Backend is owned by a single walker batch and is not safe for concurrent
// use by multiple callers.
type Backend interface {
	Decompose(a *tensor.Dense) (*tensor.Dense, error)
	DecomposeBatch(as []*tensor.Dense) ([]*tensor.Dense, error)
	Synchronize() error
	MoveToDevice(ts []*tensor.Dense) error
}

// decompose runs a thin QR on a using q and bufs as scratch,
// writes Q back into a, and returns a fresh copy of R.
func decompose(a, q *tensor.Dense, bufs [2]*tensor.Dense) (*tensor.Dense, error) {
	shape := a.Shape()
	if len(shape) != 2 {
		return nil, errors.Errorf("%#v", shape)
	}
	if shape[0] < shape[1] {
		return nil, errors.Errorf("%d %d", shape[0], shape[1])
	}

	r := tensor.QR(q, a, bufs)

	// r aliases scratch, copy it out before anything reuses the buffers.
	rc := tensor.Zeros(1)
	resetCopy(rc, r)
	resetCopy(a, q)
	return rc, nil
}

func resetCopy(dst, src *tensor.Dense) *tensor.Dense {
	shape := src.Shape()
	zeroDigit := make([]int, len(shape))
	dst.Reset(shape...).Set(zeroDigit, src)
	return dst
}
