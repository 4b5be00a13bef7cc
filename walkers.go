// Package afqmc implements the walker population mechanics of auxiliary-field
// quantum Monte Carlo: batches of unrestricted Hartree-Fock style walkers and
// their periodic reorthonormalization.
//
// A walker is a pair of complex orbital coefficient matrices, one per spin
// channel, propagated through imaginary time by an external driver. The batch
// owns the orbital matrices, the derived Green's function caches, and the
// per-walker weight/overlap ledger. Propagation and estimators live outside
// this package; they mutate orbitals and read Green's functions respectively.
//
// References:
//   - An auxiliary-field quantum Monte Carlo perspective on the ground state of
//     the dense uniform electron gas, Joonho Lee, Fionn Malone, Miguel Morales
package afqmc

import (
	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"afqmc/backend"
	"afqmc/trial"
)

// WalkerBatch is a fixed-size batch of walkers. Walker i owns PhiA[i] and,
// when NDown > 0, PhiB[i]; no tensor is shared between walkers. The batch
// size is fixed for the batch's lifetime; population control resizes by
// exchanging packed walker buffers, not by mutating the batch.
type WalkerBatch struct {
	NUp    int
	NDown  int
	NBasis int
	NDets  int

	NumWalkersLocal  int
	NumWalkersGlobal int
	NumSteps         int

	// PhiA and PhiB are the per-walker orbital matrices, of shapes
	// (NBasis, NUp) and (NBasis, NDown). PhiB is nil when NDown == 0.
	PhiA []*tensor.Dense
	PhiB []*tensor.Dense

	// Green's function caches, populated by external collaborators.
	// They may be stale between propagation steps.
	Ga     []*tensor.Dense
	Gb     []*tensor.Dense
	GhalfA []*tensor.Dense
	GhalfB []*tensor.Dense

	// Per-walker ledger.
	Weight    []float32
	Ovlp      []complex64
	DetR      []complex64
	LogDetR   []float64
	DetRShift []float64

	// Variant auxiliaries, at most one non-nil.
	Variant trial.Variant
	Wick    *WickAux
	Naive   *NaiveAux

	buffSize int

	exec    backend.Backend
	batched bool

	// Scratch for the sign fix.
	signDiag *tensor.Dense
	scratch  *tensor.Dense
}

// Options are options for walker batch construction.
type Options struct {
	backend   backend.Backend
	batched   bool
	detRShift []float64
}

// NewOptions returns the default walker batch options.
func NewOptions() Options {
	opt := Options{}
	opt.backend = backend.NewCPU()
	return opt
}

// Backend sets the execution backend.
func (opt Options) Backend(b backend.Backend) Options {
	opt.backend = b
	return opt
}

// Batched selects the batched reorthonormalization mode.
func (opt Options) Batched(b bool) Options {
	opt.batched = b
	return opt
}

// DetRShift sets the per-walker determinant shift used to keep
// exp(logDet - shift) within floating point range. The default is zero.
func (opt Options) DetRShift(shift []float64) Options {
	opt.detRShift = shift
	return opt
}

// New returns a walker batch with every walker initialized to an independent
// copy of the initial orbital matrix. The initial matrix must be of shape
// (nbasis, nup+ndown); columns [0, nup) seed the up channel and the rest the
// down channel.
func New(initial *tensor.Dense, t *trial.Trial, nup, ndown, nbasis, numWalkersLocal, numWalkersGlobal, numSteps int, options ...Options) (*WalkerBatch, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}

	shape := initial.Shape()
	if len(shape) != 2 {
		return nil, errors.Wrap(&ShapeError{Shape: shape, NUp: nup, NDown: ndown}, "")
	}
	if shape[0] != nbasis || shape[1] != nup+ndown {
		return nil, errors.Wrap(&ShapeError{Shape: shape, NUp: nup, NDown: ndown}, "")
	}
	n := numWalkersLocal

	w := &WalkerBatch{
		NUp:              nup,
		NDown:            ndown,
		NBasis:           nbasis,
		NDets:            t.NumDets,
		NumWalkersLocal:  numWalkersLocal,
		NumWalkersGlobal: numWalkersGlobal,
		NumSteps:         numSteps,
		Variant:          t.Variant,
		exec:             opt.backend,
		batched:          opt.batched,
		signDiag:         tensor.Zeros(1),
		scratch:          tensor.Zeros(1),
	}

	w.PhiA = make([]*tensor.Dense, n)
	for iw := range w.PhiA {
		w.PhiA[iw] = copyColumns(initial, 0, nup)
	}
	if ndown > 0 {
		w.PhiB = make([]*tensor.Dense, n)
		for iw := range w.PhiB {
			w.PhiB[iw] = copyColumns(initial, nup, nup+ndown)
		}
	}

	w.Ga = zerosEach(n, nbasis, nbasis)
	w.Gb = zerosEach(n, nbasis, nbasis)
	w.GhalfA = zerosEach(n, nup, nbasis)
	if ndown > 0 {
		w.GhalfB = zerosEach(n, ndown, nbasis)
	}

	w.Weight = make([]float32, n)
	w.Ovlp = make([]complex64, n)
	w.DetR = make([]complex64, n)
	w.LogDetR = make([]float64, n)
	w.DetRShift = make([]float64, n)
	for iw := 0; iw < n; iw++ {
		w.Weight[iw] = 1
		w.Ovlp[iw] = 1
		w.DetR[iw] = 1
	}
	if opt.detRShift != nil {
		if len(opt.detRShift) != n {
			return nil, errors.Errorf("%d %d", len(opt.detRShift), n)
		}
		copy(w.DetRShift, opt.detRShift)
	}

	if err := w.dispatchVariant(t); err != nil {
		return nil, errors.Wrap(err, "")
	}

	var err error
	w.buffSize, err = w.buffSizeSingleWalker()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	return w, nil
}

// MoveToDevice transfers every batch tensor to the backend's memory space.
func (w *WalkerBatch) MoveToDevice() error {
	ts := make([]*tensor.Dense, 0, 6*w.NumWalkersLocal)
	ts = append(ts, w.PhiA...)
	ts = append(ts, w.PhiB...)
	ts = append(ts, w.Ga...)
	ts = append(ts, w.Gb...)
	ts = append(ts, w.GhalfA...)
	ts = append(ts, w.GhalfB...)
	if err := w.exec.MoveToDevice(ts); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func zerosEach(n int, shape ...int) []*tensor.Dense {
	ts := make([]*tensor.Dense, n)
	for i := range ts {
		ts[i] = tensor.Zeros(shape...)
	}
	return ts
}

// copyColumns returns a fresh (rows, hi-lo) copy of src's columns [lo, hi).
func copyColumns(src *tensor.Dense, lo, hi int) *tensor.Dense {
	rows := src.Shape()[0]
	dst := tensor.Zeros(rows, hi-lo)
	for i := 0; i < rows; i++ {
		for j := lo; j < hi; j++ {
			dst.SetAt([]int{i, j - lo}, src.At(i, j))
		}
	}
	return dst
}

func resetCopy(dst, src *tensor.Dense) *tensor.Dense {
	shape := src.Shape()
	zeroDigit := make([]int, len(shape))
	dst.Reset(shape...).Set(zeroDigit, src)
	return dst
}
