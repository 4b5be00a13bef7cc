package afqmc

import (
	"math"
	"math/cmplx"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
)

// Reortho restores the orthonormality of every walker's orbital columns and
// folds the resulting determinant change into the ledger. The spanned
// subspace of each walker is unchanged; only the representation is
// canonicalized so that all diagonal factors are positive real.
//
// The per-walker DetR values are returned. In batched mode the decomposition
// of the whole walker axis is a single backend call, synchronized before any
// factor is read; the two modes produce identical results for identical
// inputs.
func (w *WalkerBatch) Reortho() ([]complex64, error) {
	if w.batched {
		return w.reorthoBatched()
	}

	detR := make([]complex64, w.NumWalkersLocal)
	for iw := range detR {
		r, err := w.exec.Decompose(w.PhiA[iw])
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		logDet, err := w.signFix(iw, w.PhiA[iw], r)
		if err != nil {
			return nil, err
		}

		if w.NDown > 0 {
			r, err := w.exec.Decompose(w.PhiB[iw])
			if err != nil {
				return nil, errors.Wrap(err, "")
			}
			ld, err := w.signFix(iw, w.PhiB[iw], r)
			if err != nil {
				return nil, err
			}
			logDet += ld
		}

		detR[iw] = w.ApplyCorrection(iw, logDet)
	}

	if err := w.exec.Synchronize(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return detR, nil
}

func (w *WalkerBatch) reorthoBatched() ([]complex64, error) {
	rup, err := w.exec.DecomposeBatch(w.PhiA)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	var rdn []*tensor.Dense
	if w.NDown > 0 {
		rdn, err = w.exec.DecomposeBatch(w.PhiB)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	// rup and rdn are not readable before this point.
	if err := w.exec.Synchronize(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	detR := make([]complex64, w.NumWalkersLocal)
	for iw := range detR {
		logDet, err := w.signFix(iw, w.PhiA[iw], rup[iw])
		if err != nil {
			return nil, err
		}
		if w.NDown > 0 {
			ld, err := w.signFix(iw, w.PhiB[iw], rdn[iw])
			if err != nil {
				return nil, err
			}
			logDet += ld
		}
		detR[iw] = w.ApplyCorrection(iw, logDet)
	}
	return detR, nil
}

// signFix dumps the phase of each diagonal factor of r into the orbitals,
// phi <- Q diag(d_k/|d_k|), so that det(R) is always positive real, and
// returns sum_k log|d_k|. A zero or non-finite diagonal means the orbital
// matrix lost rank.
func (w *WalkerBatch) signFix(iw int, phi, r *tensor.Dense) (float64, error) {
	ncols := r.Shape()[1]
	w.signDiag.Reset(ncols, ncols)
	for ijk := range w.signDiag.All() {
		w.signDiag.SetAt(ijk, 0)
	}

	var logDet float64
	for k := 0; k < ncols; k++ {
		d := complex128(r.At(k, k))
		dAbs := cmplx.Abs(d)
		if dAbs == 0 || math.IsNaN(dAbs) || math.IsInf(dAbs, 0) {
			return 0, errors.Wrap(&NumericalDegeneracyError{Walker: iw, Column: k}, "")
		}
		w.signDiag.SetAt([]int{k, k}, complex64(d/complex(dAbs, 0)))
		logDet += math.Log(dAbs)
	}

	tensor.Contract(w.scratch, phi, w.signDiag, [][2]int{{1, 0}})
	resetCopy(phi, w.scratch)
	return logDet, nil
}
