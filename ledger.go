package afqmc

import (
	"math"
)

// ApplyCorrection folds a reorthonormalization log-determinant into walker
// iw's ledger: DetR is multiplied by exp(logDet - DetRShift), LogDetR
// accumulates the raw logDet across the walker's whole history, and the
// overlap is divided by the newly computed DetR.
//
// The operation order is fixed. Downstream estimators reconstruct the true
// un-shifted overlap from LogDetR, so the shift must enter only the exponent.
func (w *WalkerBatch) ApplyCorrection(iw int, logDet float64) complex64 {
	detR := w.DetR[iw] * complex(float32(math.Exp(logDet-w.DetRShift[iw])), 0)
	w.DetR[iw] = detR
	w.LogDetR[iw] += logDet
	w.Ovlp[iw] /= detR
	return detR
}
