package afqmc

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestApplyCorrection(t *testing.T) {
	t.Parallel()
	w := newTestBatch(t, 5, 2, 1, 2, 41)
	w.Ovlp[0] = 3 + 1i

	ln2 := math.Log(2)
	detR := w.ApplyCorrection(0, ln2)
	if got := cmplx.Abs(complex128(detR - 2)); got > tol {
		t.Fatalf("%v, expected 2", detR)
	}
	if got := w.LogDetR[0]; got != ln2 {
		t.Fatalf("%f, expected %f", got, ln2)
	}
	if got, want := w.Ovlp[0], (3+1i)/detR; got != want {
		t.Fatalf("%v, expected %v", got, want)
	}

	// Corrections accumulate: DetR multiplies, LogDetR sums raw deltas.
	detR2 := w.ApplyCorrection(0, ln2)
	if got := cmplx.Abs(complex128(detR2 - 4)); got > tol {
		t.Fatalf("%v, expected 4", detR2)
	}
	if got := w.LogDetR[0]; got != 2*ln2 {
		t.Fatalf("%f, expected %f", got, 2*ln2)
	}

	// Walker 1 is untouched.
	if w.DetR[1] != 1 || w.LogDetR[1] != 0 {
		t.Fatalf("%v %f", w.DetR[1], w.LogDetR[1])
	}
}

func TestApplyCorrectionShift(t *testing.T) {
	t.Parallel()
	w := newTestBatch(t, 5, 2, 1, 1, 43)
	ln2 := math.Log(2)
	w.DetRShift[0] = ln2

	// The shift enters only the exponent: exp(ln2 - ln2) = 1 exactly.
	detR := w.ApplyCorrection(0, ln2)
	if detR != 1 {
		t.Fatalf("%v, expected 1", detR)
	}
	// The raw delta still lands in LogDetR.
	if got := w.LogDetR[0]; got != ln2 {
		t.Fatalf("%f, expected %f", got, ln2)
	}
}
