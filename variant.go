package afqmc

import (
	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"afqmc/trial"
)

// WickAux holds the auxiliary tensors of the Wick-factorized
// multi-determinant variant. The reference Green's functions are allocated at
// construction; the correlators CIa and CIb are sized by the trial's active
// space in Build.
type WickAux struct {
	G0a []*tensor.Dense
	G0b []*tensor.Dense
	Q0a []*tensor.Dense
	Q0b []*tensor.Dense

	CIa []*tensor.Dense
	CIb []*tensor.Dense
}

// NaiveAux holds the per-determinant tensors of the naive multi-determinant
// variant, all allocated in Build.
type NaiveAux struct {
	// DetWeights are the overlaps of each walker with the individual
	// determinants of the trial expansion.
	DetWeights *tensor.Dense
	DetOvlpA   *tensor.Dense
	DetOvlpB   *tensor.Dense

	Gia     []*tensor.Dense
	Gib     []*tensor.Dense
	GihalfA []*tensor.Dense
	GihalfB []*tensor.Dense
}

// InitialWalker extracts the initial orbital matrix from a trial
// wavefunction, and reports the number of determinants in its expansion. For
// the particle-hole variants the alpha and beta blocks are concatenated
// column-wise.
func InitialWalker(t *trial.Trial) (int, *tensor.Dense, error) {
	switch t.Variant {
	case trial.SingleDet:
		return 1, resetCopy(tensor.Zeros(1), t.Psi), nil
	case trial.MultiDetWick, trial.MultiDetNaive:
		return t.NumDets, hstack(t.PsiA, t.PsiB), nil
	default:
		return 0, nil, errors.Wrap(&UnrecognizedVariantError{Variant: int(t.Variant)}, "")
	}
}

func (w *WalkerBatch) dispatchVariant(t *trial.Trial) error {
	n := w.NumWalkersLocal
	switch t.Variant {
	case trial.SingleDet:
	case trial.MultiDetWick:
		w.Wick = &WickAux{
			G0a: zerosEach(n, w.NBasis, w.NBasis),
			G0b: zerosEach(n, w.NBasis, w.NBasis),
			Q0a: zerosEach(n, w.NBasis, w.NBasis),
			Q0b: zerosEach(n, w.NBasis, w.NBasis),
		}
	case trial.MultiDetNaive:
	default:
		return errors.Wrap(&UnrecognizedVariantError{Variant: int(t.Variant)}, "")
	}
	return nil
}

// Build allocates the trial-sized auxiliary tensors of multi-determinant
// variants. It must be called after New and before any Green's function
// computation. For single-determinant batches it is a no-op.
func (w *WalkerBatch) Build(t *trial.Trial) error {
	n := w.NumWalkersLocal
	switch t.Variant {
	case trial.SingleDet:
		return nil
	case trial.MultiDetWick:
		w.Wick.CIa = zerosEach(n, t.Nact, t.NoccAlpha)
		w.Wick.CIb = zerosEach(n, t.Nact, t.NoccBeta)
		return nil
	case trial.MultiDetNaive:
		w.Naive = &NaiveAux{
			DetWeights: tensor.Zeros(n, w.NDets),
			DetOvlpA:   tensor.Zeros(n, w.NDets),
			DetOvlpB:   tensor.Zeros(n, w.NDets),
			Gia:        zerosEach(n, w.NDets, w.NBasis, w.NBasis),
			Gib:        zerosEach(n, w.NDets, w.NBasis, w.NBasis),
			GihalfA:    zerosEach(n, w.NDets, w.NUp, w.NBasis),
		}
		if w.NDown > 0 {
			w.Naive.GihalfB = zerosEach(n, w.NDets, w.NDown, w.NBasis)
		}
		return nil
	default:
		return errors.Wrap(&UnrecognizedVariantError{Variant: int(t.Variant)}, "")
	}
}

// hstack concatenates a and b column-wise into a fresh tensor.
// A nil b stands for an empty beta block.
func hstack(a, b *tensor.Dense) *tensor.Dense {
	if b == nil {
		return resetCopy(tensor.Zeros(1), a)
	}
	as, bs := a.Shape(), b.Shape()
	dst := tensor.Zeros(as[0], as[1]+bs[1])
	for i := 0; i < as[0]; i++ {
		for j := 0; j < as[1]; j++ {
			dst.SetAt([]int{i, j}, a.At(i, j))
		}
		for j := 0; j < bs[1]; j++ {
			dst.SetAt([]int{i, as[1] + j}, b.At(i, j))
		}
	}
	return dst
}
