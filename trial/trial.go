// Package trial holds the trial-wavefunction data consumed by walker batches.
//
// Only the capability the walker layer needs is exposed: the variant tag, the
// stored orbitals, and the active-space and occupation counts used to size
// auxiliary tensors. The physics of the trial wavefunction lives elsewhere.
package trial

import (
	"math/rand/v2"

	"github.com/fumin/tensor"
)

// Variant tags the trial wavefunction type.
// The walker layer dispatches on it with an exhaustive switch.
type Variant int

const (
	// SingleDet is a single-determinant trial wavefunction.
	SingleDet Variant = iota
	// MultiDetWick is a particle-hole multi-determinant expansion
	// evaluated with the Wick factorization.
	MultiDetWick
	// MultiDetNaive is a particle-hole multi-determinant expansion
	// evaluated determinant by determinant.
	MultiDetNaive
)

// Trial is a trial wavefunction.
type Trial struct {
	Variant Variant

	// Psi is the combined orbital matrix of shape (nbasis, nup+ndown).
	// It is set for SingleDet trials.
	Psi *tensor.Dense
	// PsiA and PsiB are the reference alpha and beta orbital blocks, of
	// shapes (nbasis, nup) and (nbasis, ndown).
	// They are set for the particle-hole variants.
	PsiA *tensor.Dense
	PsiB *tensor.Dense

	// NumDets is the number of determinants in the expansion.
	NumDets int

	// Nact is the active space size.
	Nact int
	// NoccAlpha and NoccBeta are the occupied orbital counts per spin.
	NoccAlpha int
	NoccBeta  int
}

// NewSingleDet returns a single-determinant trial with the given combined orbitals.
func NewSingleDet(psi *tensor.Dense) *Trial {
	return &Trial{Variant: SingleDet, Psi: psi, NumDets: 1}
}

// NewParticleHole returns a particle-hole multi-determinant trial.
func NewParticleHole(v Variant, psia, psib *tensor.Dense, numDets, nact, noccAlpha, noccBeta int) *Trial {
	return &Trial{
		Variant:   v,
		PsiA:      psia,
		PsiB:      psib,
		NumDets:   numDets,
		Nact:      nact,
		NoccAlpha: noccAlpha,
		NoccBeta:  noccBeta,
	}
}

// Rand returns a seeded random single-determinant trial.
func Rand(rng *rand.Rand, nbasis, nup, ndown int) *Trial {
	return NewSingleDet(RandOrbitals(rng, nbasis, nup+ndown))
}

// RandOrbitals returns a random orbital matrix of shape (nbasis, ncols).
func RandOrbitals(rng *rand.Rand, nbasis, ncols int) *tensor.Dense {
	t := tensor.Zeros(nbasis, ncols)
	for ijk := range t.All() {
		v := complex(rng.Float32()*2-1, rng.Float32()*2-1)
		t.SetAt(ijk, v)
	}
	return t
}
