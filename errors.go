package afqmc

import "fmt"

// ShapeError reports a malformed initial orbital matrix or an inconsistent
// spin-channel split.
type ShapeError struct {
	Shape []int
	NUp   int
	NDown int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape %v nup %d ndown %d", e.Shape, e.NUp, e.NDown)
}

// UnrecognizedVariantError reports a trial wavefunction whose variant matches
// no known walker batch subtype. It is never recoverable: ignoring it would
// leave auxiliary buffers unallocated.
type UnrecognizedVariantError struct {
	Variant int
}

func (e *UnrecognizedVariantError) Error() string {
	return fmt.Sprintf("unrecognized trial variant %d", e.Variant)
}

// NumericalDegeneracyError reports a rank-deficient orbital matrix during
// reorthonormalization. The walker population has collapsed; the run must
// terminate. Retrying with a perturbed matrix would corrupt the statistics.
type NumericalDegeneracyError struct {
	Walker int
	Column int
}

func (e *NumericalDegeneracyError) Error() string {
	return fmt.Sprintf("degenerate orbital matrix, walker %d column %d", e.Walker, e.Column)
}
