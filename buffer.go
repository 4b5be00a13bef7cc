package afqmc

import (
	"math"

	"github.com/pkg/errors"
)

// The serialization surface: each walker's mutable state flattens into a
// fixed number of complex64 slots, used by the population-control
// collaborator for walker exchange and duplication, and by the checkpoint
// store. Layout: phi-up, phi-down, then weight, ovlp, detR, logDetR,
// detRShift.

// ledgerSlots is the number of scalar ledger slots per walker: one each for
// weight, ovlp and detR, plus two for each of the float64 accumulators
// logDetR and detRShift.
const ledgerSlots = 7

// BufferSize returns the number of complex64 slots one walker occupies.
func (w *WalkerBatch) BufferSize() int {
	return w.buffSize
}

// buffSizeSingleWalker sums the element counts of every mutable per-walker
// field across the batch and divides by the walker count. The division must
// be even; a remainder means the field layout and the batch disagree.
func (w *WalkerBatch) buffSizeSingleWalker() (int, error) {
	n := w.NumWalkersLocal
	total := 0
	for _, phi := range w.PhiA {
		total += numElems(phi.Shape())
	}
	for _, phi := range w.PhiB {
		total += numElems(phi.Shape())
	}
	total += len(w.Weight) + len(w.Ovlp) + len(w.DetR) + 2*len(w.LogDetR) + 2*len(w.DetRShift)

	if total%n != 0 {
		return 0, errors.Errorf("%d %d", total, n)
	}
	return total / n, nil
}

// PackWalker flattens walker iw into buf, which must be BufferSize long.
func (w *WalkerBatch) PackWalker(iw int, buf []complex64) error {
	if len(buf) != w.buffSize {
		return errors.Errorf("%d %d", len(buf), w.buffSize)
	}
	s := buf[:0]
	for _, v := range w.PhiA[iw].All() {
		s = append(s, v)
	}
	if w.NDown > 0 {
		for _, v := range w.PhiB[iw].All() {
			s = append(s, v)
		}
	}
	s = append(s, complex(w.Weight[iw], 0))
	s = append(s, w.Ovlp[iw])
	s = append(s, w.DetR[iw])
	s = appendFloat64(s, w.LogDetR[iw])
	s = appendFloat64(s, w.DetRShift[iw])
	if len(s) != w.buffSize {
		return errors.Errorf("%d %d", len(s), w.buffSize)
	}
	return nil
}

// UnpackWalker restores walker iw from buf.
func (w *WalkerBatch) UnpackWalker(iw int, buf []complex64) error {
	if len(buf) != w.buffSize {
		return errors.Errorf("%d %d", len(buf), w.buffSize)
	}
	k := 0
	for ijk := range w.PhiA[iw].All() {
		w.PhiA[iw].SetAt(ijk, buf[k])
		k++
	}
	if w.NDown > 0 {
		for ijk := range w.PhiB[iw].All() {
			w.PhiB[iw].SetAt(ijk, buf[k])
			k++
		}
	}
	w.Weight[iw] = real(buf[k])
	w.Ovlp[iw] = buf[k+1]
	w.DetR[iw] = buf[k+2]
	w.LogDetR[iw] = readFloat64(buf[k+3], buf[k+4])
	w.DetRShift[iw] = readFloat64(buf[k+5], buf[k+6])
	return nil
}

// appendFloat64 appends v's bit pattern as four 16-bit integers carried in
// the real and imaginary parts of two complex64 slots. Every chunk is an
// exact float32 integer, so no bit of the accumulator is lost in the buffer
// or in storage.
func appendFloat64(s []complex64, v float64) []complex64 {
	b := math.Float64bits(v)
	s = append(s, complex(float32(b>>48), float32(b>>32&0xffff)))
	s = append(s, complex(float32(b>>16&0xffff), float32(b&0xffff)))
	return s
}

func readFloat64(c0, c1 complex64) float64 {
	b := uint64(real(c0))<<48 | uint64(imag(c0))<<32 |
		uint64(real(c1))<<16 | uint64(imag(c1))
	return math.Float64frombits(b)
}

func numElems(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
