// Package analysis estimates statistical errors of Monte Carlo series.
//
// References:
//   - Monte Carlo errors with less errors, Ulli Wolff
//   - Ensemble samplers with affine invariance, Jonathan Goodman, Jonathan Weare
package analysis

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// AutocorrFunc returns the normalized autocorrelation function of x,
// computed with a zero-padded FFT.
func AutocorrFunc(x []float64) ([]float64, error) {
	if len(x) < 2 {
		return nil, errors.Errorf("%d", len(x))
	}
	n := nextPowTwo(len(x))

	mean := stat.Mean(x, nil)
	padded := make([]float64, 2*n)
	for i, v := range x {
		padded[i] = v - mean
	}

	fft := fourier.NewFFT(2 * n)
	coeffs := fft.Coefficients(nil, padded)
	for i, c := range coeffs {
		coeffs[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	seq := fft.Sequence(nil, coeffs)

	acf := make([]float64, len(x))
	for i := range acf {
		acf[i] = seq[i] / (4 * float64(n))
	}
	if acf[0] == 0 {
		return nil, errors.Errorf("%f", acf[0])
	}
	a0 := acf[0]
	for i := range acf {
		acf[i] /= a0
	}
	return acf, nil
}

// AutocorrTime returns the integrated autocorrelation time of y, using the
// automated windowing procedure of Sokal with window constant c. The Goodman
// and Weare suggestion is c = 5.
func AutocorrTime(y []float64, c float64) (float64, error) {
	f, err := AutocorrFunc(y)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}

	taus := make([]float64, len(f))
	var cum float64
	for i, v := range f {
		cum += v
		taus[i] = 2*cum - 1
	}
	return taus[autoWindow(taus, c)], nil
}

// autoWindow returns the first lag where the window stops growing faster
// than c times the estimated time.
func autoWindow(taus []float64, c float64) int {
	for i, tau := range taus {
		if !(float64(i) < c*tau) {
			return i
		}
	}
	return len(taus) - 1
}

// Reblocked is a series mean with its autocorrelation-corrected error.
type Reblocked struct {
	Mean      float64
	Err       float64
	NumBlocks int
	BlockSize int
}

// ReblockByAutocorr blocks y by its integrated autocorrelation time and
// returns the blocked mean and standard error. The time is taken as the
// maximum estimate over successive halvings of the series.
func ReblockByAutocorr(y []float64) (Reblocked, error) {
	if len(y) < 4 {
		return Reblocked{}, errors.Errorf("%d", len(y))
	}

	nMax := int(math.Log2(float64(len(y))))
	var tacMax float64
	for i := 0; i < nMax; i++ {
		n := len(y) / (1 << i)
		if n < 2 {
			break
		}
		tac, err := AutocorrTime(y[:n], 5)
		if err != nil {
			return Reblocked{}, errors.Wrap(err, "")
		}
		tacMax = math.Max(tacMax, tac)
	}

	blockSize := int(math.Round(tacMax))
	if blockSize < 1 {
		blockSize = 1
	}
	numBlocks := len(y) / blockSize
	if numBlocks < 2 {
		return Reblocked{}, errors.Errorf("%d %d", blockSize, len(y))
	}

	blocked := make([]float64, numBlocks)
	for i := range blocked {
		blocked[i] = stat.Mean(y[i*blockSize:(i+1)*blockSize], nil)
	}

	rb := Reblocked{
		Mean:      stat.Mean(blocked, nil),
		Err:       stat.PopStdDev(blocked, nil) / math.Sqrt(float64(numBlocks)),
		NumBlocks: numBlocks,
		BlockSize: blockSize,
	}
	return rb, nil
}

func nextPowTwo(n int) int {
	i := 1
	for i < n {
		i <<= 1
	}
	return i
}
