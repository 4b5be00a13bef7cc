package analysis

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestAutocorrFunc(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(1, 0))
	x := make([]float64, 1000)
	for i := range x {
		x[i] = rng.Float64()
	}

	acf, err := AutocorrFunc(x)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(acf) != len(x) {
		t.Fatalf("%d, expected %d", len(acf), len(x))
	}
	if acf[0] != 1 {
		t.Fatalf("%f, expected 1", acf[0])
	}
	// Uncorrelated samples decay immediately.
	if math.Abs(acf[1]) > 0.2 {
		t.Fatalf("%f", acf[1])
	}
}

func TestAutocorrTime(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(2, 0))

	// Uncorrelated series has an integrated time of about 1.
	x := make([]float64, 4096)
	for i := range x {
		x[i] = rng.NormFloat64()
	}
	tac, err := AutocorrTime(x, 5)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !(tac > 0.5 && tac < 2) {
		t.Fatalf("%f", tac)
	}

	// Repeating every sample blockLen times stretches the time accordingly.
	const blockLen = 16
	y := make([]float64, 0, len(x)*blockLen)
	for _, v := range x {
		for k := 0; k < blockLen; k++ {
			y = append(y, v)
		}
	}
	tacY, err := AutocorrTime(y, 5)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !(tacY > blockLen/4 && tacY < blockLen*4) {
		t.Fatalf("%f", tacY)
	}
}

func TestReblockByAutocorr(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(3, 0))
	const mean = 2.5
	y := make([]float64, 8192)
	var sum float64
	for i := range y {
		y[i] = mean + rng.NormFloat64()
		sum += y[i]
	}

	rb, err := ReblockByAutocorr(y)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if rb.BlockSize < 1 || rb.NumBlocks < 2 {
		t.Fatalf("%#v", rb)
	}
	if got := math.Abs(rb.Mean - sum/float64(len(y))); got > 0.05 {
		t.Fatalf("%f, expected %f", rb.Mean, sum/float64(len(y)))
	}
	if !(rb.Err > 0 && rb.Err < 0.1) {
		t.Fatalf("%f", rb.Err)
	}

	if _, err := ReblockByAutocorr(y[:2]); err == nil {
		t.Fatalf("expected short series error")
	}
}
