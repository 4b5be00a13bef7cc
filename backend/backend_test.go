package backend

import (
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/fumin/tensor"
)

const tol = 1e-4

func TestCPUDecompose(t *testing.T) {
	t.Parallel()
	const rows, cols = 7, 3
	rng := rand.New(rand.NewPCG(1, 0))
	a := randMatrix(rng, rows, cols)
	orig := resetCopy(tensor.Zeros(1), a)

	c := NewCPU()
	r, err := c.Decompose(a)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	rs := r.Shape()
	if len(rs) != 2 || rs[0] != cols || rs[1] != cols {
		t.Fatalf("%#v", rs)
	}
	// R is upper triangular.
	for i := 0; i < cols; i++ {
		for j := 0; j < i; j++ {
			if got := r.At(i, j); cmplx.Abs(complex128(got)) > tol {
				t.Fatalf("at %d %d: %v, expected 0", i, j, got)
			}
		}
	}
	// a now holds Q, and Q R reconstructs the input.
	qr := tensor.Zeros(1)
	tensor.Contract(qr, a, r, [][2]int{{1, 0}})
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			got, want := qr.At(i, j), orig.At(i, j)
			if cmplx.Abs(complex128(got-want)) > tol {
				t.Fatalf("at %d %d: %v, expected %v", i, j, got, want)
			}
		}
	}
}

func TestDecomposeShape(t *testing.T) {
	t.Parallel()
	c := NewCPU()
	if _, err := c.Decompose(tensor.Zeros(2, 3, 4)); err == nil {
		t.Fatalf("expected shape error")
	}
	if _, err := c.Decompose(tensor.Zeros(2, 5)); err == nil {
		t.Fatalf("expected shape error")
	}
}

func TestOffloadMatchesCPU(t *testing.T) {
	t.Parallel()
	const rows, cols, n = 6, 3, 8
	rng := rand.New(rand.NewPCG(2, 0))

	as := make([]*tensor.Dense, n)
	bs := make([]*tensor.Dense, n)
	for i := range as {
		as[i] = randMatrix(rng, rows, cols)
		bs[i] = resetCopy(tensor.Zeros(1), as[i])
	}

	c := NewCPU()
	crs, err := c.DecomposeBatch(as)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := c.Synchronize(); err != nil {
		t.Fatalf("%+v", err)
	}

	o := NewOffload(3)
	ors, err := o.DecomposeBatch(bs)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := o.Synchronize(); err != nil {
		t.Fatalf("%+v", err)
	}

	for i := range as {
		for k := 0; k < cols; k++ {
			got, want := ors[i].At(k, k), crs[i].At(k, k)
			if cmplx.Abs(complex128(got-want)) > tol {
				t.Fatalf("matrix %d diag %d: %v, expected %v", i, k, got, want)
			}
		}
		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				got, want := bs[i].At(row, col), as[i].At(row, col)
				if cmplx.Abs(complex128(got-want)) > tol {
					t.Fatalf("matrix %d at %d %d: %v, expected %v", i, row, col, got, want)
				}
			}
		}
	}
}

func TestOffloadMultipleBatches(t *testing.T) {
	t.Parallel()
	const rows, cols, n = 5, 2, 4
	rng := rand.New(rand.NewPCG(3, 0))

	as := make([]*tensor.Dense, n)
	bs := make([]*tensor.Dense, n)
	for i := range as {
		as[i] = randMatrix(rng, rows, cols)
		bs[i] = randMatrix(rng, rows, cols)
	}

	// Two submissions, one fence.
	o := NewOffload(0)
	ra, err := o.DecomposeBatch(as)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	rb, err := o.DecomposeBatch(bs)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := o.Synchronize(); err != nil {
		t.Fatalf("%+v", err)
	}
	for i := 0; i < n; i++ {
		if ra[i] == nil || rb[i] == nil {
			t.Fatalf("%d: %v %v", i, ra[i], rb[i])
		}
	}

	// A second fence with nothing pending is a no-op.
	if err := o.Synchronize(); err != nil {
		t.Fatalf("%+v", err)
	}
}

func randMatrix(rng *rand.Rand, rows, cols int) *tensor.Dense {
	a := tensor.Zeros(rows, cols)
	for ijk := range a.All() {
		a.SetAt(ijk, complex(rng.Float32()*2-1, rng.Float32()*2-1))
	}
	return a
}
