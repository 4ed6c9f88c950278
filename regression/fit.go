package regression

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FitLinear fits an ordinary least squares model with an intercept. Each
// row of x is one sample; y holds the observed targets.
func FitLinear(x [][]float64, y []float64) (*Linear, error) {
	n := len(x)
	if n == 0 {
		return nil, errors.New("no samples")
	}
	if len(y) != n {
		return nil, fmt.Errorf("%d samples but %d targets", n, len(y))
	}
	p := len(x[0])
	if p == 0 {
		return nil, errors.New("samples have no features")
	}
	if n < p+1 {
		return nil, fmt.Errorf("need at least %d samples for %d features, got %d", p+1, p, n)
	}

	// Design matrix with a leading column of ones for the intercept
	design := mat.NewDense(n, p+1, nil)
	for i, row := range x {
		if len(row) != p {
			return nil, fmt.Errorf("%w: sample %d has %d features, want %d", ErrFeatureCount, i, len(row), p)
		}
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}

	var qr mat.QR
	qr.Factorize(design)

	beta := mat.NewVecDense(p+1, nil)
	if err := qr.SolveVecTo(beta, false, mat.NewVecDense(n, y)); err != nil {
		return nil, fmt.Errorf("solve least squares: %w", err)
	}

	m := &Linear{
		Intercept:    beta.AtVec(0),
		Coefficients: make([]float64, p),
	}
	for j := range m.Coefficients {
		m.Coefficients[j] = beta.AtVec(j + 1)
	}

	var fitted mat.VecDense
	fitted.MulVec(design, beta)
	m.RSquared = stat.RSquaredFrom(fitted.RawVector().Data, y, nil)

	return m, nil
}
